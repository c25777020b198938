package ocr

import (
	"time"

	"golang.org/x/oauth2"
)

// CredentialCache is a short-lived access token owned by the caller and
// handed to the Google-backed providers. It is a value, not global state;
// refreshing it is the caller's job.
type CredentialCache struct {
	Token     string
	ExpiresAt time.Time
}

func (c CredentialCache) Valid() bool {
	return c.Token != "" && time.Now().Before(c.ExpiresAt)
}

// TokenSource adapts the cached token for the Google client libraries.
func (c CredentialCache) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: c.Token,
		Expiry:      c.ExpiresAt,
	})
}
