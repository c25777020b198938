// Package status posts document lifecycle updates to the metadata store.
// Updates are idempotent set-status calls and best-effort by contract:
// a dropped progress write never fails an extraction.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Fields carries the optional payload alongside a status transition.
type Fields struct {
	ExtractedText string `json:"extractedText,omitempty"`
	PageCount     int    `json:"pageCount,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Sink interface {
	SetStatus(ctx context.Context, documentID, status string, fields Fields)
}

// HTTPSink POSTs updates to a callback endpoint, fire-and-forget. Failures
// are logged and swallowed.
type HTTPSink struct {
	endpoint  string
	authToken string
	client    *http.Client
	logger    *slog.Logger
}

func NewHTTP(endpoint, authToken string, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{
		endpoint:  strings.TrimSpace(endpoint),
		authToken: authToken,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

func (s *HTTPSink) SetStatus(ctx context.Context, documentID, status string, fields Fields) {
	if s.endpoint == "" {
		return
	}

	payload, err := json.Marshal(struct {
		DocumentID string `json:"documentId"`
		Status     string `json:"status"`
		Fields
	}{DocumentID: documentID, Status: status, Fields: fields})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("status update dropped", "documentId", documentID, "status", status, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("status update rejected", "documentId", documentID, "status", status, "code", resp.StatusCode)
	}
}

// Nop discards every update.
type Nop struct{}

func (Nop) SetStatus(ctx context.Context, documentID, status string, fields Fields) {}
