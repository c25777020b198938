// Package ocr runs the fallback chain used when native extraction comes
// back empty or unreadable. Providers are tried strictly in order; any
// provider failure logs and advances the chain, and the chain stops at
// the first output that clears the minimum length.
package ocr

import (
	"context"
	"log/slog"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

// Request carries everything a provider might need. Providers pick what
// they use: some want the local bytes, some want a signed URL reference.
type Request struct {
	LocalPath string
	SignedURL string
	FileName  string
	MIMEType  string
	FileSize  int64
}

// Provider is one OCR backend. TryExtract returns the recognized text;
// an error means this provider cannot serve the request and the chain
// should move on.
type Provider interface {
	Name() string
	TryExtract(ctx context.Context, req Request) (string, error)
}

type Chain struct {
	providers  []Provider
	minTextLen int
	logger     *slog.Logger
}

func NewChain(minTextLen int, logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if minTextLen <= 0 {
		minTextLen = 50
	}
	return &Chain{providers: providers, minTextLen: minTextLen, logger: logger}
}

// Run tries each provider in order and returns the first output that
// meets the minimum length. It returns "" when every provider failed,
// produced too little, or none are configured; the caller turns that
// into a user-facing remediation message, not an error. onStage, if
// non-nil, is called before each provider attempt.
func (c *Chain) Run(ctx context.Context, req Request, onStage func(provider string)) string {
	for _, p := range c.providers {
		select {
		case <-ctx.Done():
			return ""
		default:
		}
		if onStage != nil {
			onStage(p.Name())
		}

		text, err := p.TryExtract(ctx, req)
		if err != nil {
			c.logger.Warn("ocr provider failed, advancing chain",
				"error", extract.NewOcrProvider(p.Name(), err))
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) < c.minTextLen {
			c.logger.Info("ocr provider output below minimum, advancing chain",
				"provider", p.Name(), "error", extract.NewTooSmall(len(text), c.minTextLen))
			continue
		}

		c.logger.Info("ocr succeeded", "provider", p.Name(), "chars", len(text))
		return text
	}
	return ""
}
