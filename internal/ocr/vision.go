package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	visionOCRDefaultURL   = "https://api.mistral.ai/v1/ocr"
	visionOCRDefaultModel = "mistral-ocr-latest"

	// visionMaxPrefixBytes bounds how much of the file is inlined when no
	// signed URL is available. This provider is the cheap middle tier; it
	// reads a prefix, not the whole document.
	visionMaxPrefixBytes = 8 << 20

	visionMaxRetries     = 2
	visionRetryDelay     = 2 * time.Second
	visionRequestTimeout = 120 * time.Second
)

type VisionOCRConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// VisionOCRProvider calls a generic vision OCR endpoint (Mistral OCR wire
// shape). It prefers a signed URL reference; without one it inlines a
// bounded prefix of the file as a data URL.
type VisionOCRProvider struct {
	cfg     VisionOCRConfig
	limiter *Limiter
	client  *http.Client
}

func NewVisionOCR(cfg VisionOCRConfig, limiter *Limiter) *VisionOCRProvider {
	if cfg.Model == "" {
		cfg.Model = visionOCRDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = visionOCRDefaultURL
	}
	return &VisionOCRProvider{
		cfg:     cfg,
		limiter: limiter,
		client: &http.Client{
			Timeout: visionRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (p *VisionOCRProvider) Name() string { return "vision-ocr" }

type visionOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type visionOCRResponse struct {
	Pages []visionOCRPage `json:"pages"`
}

type visionOCRErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *VisionOCRProvider) TryExtract(ctx context.Context, req Request) (string, error) {
	if p.cfg.APIKey == "" {
		return "", fmt.Errorf("vision OCR not configured")
	}

	docRef, err := p.documentRef(req)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]any{
		"model":    p.cfg.Model,
		"document": docRef,
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	return p.limiter.Do(ctx, func() (string, error) {
		var lastErr error
		for attempt := 0; attempt <= visionMaxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(visionRetryDelay * time.Duration(attempt)):
				}
			}

			text, err := p.execute(ctx, body)
			if err == nil {
				return text, nil
			}
			lastErr = err
			if isClientError(err) {
				break
			}
		}
		return "", fmt.Errorf("vision OCR failed after %d attempts: %w", visionMaxRetries+1, lastErr)
	})
}

// documentRef builds the document field: a URL reference when available,
// otherwise an inline data URL of a bounded file prefix.
func (p *VisionOCRProvider) documentRef(req Request) (map[string]any, error) {
	if req.SignedURL != "" {
		return map[string]any{
			"type":         "document_url",
			"document_url": req.SignedURL,
		}, nil
	}

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	prefix, err := io.ReadAll(io.LimitReader(f, visionMaxPrefixBytes))
	if err != nil {
		return nil, fmt.Errorf("read prefix: %w", err)
	}

	mime := req.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}
	return map[string]any{
		"type":         "document_url",
		"document_url": "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(prefix),
	}, nil
}

func (p *VisionOCRProvider) execute(ctx context.Context, body []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, visionRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, "POST", p.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "docintel/1.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseOCRError(resp)
	}

	var result visionOCRResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 100<<20)).Decode(&result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(result.Pages) == 0 {
		return "", fmt.Errorf("OCR returned no pages")
	}

	sort.Slice(result.Pages, func(i, j int) bool {
		return result.Pages[i].Index < result.Pages[j].Index
	})
	parts := make([]string, 0, len(result.Pages))
	for _, page := range result.Pages {
		if s := strings.TrimSpace(page.Markdown); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func parseOCRError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp visionOCRErrorBody
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
		return &OCRError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error.Message,
			Type:       errResp.Error.Type,
		}
	}
	return &OCRError{StatusCode: resp.StatusCode, Message: string(raw), Type: "unknown"}
}

// OCRError is a typed provider failure; 4xx statuses are not retried.
type OCRError struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("vision OCR %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

func isClientError(err error) bool {
	if ocrErr, ok := err.(*OCRError); ok {
		return ocrErr.StatusCode >= 400 && ocrErr.StatusCode < 500
	}
	return false
}
