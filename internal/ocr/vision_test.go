package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestVisionOCRJoinsPagesInIndexOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pages": []map[string]any{
				{"index": 1, "markdown": "second page"},
				{"index": 0, "markdown": "first page"},
			},
		})
	}))
	defer srv.Close()

	p := NewVisionOCR(VisionOCRConfig{APIKey: "test-key", BaseURL: srv.URL}, NewLimiter(0))
	got, err := p.TryExtract(context.Background(), Request{SignedURL: "https://example.com/doc.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first page\n\nsecond page" {
		t.Fatalf("pages not ordered by index: %q", got)
	}
}

func TestVisionOCRClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "bad document", "type": "invalid_request"},
		})
	}))
	defer srv.Close()

	p := NewVisionOCR(VisionOCRConfig{APIKey: "k", BaseURL: srv.URL}, NewLimiter(0))
	_, err := p.TryExtract(context.Background(), Request{SignedURL: "https://example.com/x.pdf"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "bad document") {
		t.Fatalf("provider message lost: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestVisionOCRInlinesBoundedPrefix(t *testing.T) {
	t.Parallel()

	var gotDoc string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Document map[string]string `json:"document"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotDoc = body.Document["document_url"]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pages": []map[string]any{{"index": 0, "markdown": "ok"}},
		})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "local.pdf")
	if err := os.WriteFile(path, []byte("%PDF local bytes"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewVisionOCR(VisionOCRConfig{APIKey: "k", BaseURL: srv.URL}, NewLimiter(0))
	if _, err := p.TryExtract(context.Background(), Request{LocalPath: path, MIMEType: "application/pdf"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotDoc, "data:application/pdf;base64,") {
		t.Fatalf("expected inline data URL, got %.60q", gotDoc)
	}
}

func TestVisionOCRUnconfigured(t *testing.T) {
	t.Parallel()

	p := NewVisionOCR(VisionOCRConfig{}, NewLimiter(0))
	if _, err := p.TryExtract(context.Background(), Request{}); err == nil {
		t.Fatalf("expected not-configured error")
	}
}

func TestLLMOCRReturnsContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "test-model" {
			t.Errorf("model not passed through: %v", body["model"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  transcribed text  "}},
			},
		})
	}))
	defer srv.Close()

	p := NewLLMOCR(LLMOCRConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, NewLimiter(0))
	got, err := p.TryExtract(context.Background(), Request{SignedURL: "https://example.com/page.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "transcribed text" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestLLMOCRInlineErrorObject(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "rate_limited", "message": "slow down"},
		})
	}))
	defer srv.Close()

	p := NewLLMOCR(LLMOCRConfig{APIKey: "k", BaseURL: srv.URL}, NewLimiter(0))
	_, err := p.TryExtract(context.Background(), Request{SignedURL: "https://example.com/p.png"})
	if err == nil || !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("inline error not surfaced: %v", err)
	}
}

func TestLLMOCRRequiresSignedURL(t *testing.T) {
	t.Parallel()

	p := NewLLMOCR(LLMOCRConfig{APIKey: "k"}, NewLimiter(0))
	if _, err := p.TryExtract(context.Background(), Request{}); err == nil {
		t.Fatalf("expected signed-URL requirement error")
	}
}
