package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.DiscardHandler)
	os.Exit(m.Run())
}

func TestInternalAuthRejectsBadSecret(t *testing.T) {
	cfg.InternalSharedSecret = strings.Repeat("s", 32)

	h := withInternalAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/extract", nil)
	req.Header.Set("X-Internal-Auth", "wrong")
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/extract", nil)
	req.Header.Set("X-Internal-Auth", cfg.InternalSharedSecret)
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWithMethodRejectsOthers(t *testing.T) {
	h := withMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/extract", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("Allow header missing")
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	cfg.RateLimitEvery = time.Hour
	cfg.RateLimitBurst = 1

	h := withRateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/extract", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")

	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After missing")
	}
}

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := getClientIP(req); ip != "203.0.113.9" {
		t.Fatalf("unexpected ip %q", ip)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:5555"
	if ip := getClientIP(req); ip != "192.0.2.4" {
		t.Fatalf("unexpected ip %q", ip)
	}
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/extract",
		strings.NewReader(`{"presignedUrl":"https://x"} {"again":true}`))
	if _, err := parseJSON[extractRequest](req, 1<<20); err == nil {
		t.Fatalf("expected trailing-data error")
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/extract",
		strings.NewReader(`{"presignedUrl":"https://x","nope":1}`))
	if _, err := parseJSON[extractRequest](req, 1<<20); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestSanitizeErrorRedactsTempDir(t *testing.T) {
	msg := sanitizeError(errFromPath(os.TempDir() + "/docintel-123/file.pdf"))
	if strings.Contains(msg, os.TempDir()) {
		t.Fatalf("temp dir leaked: %q", msg)
	}
	if !strings.Contains(msg, "[tmp]") {
		t.Fatalf("placeholder missing: %q", msg)
	}
}

func errFromPath(path string) error {
	_, err := os.Open(path)
	return err
}
