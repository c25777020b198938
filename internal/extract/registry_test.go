package extract

import (
	"context"
	"testing"
)

type stubExtractor struct {
	name string
	mts  []string
	exts []string
	text string
}

func (s *stubExtractor) Extract(ctx context.Context, job Job) (Result, error) {
	return FromPages([]string{s.text}, s.name), nil
}
func (s *stubExtractor) SupportedTypes() []string      { return s.mts }
func (s *stubExtractor) SupportedExtensions() []string { return s.exts }
func (s *stubExtractor) Name() string                  { return s.name }
func (s *stubExtractor) MaxFileSize() int64            { return 0 }

func TestResolvePrefersExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "generic-text", mts: []string{"text/plain"}, exts: []string{".txt"}})
	r.Register(&stubExtractor{name: "pdf", mts: []string{"application/pdf"}, exts: []string{".pdf"}})

	e, err := r.Resolve("text/plain", ".pdf")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if e.Name() != "pdf" {
		t.Fatalf("expected pdf extractor, got %q", e.Name())
	}
}

func TestResolveStripsMIMEParameters(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "generic-text", mts: []string{"text/plain"}, exts: []string{".txt"}})

	e, err := r.Resolve("text/plain; charset=utf-8", ".weird")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if e.Name() != "generic-text" {
		t.Fatalf("expected generic-text, got %q", e.Name())
	}
}

func TestResolveTextFamilyFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "generic-text", mts: []string{"text/plain"}, exts: []string{".txt"}})

	e, err := r.Resolve("text/x-log", "")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if e.Name() != "generic-text" {
		t.Fatalf("expected text fallback, got %q", e.Name())
	}
}

func TestResolveUnknownFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("application/x-whatever", ".bin"); err == nil {
		t.Fatalf("expected resolution failure")
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "pdf"})
	r.Register(&stubExtractor{name: "office"})
	names := r.Names()
	if len(names) != 2 || names[0] != "pdf" || names[1] != "office" {
		t.Fatalf("unexpected names: %v", names)
	}
}
