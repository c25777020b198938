// Package plaintext handles formats that decode directly to text: plain
// text and markdown passthrough, HTML stripping, and RTF control-word
// removal. No byte scanning is involved; these inputs are already text.
package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

type Extractor struct {
	maxBytes int64
}

func New(maxBytes int64) *Extractor {
	return &Extractor{maxBytes: maxBytes}
}

func (e *Extractor) Name() string { return "text" }

func (e *Extractor) MaxFileSize() int64 { return e.maxBytes }

func (e *Extractor) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown"}
}

func (e *Extractor) SupportedExtensions() []string {
	return []string{
		".txt", ".text", ".log", ".ini", ".cfg", ".conf", ".env", ".properties",
		".md", ".mdx", ".markdown",
	}
}

func (e *Extractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, err
	}

	text := string(b)
	switch strings.ToLower(filepath.Ext(job.FileName)) {
	case ".md", ".mdx", ".markdown":
		text = stripFrontMatter(text)
	}

	return extract.FromPages([]string{normalizeText(text)}, "native"), nil
}

var excessBlankLines = regexp.MustCompile(`\n{4,}`)

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = excessBlankLines.ReplaceAllString(s, "\n\n\n")
	return strings.TrimSpace(s)
}

func stripFrontMatter(s string) string {
	if !strings.HasPrefix(s, "---\n") {
		return s
	}
	idx := strings.Index(s[4:], "\n---\n")
	if idx < 0 {
		return s
	}
	return s[4+idx+5:]
}
