package office

import (
	"context"
	"os"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	"github.com/toricodesthings/document-intelligence-service/internal/scan"
)

// LegacyExtractor handles the pre-OOXML binary formats (.doc, .ppt, .xls).
// These store text interleaved with binary records; there is no container
// to unpack, so the raw bytes go straight through the scanner's heuristics.
// Low recall is expected and fine: poor output trips the OCR fallback.
type LegacyExtractor struct {
	maxBytes int64
}

func NewLegacy(maxBytes int64) *LegacyExtractor {
	return &LegacyExtractor{maxBytes: maxBytes}
}

func (e *LegacyExtractor) Name() string       { return "document/legacy-office" }
func (e *LegacyExtractor) MaxFileSize() int64 { return e.maxBytes }
func (e *LegacyExtractor) SupportedTypes() []string {
	return []string{"application/msword", "application/vnd.ms-excel", "application/vnd.ms-powerpoint"}
}
func (e *LegacyExtractor) SupportedExtensions() []string { return []string{".doc", ".xls", ".ppt"} }

func (e *LegacyExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	buf, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("legacy office", err)
	}

	var parts []string
	for _, f := range scan.Scan(buf) {
		parts = append(parts, f.Text)
	}

	res := extract.FromPages([]string{strings.Join(parts, " ")}, "byte-scan")
	return res, nil
}
