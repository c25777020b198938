package structured

import (
	"context"
	"os"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	"github.com/toricodesthings/document-intelligence-service/internal/scan"
)

type XMLExtractor struct {
	maxBytes int64
}

func NewXML(maxBytes int64) *XMLExtractor { return &XMLExtractor{maxBytes: maxBytes} }

func (e *XMLExtractor) Name() string             { return "structured/xml" }
func (e *XMLExtractor) MaxFileSize() int64       { return e.maxBytes }
func (e *XMLExtractor) SupportedTypes() []string { return []string{"application/xml", "text/xml"} }
func (e *XMLExtractor) SupportedExtensions() []string {
	return []string{".xml", ".xsd", ".xsl", ".svg", ".plist"}
}

// Extract strips markup and keeps character data. Arbitrary XML has no
// schema to honor, so the whole document is treated as one flow of text.
func (e *XMLExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, err
	}

	text := scan.DecodeEntities(scan.StripTags(b))
	return extract.FromPages([]string{text}, "native"), nil
}
