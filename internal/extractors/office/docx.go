package office

import (
	"archive/zip"
	"context"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

type DOCXExtractor struct {
	maxBytes int64
}

func NewDOCX(maxBytes int64) *DOCXExtractor {
	return &DOCXExtractor{maxBytes: maxBytes}
}

func (e *DOCXExtractor) Name() string       { return "document/docx" }
func (e *DOCXExtractor) MaxFileSize() int64 { return e.maxBytes }
func (e *DOCXExtractor) SupportedTypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
}
func (e *DOCXExtractor) SupportedExtensions() []string { return []string{".docx"} }

func (e *DOCXExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	zr, err := zip.OpenReader(job.LocalPath)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("docx", err)
	}
	defer zr.Close()

	body, err := readZipFile(&zr.Reader, "word/document.xml", defaultMaxZipEntryBytes)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("docx", err)
	}

	text := withStripFallback(paragraphText(body, "</w:p>", "w:t"), body)

	res := extract.FromPages([]string{text}, "native")
	res.Metadata = parseCoreMetadata(&zr.Reader, defaultMaxZipMetadataBytes)
	return res, nil
}
