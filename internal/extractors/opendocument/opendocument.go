// Package opendocument extracts text from ODF containers (odt, ods, odp).
// Like the OOXML path, the body is not parsed as XML; paragraph regions
// are located by their closing tags and markup is stripped byte-wise.
package opendocument

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	"github.com/toricodesthings/document-intelligence-service/internal/scan"
)

const maxContentBytes = int64(64 << 20)

type Extractor struct {
	maxBytes int64
}

func New(maxBytes int64) *Extractor { return &Extractor{maxBytes: maxBytes} }

func (e *Extractor) Name() string       { return "document/opendocument" }
func (e *Extractor) MaxFileSize() int64 { return e.maxBytes }
func (e *Extractor) SupportedTypes() []string {
	return []string{
		"application/vnd.oasis.opendocument.text",
		"application/vnd.oasis.opendocument.spreadsheet",
		"application/vnd.oasis.opendocument.presentation",
	}
}
func (e *Extractor) SupportedExtensions() []string { return []string{".odt", ".ods", ".odp"} }

func (e *Extractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	zr, err := zip.OpenReader(job.LocalPath)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("opendocument", err)
	}
	defer zr.Close()

	content, err := readEntry(&zr.Reader, "content.xml")
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("opendocument", err)
	}

	res := extract.FromPages([]string{bodyText(content)}, "native")
	res.Metadata = parseMeta(&zr.Reader)
	return res, nil
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lr := &io.LimitedReader{R: f, N: maxContentBytes + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxContentBytes {
		return nil, fmt.Errorf("%s exceeds %d byte limit", name, maxContentBytes)
	}
	return b, nil
}

// bodyText splits content.xml on paragraph and heading close tags and
// strips markup per region. Nested spans, links, and table cells inside a
// region all contribute their character data.
func bodyText(content []byte) string {
	normalized := bytes.ReplaceAll(content, []byte("</text:h>"), []byte("</text:p>"))

	var lines []string
	for _, region := range bytes.Split(normalized, []byte("</text:p>")) {
		// Only the trailing open paragraph of the region is body text;
		// stripping the whole region would repeat style declarations.
		start := bytes.LastIndex(region, []byte("<text:p"))
		if h := bytes.LastIndex(region, []byte("<text:h")); h > start {
			start = h
		}
		if start < 0 {
			continue
		}
		if s := scan.StripTags(region[start:]); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return scan.StripTags(content)
	}
	return strings.Join(lines, "\n")
}

// parseMeta reads meta.xml. Small trusted-shape part, so a real decoder.
func parseMeta(zr *zip.Reader) map[string]string {
	b, err := readEntry(zr, "meta.xml")
	if err != nil {
		return nil
	}

	meta := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(b))
	var tag string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			tag = t.Name.Local
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" {
				continue
			}
			switch tag {
			case "title":
				meta["title"] = val
			case "initial-creator", "creator":
				meta["author"] = val
			case "creation-date":
				meta["created"] = val
			case "date":
				meta["modified"] = val
			case "subject":
				meta["subject"] = val
			}
		case xml.EndElement:
			tag = ""
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
