// Package ebook extracts text from EPUB archives. The package manifest is
// tiny trusted XML and gets a real decoder; the chapter bodies are XHTML
// and go through the byte-level tag stripper, one page per spine entry.
package ebook

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	"github.com/toricodesthings/document-intelligence-service/internal/scan"
)

const maxChapterBytes = int64(16 << 20)

type EPUBExtractor struct {
	maxBytes int64
}

func NewEPUB(maxBytes int64) *EPUBExtractor { return &EPUBExtractor{maxBytes: maxBytes} }

func (e *EPUBExtractor) Name() string             { return "document/epub" }
func (e *EPUBExtractor) MaxFileSize() int64       { return e.maxBytes }
func (e *EPUBExtractor) SupportedTypes() []string { return []string{"application/epub+zip"} }
func (e *EPUBExtractor) SupportedExtensions() []string {
	return []string{".epub"}
}

func (e *EPUBExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	zr, err := zip.OpenReader(job.LocalPath)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("epub", err)
	}
	defer zr.Close()

	docs, meta := spineDocuments(&zr.Reader)
	if len(docs) == 0 {
		docs = htmlEntries(&zr.Reader)
	}
	if len(docs) == 0 {
		return extract.Result{}, extract.NewInvalidContainer("epub", fmt.Errorf("no readable chapters"))
	}

	var pageTexts []string
	for _, name := range docs {
		b, err := readEntry(&zr.Reader, name)
		if err != nil {
			continue
		}
		pageTexts = append(pageTexts, chapterText(b))
	}

	res := extract.FromPages(pageTexts, "native")
	res.Metadata = meta
	return res, nil
}

// chapterText drops head/script regions before stripping so chapter pages
// carry prose, not stylesheet bodies.
func chapterText(b []byte) string {
	for _, cut := range []struct{ open, close string }{
		{"<head", "</head>"},
		{"<script", "</script>"},
		{"<style", "</style>"},
	} {
		for {
			start := bytes.Index(b, []byte(cut.open))
			if start < 0 {
				break
			}
			end := bytes.Index(b[start:], []byte(cut.close))
			if end < 0 {
				b = b[:start]
				break
			}
			b = append(b[:start:start], b[start+end+len(cut.close):]...)
		}
	}
	return scan.StripTags(b)
}

type opfPackage struct {
	Metadata struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Refs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// spineDocuments resolves the reading-order chapter entries declared by
// the OPF package document, plus title/author metadata.
func spineDocuments(zr *zip.Reader) ([]string, map[string]string) {
	opfPath := packagePath(zr)
	if opfPath == "" {
		return nil, nil
	}
	b, err := readEntry(zr, opfPath)
	if err != nil {
		return nil, nil
	}

	var pkg opfPackage
	if err := xml.Unmarshal(b, &pkg); err != nil {
		return nil, nil
	}

	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	base := path.Dir(opfPath)
	var docs []string
	for _, ref := range pkg.Spine.Refs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		docs = append(docs, path.Join(base, href))
	}

	meta := map[string]string{}
	if t := strings.TrimSpace(pkg.Metadata.Title); t != "" {
		meta["title"] = t
	}
	if c := strings.TrimSpace(pkg.Metadata.Creator); c != "" {
		meta["author"] = c
	}
	if len(meta) == 0 {
		meta = nil
	}
	return docs, meta
}

func packagePath(zr *zip.Reader) string {
	b, err := readEntry(zr, "META-INF/container.xml")
	if err != nil {
		return ""
	}
	var container struct {
		Rootfiles []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfiles>rootfile"`
	}
	if err := xml.Unmarshal(b, &container); err != nil {
		return ""
	}
	for _, rf := range container.Rootfiles {
		if strings.HasSuffix(rf.FullPath, ".opf") {
			return rf.FullPath
		}
	}
	return ""
}

// htmlEntries is the fallback when the package document is missing or
// broken: every XHTML entry in archive order.
func htmlEntries(zr *zip.Reader) []string {
	var docs []string
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
			docs = append(docs, f.Name)
		}
	}
	return docs
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lr := &io.LimitedReader{R: f, N: maxChapterBytes + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxChapterBytes {
		return nil, fmt.Errorf("%s exceeds %d byte limit", name, maxChapterBytes)
	}
	return b, nil
}
