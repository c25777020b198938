package office

import (
	"archive/zip"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

type PPTXExtractor struct {
	maxBytes int64
}

func NewPPTX(maxBytes int64) *PPTXExtractor {
	return &PPTXExtractor{maxBytes: maxBytes}
}

func (e *PPTXExtractor) Name() string       { return "document/pptx" }
func (e *PPTXExtractor) MaxFileSize() int64 { return e.maxBytes }
func (e *PPTXExtractor) SupportedTypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.presentationml.presentation"}
}
func (e *PPTXExtractor) SupportedExtensions() []string { return []string{".pptx"} }

func (e *PPTXExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	zr, err := zip.OpenReader(job.LocalPath)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("pptx", err)
	}
	defer zr.Close()

	nums := slideNumbers(&zr.Reader)

	// One extracted page per slide, in deck order. Lexicographic ordering
	// of entry names would put slide10 before slide2.
	pageTexts := make([]string, 0, len(nums))
	for _, n := range nums {
		var parts []string

		if b, err := readZipFile(&zr.Reader, fmt.Sprintf("ppt/slides/slide%d.xml", n), defaultMaxZipEntryBytes); err == nil {
			if text := withStripFallback(paragraphText(b, "</a:p>", "a:t"), b); text != "" {
				parts = append(parts, text)
			}
		}
		if b, err := readZipFile(&zr.Reader, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), defaultMaxZipEntryBytes); err == nil {
			if notes := paragraphText(b, "</a:p>", "a:t"); notes != "" {
				parts = append(parts, "Notes: "+notes)
			}
		}

		pageTexts = append(pageTexts, strings.Join(parts, "\n\n"))
	}

	res := extract.FromPages(pageTexts, "native")
	res.Metadata = parseCoreMetadata(&zr.Reader, defaultMaxZipMetadataBytes)
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	res.Metadata["slides"] = strconv.Itoa(len(nums))
	return res, nil
}

// slideNumbers returns the N of every ppt/slides/slideN.xml entry, sorted
// numerically.
func slideNumbers(zr *zip.Reader) []int {
	var nums []int
	for _, f := range zr.File {
		name := f.Name
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
