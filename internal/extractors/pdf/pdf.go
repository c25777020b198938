// Package pdf extracts text from PDF bytes without a PDF library. The raw
// body is fed through the byte scanner, window by window for big files, so
// damaged or nonstandard files still yield whatever text they carry. Page
// count is a marker-counting estimate, refined downstream by pagination.
package pdf

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/chunk"
	"github.com/toricodesthings/document-intelligence-service/internal/extract"
	"github.com/toricodesthings/document-intelligence-service/internal/scan"
)

type Extractor struct {
	maxBytes int64
	budget   chunk.Budget
}

func New(maxBytes int64, budget chunk.Budget) *Extractor {
	return &Extractor{maxBytes: maxBytes, budget: budget}
}

func (e *Extractor) Name() string       { return "document/pdf" }
func (e *Extractor) MaxFileSize() int64 { return e.maxBytes }

func (e *Extractor) SupportedTypes() []string {
	return []string{"application/pdf"}
}

func (e *Extractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (e *Extractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	f, err := os.Open(job.LocalPath)
	if err != nil {
		return extract.Result{}, err
	}
	defer f.Close()

	head := make([]byte, 5)
	n, _ := f.ReadAt(head, 0)
	if n < 5 || !bytes.HasPrefix(head[:n], []byte("%PDF")) {
		return extract.Result{}, extract.NewInvalidContainer("pdf", nil)
	}

	size := job.FileSize
	if size <= 0 {
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
	}

	windows, class, truncated := chunk.Plan(size)
	tracker := chunk.NewTracker(e.budget)
	report := extract.WindowProgress(job)

	// Overlapping windows reproduce boundary text on purpose; exact
	// fragment dedup removes the copies.
	seen := make(map[string]struct{})
	var parts []string
	pageMarkers := 0
	var budgetStop *extract.Error

	for _, w := range windows {
		select {
		case <-ctx.Done():
			return extract.Result{}, ctx.Err()
		default:
		}
		if tracker.Exceeded() {
			budgetStop = extract.NewBudgetExceeded(tracker.BytesRead())
			break
		}

		buf, err := chunk.ReadWindow(f, w)
		if err != nil {
			// A single unreadable window is not fatal for the file.
			continue
		}
		tracker.Add(int64(len(buf)))

		pageMarkers += countPageMarkers(buf, w.Index)
		for _, frag := range scan.Scan(buf) {
			if _, dup := seen[frag.Text]; dup {
				continue
			}
			seen[frag.Text] = struct{}{}
			parts = append(parts, frag.Text)
		}
		report(w.Index+1, len(windows))
	}

	text := strings.Join(parts, " ")
	if truncated {
		text += "\n\n[Extraction was partial: only the first portion of this large file was processed locally.]"
	}
	if budgetStop != nil {
		text += "\n\n[Extraction stopped early: " + budgetStop.Message + ". Text may be incomplete.]"
	}

	if pageMarkers < 1 {
		pageMarkers = 1
	}

	res := extract.FromPages([]string{text}, "byte-scan")
	res.Metadata = map[string]string{
		"estimatedPages": strconv.Itoa(pageMarkers),
		"sizeClass":      string(class),
	}
	if budgetStop != nil {
		res.Metadata["stopReason"] = string(budgetStop.Kind)
	}
	return res, nil
}

// countPageMarkers counts /Type/Page dictionary entries, tolerating a
// space before /Page and excluding the /Type/Pages tree node. For windows
// after the first, most of the overlap prefix is skipped so a marker
// inside the overlap is counted once; the small margin kept covers markers
// cut by the previous window's edge.
func countPageMarkers(buf []byte, windowIndex int) int {
	start := 0
	if windowIndex > 0 {
		start = chunk.WindowOverlapBytes - 64
		if start < 0 || start > len(buf) {
			start = 0
		}
	}

	count := 0
	for i := start; i+5 <= len(buf); {
		j := bytes.Index(buf[i:], []byte("/Type"))
		if j < 0 {
			break
		}
		i += j + 5
		k := i
		for k < len(buf) && buf[k] == ' ' {
			k++
		}
		if !bytes.HasPrefix(buf[k:], []byte("/Page")) {
			continue
		}
		after := k + 5
		if after < len(buf) && buf[after] == 's' {
			continue
		}
		count++
	}
	return count
}
