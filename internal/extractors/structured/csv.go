// Package structured extracts text from record- and tree-shaped data
// files. Tables render as markdown so downstream consumers keep column
// alignment; tree formats render re-serialized for stable output.
package structured

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

// maxTableRows bounds rendered rows so a million-line export does not
// become a million-line markdown table.
const maxTableRows = 200

type CSVExtractor struct {
	maxBytes int64
}

func NewCSV(maxBytes int64) *CSVExtractor { return &CSVExtractor{maxBytes: maxBytes} }

func (e *CSVExtractor) Name() string       { return "structured/csv" }
func (e *CSVExtractor) MaxFileSize() int64 { return e.maxBytes }
func (e *CSVExtractor) SupportedTypes() []string {
	return []string{"text/csv", "text/tab-separated-values"}
}
func (e *CSVExtractor) SupportedExtensions() []string { return []string{".csv", ".tsv"} }

func (e *CSVExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, err
	}

	recs, delim, err := readRecords(b)
	if err != nil || len(recs) == 0 {
		// Not parseable as a table; the raw body is still text.
		return extract.FromPages([]string{string(b)}, "native"), nil
	}

	res := extract.FromPages([]string{recordsToMarkdown(recs)}, "native")
	res.Metadata = map[string]string{
		"rows":      fmt.Sprintf("%d", len(recs)),
		"columns":   fmt.Sprintf("%d", maxCols(recs)),
		"delimiter": string(delim),
	}
	return res, nil
}

func readRecords(b []byte) ([][]string, rune, error) {
	for _, d := range []rune{',', '\t', ';', '|'} {
		r := csv.NewReader(bytes.NewReader(b))
		r.Comma = d
		r.FieldsPerRecord = -1
		recs, err := r.ReadAll()
		if err == nil && len(recs) > 0 && maxCols(recs) > 1 {
			return recs, d, nil
		}
	}
	return nil, ',', fmt.Errorf("unable to parse CSV/TSV")
}

func maxCols(recs [][]string) int {
	m := 0
	for _, row := range recs {
		if len(row) > m {
			m = len(row)
		}
	}
	return m
}

func recordsToMarkdown(recs [][]string) string {
	if len(recs) == 0 {
		return ""
	}
	max := maxCols(recs)
	for i := range recs {
		for len(recs[i]) < max {
			recs[i] = append(recs[i], "")
		}
	}

	rows := recs
	if len(rows) > maxTableRows+1 {
		rows = rows[:maxTableRows+1]
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
	sep := make([]string, max)
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows[1:] {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	if len(recs) > maxTableRows+1 {
		sb.WriteString(fmt.Sprintf("\n... and %d more rows", len(recs)-maxTableRows-1))
	}
	return strings.TrimSpace(sb.String())
}
