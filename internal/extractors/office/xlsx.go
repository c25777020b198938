package office

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

// maxXLSXDataRows caps the rows rendered per sheet. Spreadsheets are not
// on the OCR path, so a hard cap with a note is acceptable.
const maxXLSXDataRows = 1000

type XLSXExtractor struct {
	maxBytes int64
}

func NewXLSX(maxBytes int64) *XLSXExtractor {
	return &XLSXExtractor{maxBytes: maxBytes}
}

func (e *XLSXExtractor) Name() string       { return "document/xlsx" }
func (e *XLSXExtractor) MaxFileSize() int64 { return e.maxBytes }
func (e *XLSXExtractor) SupportedTypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
}
func (e *XLSXExtractor) SupportedExtensions() []string { return []string{".xlsx"} }

func (e *XLSXExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	f, err := excelize.OpenFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, extract.NewInvalidContainer("xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()

	// One extracted page per sheet.
	var pageTexts []string
	totalRows := 0
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		filtered := make([][]string, 0, len(rows))
		for _, row := range rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					filtered = append(filtered, row)
					break
				}
			}
		}
		if len(filtered) == 0 {
			continue
		}

		totalRows += len(filtered)
		pageTexts = append(pageTexts, "Sheet: "+sheet+"\n\n"+rowsToTable(filtered))
	}

	res := extract.FromPages(pageTexts, "native")
	res.Metadata = map[string]string{
		"sheets":    fmt.Sprintf("%d", len(sheets)),
		"totalRows": fmt.Sprintf("%d", totalRows),
	}
	return res, nil
}

func rowsToTable(rows [][]string) string {
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols == 0 {
		return ""
	}

	for i := range rows {
		for len(rows[i]) < maxCols {
			rows[i] = append(rows[i], "")
		}
		for j := range rows[i] {
			rows[i][j] = strings.ReplaceAll(rows[i][j], "|", "\\|")
		}
	}

	truncated := false
	if len(rows) > maxXLSXDataRows+1 {
		rows = rows[:maxXLSXDataRows+1]
		truncated = true
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
	sep := make([]string, maxCols)
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows[1:] {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	if truncated {
		sb.WriteString(fmt.Sprintf("\n... truncated to first %d data rows\n", maxXLSXDataRows))
	}
	return sb.String()
}
