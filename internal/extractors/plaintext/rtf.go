package plaintext

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/toricodesthings/document-intelligence-service/internal/extract"
)

type RTFExtractor struct {
	maxBytes int64
}

func NewRTF(maxBytes int64) *RTFExtractor { return &RTFExtractor{maxBytes: maxBytes} }

func (e *RTFExtractor) Name() string                  { return "document/rtf" }
func (e *RTFExtractor) MaxFileSize() int64            { return e.maxBytes }
func (e *RTFExtractor) SupportedTypes() []string      { return []string{"application/rtf", "text/rtf"} }
func (e *RTFExtractor) SupportedExtensions() []string { return []string{".rtf"} }

var (
	rtfPar     = regexp.MustCompile(`\\par[d]?`)
	rtfTab     = regexp.MustCompile(`\\tab`)
	rtfHexEsc  = regexp.MustCompile(`\\'[0-9a-fA-F]{2}`)
	rtfControl = regexp.MustCompile(`\\[a-zA-Z]+-?\d* ?`)
	rtfBlanks  = regexp.MustCompile(`\n{3,}`)
)

func (e *RTFExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	default:
	}

	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{}, err
	}

	s := string(b)
	s = rtfPar.ReplaceAllString(s, "\n")
	s = rtfTab.ReplaceAllString(s, "\t")
	s = rtfHexEsc.ReplaceAllString(s, "")
	s = rtfControl.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "{", "")
	s = strings.ReplaceAll(s, "}", "")
	s = rtfBlanks.ReplaceAllString(s, "\n\n")

	return extract.FromPages([]string{strings.TrimSpace(s)}, "native"), nil
}
