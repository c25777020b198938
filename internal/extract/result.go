package extract

import "strings"

type Job struct {
	PresignedURL string
	LocalPath    string
	FileName     string
	MIMEType     string
	FileSize     int64
	Options      map[string]any
}

// Page is one page/slide/section-equivalent unit of extracted text.
type Page struct {
	PageNum int    `json:"pageNum"`
	Text    string `json:"text"`
}

// Result is the extraction output contract. Pages is never empty: when no
// text could be recovered it carries exactly one sentinel page, so callers
// always have something to render.
type Result struct {
	PageCount               int               `json:"pageCount"`
	Pages                   []Page            `json:"pages"`
	FullText                string            `json:"fullText"`
	Quality                 string            `json:"quality"`
	Method                  string            `json:"method"`
	NeedsManualIntervention bool              `json:"needsManualIntervention"`
	Metadata                map[string]string `json:"metadata,omitempty"`
	WordCount               int               `json:"wordCount"`
	CharCount               int               `json:"charCount"`
}

// NoTextSentinel is the page body used when extraction yields nothing.
const NoTextSentinel = "[No text could be extracted. The document may be scanned, image-only, password-protected, or corrupted.]"

// FromPages builds a Result from page texts, enforcing the sentinel-page
// invariant and filling the derived fields.
func FromPages(pageTexts []string, method string) Result {
	var pages []Page
	var joined []string
	for _, t := range pageTexts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		pages = append(pages, Page{PageNum: len(pages) + 1, Text: t})
		joined = append(joined, t)
	}

	if len(pages) == 0 {
		return Result{
			PageCount: 1,
			Pages:     []Page{{PageNum: 1, Text: NoTextSentinel}},
			FullText:  "",
			Method:    method,
		}
	}

	full := strings.Join(joined, "\n\n")
	wc, cc := BuildCounts(full)
	return Result{
		PageCount: len(pages),
		Pages:     pages,
		FullText:  full,
		Method:    method,
		WordCount: wc,
		CharCount: cc,
	}
}

func BuildCounts(text string) (wordCount int, charCount int) {
	charCount = len([]rune(text))
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if inWord {
				wordCount++
				inWord = false
			}
			continue
		}
		inWord = true
	}
	if inWord {
		wordCount++
	}
	return
}
