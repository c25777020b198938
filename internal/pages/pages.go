// Package pages assembles deduplicated, page-shaped text from the raw
// fragment stream. Overlapping read windows and overlapping OCR chunks
// deliberately reproduce boundary text, so sentence-level dedup runs before
// pagination, and pagination snaps page cuts to sentence boundaries.
package pages

import (
	"strings"
)

const (
	// minDedupLen protects legitimately short repeated sentences such as
	// headings or "Yes." answers from being dropped.
	minDedupLen = 20

	// minPageChars is the pagination floor. Dividing a short text by a
	// large estimated page count must not produce confetti pages.
	minPageChars = 200
)

// DedupSentences removes repeated sentence-like units, keeping the first
// occurrence. Units are compared case-insensitively with whitespace
// collapsed; only units longer than a short threshold participate, so the
// pass removes chunk-overlap artifacts without touching short repeats.
func DedupSentences(text string) string {
	units := splitSentences(text)
	if len(units) < 2 {
		return strings.TrimSpace(text)
	}

	seen := make(map[string]struct{}, len(units))
	var kept []string
	for _, u := range units {
		key := normalizeKey(u)
		if len(key) > minDedupLen {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		kept = append(kept, strings.TrimSpace(u))
	}
	return strings.Join(kept, " ")
}

// Paginate slices text into roughly pageCount pages. The target page
// length is total/pageCount with a floor; each cut snaps backward to the
// nearest sentence terminator found within half the target, so pages break
// between sentences when the text has any.
func Paginate(text string, pageCount int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if pageCount < 1 {
		pageCount = 1
	}

	runes := []rune(trimmed)
	target := len(runes) / pageCount
	if target < minPageChars {
		target = minPageChars
	}
	if len(runes) <= target {
		return []string{trimmed}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + target
		if end >= len(runes) {
			out = appendPage(out, string(runes[start:]))
			break
		}
		cut := end
		for i := end; i > end-target/2; i-- {
			if isTerminator(runes[i-1]) {
				cut = i
				break
			}
		}
		out = appendPage(out, string(runes[start:cut]))
		start = cut
	}
	if len(out) == 0 {
		out = []string{trimmed}
	}
	return out
}

func appendPage(pages []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return pages
	}
	return append(pages, s)
}

// splitSentences cuts text into sentence-like units. Terminal punctuation
// and newlines both end a unit; newlines matter because config dumps and
// CLI transcripts rarely carry punctuation.
func splitSentences(text string) []string {
	var units []string
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		if isTerminator(r) || r == '\n' {
			if u := strings.TrimSpace(sb.String()); u != "" {
				units = append(units, u)
			}
			sb.Reset()
		}
	}
	if u := strings.TrimSpace(sb.String()); u != "" {
		units = append(units, u)
	}
	return units
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
