// Package quality scores extracted text and classifies it as good, poor, or
// garbage. The classification is the sole trigger for the OCR fallback
// chain, so the heuristics favor cheap, deterministic signals: the fraction
// of letters in a bounded sample and the presence of common function words.
package quality

import (
	"strings"
)

type Class string

const (
	Good    Class = "good"
	Poor    Class = "poor"
	Garbage Class = "garbage"
)

// Metrics is computed fresh on every assessment and never persisted.
type Metrics struct {
	LetterRatio    float64
	CommonWordHits int
	Class          Class
}

// Thresholds are tunable configuration, not semantic invariants. Zero
// values fall back to the defaults below.
type Thresholds struct {
	SampleBytes     int     // letters counted over at most this prefix
	GoodLetterRatio float64 // at or above: candidate for "good"
	PoorLetterRatio float64 // at or above: at least "poor"
	MinCommonWords  int     // common-word hits required for "good"
}

const (
	defaultSampleBytes     = 2000
	defaultGoodLetterRatio = 0.45
	defaultPoorLetterRatio = 0.20
	defaultMinCommonWords  = 2
)

// commonWords is a fixed small dictionary of frequent English function
// words, matched as whole-word substrings.
var commonWords = []string{
	"the", "and", "for", "that", "with", "this", "are", "was",
	"from", "have", "not", "you", "but", "his", "her", "they",
}

func (t Thresholds) withDefaults() Thresholds {
	if t.SampleBytes <= 0 {
		t.SampleBytes = defaultSampleBytes
	}
	if t.GoodLetterRatio <= 0 {
		t.GoodLetterRatio = defaultGoodLetterRatio
	}
	if t.PoorLetterRatio <= 0 {
		t.PoorLetterRatio = defaultPoorLetterRatio
	}
	if t.MinCommonWords <= 0 {
		t.MinCommonWords = defaultMinCommonWords
	}
	return t
}

// Assess computes the metrics for text under th. Empty or whitespace-only
// text is always garbage.
func Assess(text string, th Thresholds) Metrics {
	th = th.withDefaults()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Metrics{Class: Garbage}
	}

	m := Metrics{
		LetterRatio:    letterRatio(trimmed, th.SampleBytes),
		CommonWordHits: countCommonWords(trimmed),
	}

	switch {
	case m.LetterRatio >= th.GoodLetterRatio && m.CommonWordHits >= th.MinCommonWords:
		m.Class = Good
	case m.LetterRatio >= th.PoorLetterRatio || m.CommonWordHits > 0:
		m.Class = Poor
	default:
		m.Class = Garbage
	}
	return m
}

// letterRatio returns the fraction of ASCII letters among the first n bytes.
func letterRatio(s string, n int) float64 {
	if len(s) < n {
		n = len(s)
	}
	if n == 0 {
		return 0
	}
	letters := 0
	for i := 0; i < n; i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			letters++
		}
	}
	return float64(letters) / float64(n)
}

// countCommonWords counts dictionary words present as whole words in s,
// case-insensitively. Each dictionary entry counts at most once; the signal
// is presence, not frequency.
func countCommonWords(s string) int {
	lower := strings.ToLower(s)
	hits := 0
	for _, w := range commonWords {
		if containsWord(lower, w) {
			hits++
		}
	}
	return hits
}

func containsWord(s, w string) bool {
	from := 0
	for {
		idx := strings.Index(s[from:], w)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(w)
		beforeOK := start == 0 || !isAlpha(s[start-1])
		afterOK := end == len(s) || !isAlpha(s[end])
		if beforeOK && afterOK {
			return true
		}
		from = start + 1
	}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
