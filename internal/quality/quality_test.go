package quality

import (
	"strings"
	"testing"
)

func TestAssessGoodProse(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("The quick brown fox jumps over the lazy dog and runs away with the ball. ", 10)
	m := Assess(text, Thresholds{})
	if m.Class != Good {
		t.Fatalf("expected good, got %s (ratio=%.2f hits=%d)", m.Class, m.LetterRatio, m.CommonWordHits)
	}
	if m.CommonWordHits < 2 {
		t.Fatalf("expected common-word hits, got %d", m.CommonWordHits)
	}
}

func TestAssessGarbageSymbols(t *testing.T) {
	t.Parallel()

	m := Assess(strings.Repeat("#$%^&*()123 ", 50), Thresholds{})
	if m.Class != Garbage {
		t.Fatalf("expected garbage, got %s (ratio=%.2f)", m.Class, m.LetterRatio)
	}
}

func TestAssessEmptyIsGarbage(t *testing.T) {
	t.Parallel()

	if m := Assess("", Thresholds{}); m.Class != Garbage {
		t.Fatalf("empty text must be garbage, got %s", m.Class)
	}
	if m := Assess("   \n\t  ", Thresholds{}); m.Class != Garbage {
		t.Fatalf("whitespace-only text must be garbage, got %s", m.Class)
	}
}

func TestAssessPoorLetterSoup(t *testing.T) {
	t.Parallel()

	// Plenty of letters but no recognizable words: letter ratio keeps it
	// out of garbage, missing common words keep it out of good.
	m := Assess(strings.Repeat("xkcd qzjv wmpl brtk ", 50), Thresholds{})
	if m.Class != Poor {
		t.Fatalf("expected poor, got %s (ratio=%.2f hits=%d)", m.Class, m.LetterRatio, m.CommonWordHits)
	}
}

func TestAssessCommonWordRescuesLowRatio(t *testing.T) {
	t.Parallel()

	// Below the poor letter-ratio cutoff but a real function word is
	// present, which should hold the class at poor rather than garbage.
	m := Assess("1234567890 1234567890 the 1234567890 1234567890 123456", Thresholds{})
	if m.Class != Poor {
		t.Fatalf("expected poor, got %s (ratio=%.2f hits=%d)", m.Class, m.LetterRatio, m.CommonWordHits)
	}
}

func TestAssessWholeWordMatching(t *testing.T) {
	t.Parallel()

	// "theory" and "brand" contain "the"/"and" as substrings but not as
	// whole words.
	m := Assess(strings.Repeat("theory brand notxyz ", 30), Thresholds{})
	if m.CommonWordHits != 0 {
		t.Fatalf("substring matches counted as words: %d", m.CommonWordHits)
	}
}

func TestAssessCustomThresholds(t *testing.T) {
	t.Parallel()

	text := "the cat and dog sat"
	strict := Assess(text, Thresholds{GoodLetterRatio: 0.99})
	if strict.Class == Good {
		t.Fatalf("strict ratio should demote short prose, got %s", strict.Class)
	}
	lenient := Assess(text, Thresholds{GoodLetterRatio: 0.10, MinCommonWords: 1})
	if lenient.Class != Good {
		t.Fatalf("lenient thresholds should accept prose, got %s", lenient.Class)
	}
}
