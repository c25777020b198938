package pages

import (
	"strings"
	"testing"
)

func TestDedupSentencesRemovesOverlapRepeat(t *testing.T) {
	t.Parallel()

	sentence := "This sentence was duplicated by the window overlap."
	text := "Start of the document body here. " + sentence + " " + sentence + " End of document."
	got := DedupSentences(text)

	if n := strings.Count(got, "duplicated by the window overlap"); n != 1 {
		t.Fatalf("expected 1 occurrence after dedup, got %d: %q", n, got)
	}
	if !strings.Contains(got, "End of document.") {
		t.Fatalf("unique sentence lost: %q", got)
	}
}

func TestDedupSentencesCaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	text := "The network device rebooted at midnight. THE  NETWORK   device rebooted at midnight."
	got := DedupSentences(text)
	if n := strings.Count(strings.ToLower(got), "rebooted at midnight"); n != 1 {
		t.Fatalf("case/whitespace variant not deduped: %q", got)
	}
}

func TestDedupSentencesKeepsShortRepeats(t *testing.T) {
	t.Parallel()

	got := DedupSentences("Yes. Yes. Yes.")
	if n := strings.Count(got, "Yes."); n != 3 {
		t.Fatalf("short repeats must survive, got %d in %q", n, got)
	}
}

func TestDedupSentencesEmpty(t *testing.T) {
	t.Parallel()

	if got := DedupSentences("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestPaginateSnapsToSentenceBoundary(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a reasonably long sentence used to fill out the page body with text. ")
	}
	got := Paginate(sb.String(), 4)
	if len(got) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(got))
	}
	for i, p := range got[:len(got)-1] {
		if !strings.HasSuffix(strings.TrimSpace(p), ".") {
			t.Fatalf("page %d does not end at a sentence boundary: %q", i+1, p[len(p)-30:])
		}
	}
}

func TestPaginateShortTextSinglePage(t *testing.T) {
	t.Parallel()

	got := Paginate("Short text.", 10)
	if len(got) != 1 || got[0] != "Short text." {
		t.Fatalf("short text must stay on one page, got %v", got)
	}
}

func TestPaginateEmpty(t *testing.T) {
	t.Parallel()

	if got := Paginate("  ", 3); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestPaginateFloorPreventsConfetti(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 100) // ~500 chars
	got := Paginate(text, 50)
	if len(got) > 3 {
		t.Fatalf("page floor violated, got %d pages", len(got))
	}
}

func TestPaginateNoTerminatorsStillCuts(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 1000)
	got := Paginate(text, 2)
	if len(got) != 2 {
		t.Fatalf("expected hard cut into 2 pages, got %d", len(got))
	}
	if len(got[0])+len(got[1]) != 1000 {
		t.Fatalf("characters lost across cut: %d + %d", len(got[0]), len(got[1]))
	}
}

func TestFixOCRSpacingIPAddress(t *testing.T) {
	t.Parallel()

	got := FixOCRSpacing("ip address 192. 168. 1. 1 255. 255. 255. 0")
	if !strings.Contains(got, "192.168.1.1") || !strings.Contains(got, "255.255.255.0") {
		t.Fatalf("split IPs not re-glued: %q", got)
	}
}

func TestFixOCRSpacingInterfaceName(t *testing.T) {
	t.Parallel()

	got := FixOCRSpacing("inter face GigabitEthernet 0/ 1")
	if !strings.Contains(got, "interface GigabitEthernet0/1") {
		t.Fatalf("interface name not re-glued: %q", got)
	}
}

func TestFixOCRSpacingCommandKeywords(t *testing.T) {
	t.Parallel()

	got := FixOCRSpacing("switch port mode access and host name core1 with running -config saved")
	for _, want := range []string{"switchport", "hostname", "running-config"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestFixOCRSpacingLeavesProseAlone(t *testing.T) {
	t.Parallel()

	in := "The meeting is at 3. Everyone should attend."
	if got := FixOCRSpacing(in); got != in {
		t.Fatalf("prose mangled: %q", got)
	}
}
