package chunk

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		size int64
		want SizeClass
	}{
		{0, Small},
		{1024, Small},
		{SmallMaxBytes, Small},
		{SmallMaxBytes + 1, Medium},
		{MediumMaxBytes, Medium},
		{MediumMaxBytes + 1, Large},
	}
	for _, c := range cases {
		if got := Classify(c.size); got != c.want {
			t.Fatalf("Classify(%d) = %s, want %s", c.size, got, c.want)
		}
	}
}

func TestPlanSmallSingleWindow(t *testing.T) {
	t.Parallel()

	ws, class, truncated := Plan(4096)
	if class != Small || truncated {
		t.Fatalf("unexpected class=%s truncated=%v", class, truncated)
	}
	if len(ws) != 1 || ws[0].Start != 0 || ws[0].End != 4096 {
		t.Fatalf("expected one full window, got %v", ws)
	}
}

func TestPlanMediumWindowsOverlap(t *testing.T) {
	t.Parallel()

	size := int64(SmallMaxBytes + WindowBytes) // forces multiple windows
	ws, class, truncated := Plan(size)
	if class != Medium || truncated {
		t.Fatalf("unexpected class=%s truncated=%v", class, truncated)
	}
	if len(ws) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(ws))
	}
	for i := 1; i < len(ws); i++ {
		gap := ws[i].Start - ws[i-1].Start
		if gap != WindowBytes-WindowOverlapBytes {
			t.Fatalf("window %d stride = %d, want %d", i, gap, WindowBytes-WindowOverlapBytes)
		}
		if ws[i].Start >= ws[i-1].End {
			t.Fatalf("windows %d and %d do not overlap", i-1, i)
		}
	}
	last := ws[len(ws)-1]
	if last.End != size {
		t.Fatalf("last window ends at %d, want %d", last.End, size)
	}
}

func TestPlanLargeTruncatesAtCap(t *testing.T) {
	t.Parallel()

	ws, class, truncated := Plan(LocalFallbackCapBytes + 1<<20)
	if class != Large {
		t.Fatalf("expected large, got %s", class)
	}
	if !truncated {
		t.Fatalf("expected truncation past the local cap")
	}
	if last := ws[len(ws)-1]; last.End != LocalFallbackCapBytes {
		t.Fatalf("last window ends at %d, want cap %d", last.End, int64(LocalFallbackCapBytes))
	}
}

func TestPlanZeroSize(t *testing.T) {
	t.Parallel()

	ws, _, _ := Plan(0)
	if len(ws) != 0 {
		t.Fatalf("expected no windows for empty file, got %v", ws)
	}
}

func TestReadWindow(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader([]byte("0123456789"))
	got, err := ReadWindow(src, Window{Start: 2, End: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "2345" {
		t.Fatalf("expected 2345, got %q", got)
	}

	// Window past EOF shrinks instead of failing.
	got, err = ReadWindow(src, Window{Start: 8, End: 16})
	if err != nil {
		t.Fatalf("unexpected error at EOF: %v", err)
	}
	if string(got) != "89" {
		t.Fatalf("expected 89, got %q", got)
	}
}

func TestTrackerByteBudget(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Budget{MaxBytes: 100})
	tr.Add(50)
	if tr.Exceeded() {
		t.Fatalf("budget exceeded too early")
	}
	tr.Add(50)
	if !tr.Exceeded() {
		t.Fatalf("budget should be exceeded at the limit")
	}
	if tr.BytesRead() != 100 {
		t.Fatalf("expected 100 bytes read, got %d", tr.BytesRead())
	}
}

func TestTrackerTimeBudget(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Budget{MaxDuration: time.Minute})
	if tr.Exceeded() {
		t.Fatalf("fresh tracker must not be exceeded")
	}
	tr.now = func() time.Time { return tr.started.Add(2 * time.Minute) }
	if !tr.Exceeded() {
		t.Fatalf("expired deadline not detected")
	}
}

func TestTrackerUnlimited(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Budget{})
	tr.Add(1 << 40)
	if tr.Exceeded() {
		t.Fatalf("zero budget means unlimited")
	}
}

func TestSplitTextStride(t *testing.T) {
	t.Parallel()

	chunks, err := SplitText("abcdefghij", 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"abcd", "defg", "ghij"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %v, got %v", want, chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplitTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := SplitText("short", 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("expected one whole chunk, got %v", chunks)
	}
}

func TestSplitTextBlankInput(t *testing.T) {
	t.Parallel()

	chunks, err := SplitText("   \n  ", 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("blank input must yield no chunks, got %v", chunks)
	}
}

func TestSplitTextValidation(t *testing.T) {
	t.Parallel()

	if _, err := SplitText("abc", 4, 4); err == nil {
		t.Fatalf("overlap equal to chunk size must fail")
	}
	if _, err := SplitText("abc", 4, 5); err == nil {
		t.Fatalf("overlap larger than chunk size must fail")
	}
	if _, err := SplitText("abc", 0, 0); err == nil {
		t.Fatalf("zero chunk size must fail")
	}
	if _, err := SplitText("abc", 4, -1); err == nil {
		t.Fatalf("negative overlap must fail")
	}
}

func TestSplitTextMultibyte(t *testing.T) {
	t.Parallel()

	chunks, err := SplitText("héllo wörld", 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range chunks {
		if strings.ContainsRune(c, '�') {
			t.Fatalf("multi-byte rune split across chunks: %q", c)
		}
	}
}
