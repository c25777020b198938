// Package chunk decides how a document's bytes are read. Small files are
// scanned in one pass, medium files through fixed overlapping windows, and
// large files are preferred on the remote path with a capped local
// fallback. It also carries the generic text chunker used by OCR providers
// with per-call payload ceilings.
package chunk

import (
	"fmt"
	"io"
	"time"
)

type SizeClass string

const (
	Small  SizeClass = "small"
	Medium SizeClass = "medium"
	Large  SizeClass = "large"
)

const (
	// SmallMaxBytes is the whole-buffer ceiling. At or under it the file
	// is read in a single pass.
	SmallMaxBytes = 5 << 20

	// MediumMaxBytes is the windowed-read ceiling.
	MediumMaxBytes = 50 << 20

	// LocalFallbackCapBytes bounds how much of a large file the local
	// path will read when no remote processor is available. Anything past
	// it is dropped with a partial-extraction note.
	LocalFallbackCapBytes = 100 << 20

	// WindowBytes and WindowOverlapBytes define the medium read pattern.
	// The overlap keeps text spanning a window boundary visible to both
	// sides; the duplicate extraction is removed downstream.
	WindowBytes        = 2 << 20
	WindowOverlapBytes = 10 << 10
)

// Classify maps a byte size onto the read strategy.
func Classify(size int64) SizeClass {
	switch {
	case size <= SmallMaxBytes:
		return Small
	case size <= MediumMaxBytes:
		return Medium
	default:
		return Large
	}
}

// Window is a half-open byte view [Start, End) of the source file.
type Window struct {
	Index int
	Start int64
	End   int64
}

func (w Window) Len() int64 { return w.End - w.Start }

// Plan returns the read windows for a file of the given size. Small files
// get a single window covering everything. Medium files get fixed windows
// with overlap. Large files get the same windowed plan but truncated at
// the local fallback cap; Truncated reports whether bytes were dropped.
func Plan(size int64) (windows []Window, class SizeClass, truncated bool) {
	class = Classify(size)
	if size <= 0 {
		return nil, class, false
	}

	if class == Small {
		return []Window{{Index: 0, Start: 0, End: size}}, class, false
	}

	limit := size
	if class == Large && limit > LocalFallbackCapBytes {
		limit = LocalFallbackCapBytes
		truncated = true
	}

	stride := int64(WindowBytes - WindowOverlapBytes)
	idx := 0
	for start := int64(0); start < limit; start += stride {
		end := start + WindowBytes
		if end > limit {
			end = limit
		}
		windows = append(windows, Window{Index: idx, Start: start, End: end})
		idx++
		if end == limit {
			break
		}
	}
	return windows, class, truncated
}

// ReadWindow fills a buffer with the window's bytes. A short read at the
// end of the file shrinks the result rather than failing.
func ReadWindow(r io.ReaderAt, w Window) ([]byte, error) {
	if w.Len() <= 0 {
		return nil, fmt.Errorf("chunk: empty window %d [%d,%d)", w.Index, w.Start, w.End)
	}
	buf := make([]byte, w.Len())
	n, err := r.ReadAt(buf, w.Start)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("chunk: window %d read: %w", w.Index, err)
	}
	return buf[:n], nil
}

// Budget bounds a windowed read. Zero fields mean unlimited.
type Budget struct {
	MaxBytes    int64
	MaxDuration time.Duration
}

// Tracker accumulates consumption against a Budget. The orchestrator
// checks it between windows; exceeding the budget stops further reads but
// keeps everything extracted so far.
type Tracker struct {
	budget  Budget
	started time.Time
	read    int64
	now     func() time.Time
}

func NewTracker(b Budget) *Tracker {
	t := &Tracker{budget: b, now: time.Now}
	t.started = t.now()
	return t
}

func (t *Tracker) Add(n int64) { t.read += n }

func (t *Tracker) BytesRead() int64 { return t.read }

// Exceeded reports whether either limit has been crossed.
func (t *Tracker) Exceeded() bool {
	if t.budget.MaxBytes > 0 && t.read >= t.budget.MaxBytes {
		return true
	}
	if t.budget.MaxDuration > 0 && t.now().Sub(t.started) >= t.budget.MaxDuration {
		return true
	}
	return false
}
