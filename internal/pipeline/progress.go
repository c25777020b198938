package pipeline

// Progress is a coarse milestone report. Percent never decreases over the
// life of one extraction.
type Progress struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressFunc receives milestone updates. May be nil.
type ProgressFunc func(Progress)

// tracker enforces monotonic percentages so interleaved stages cannot
// report backwards movement.
type tracker struct {
	sink ProgressFunc
	last int
	step int
}

func newTracker(sink ProgressFunc) *tracker {
	return &tracker{sink: sink}
}

func (t *tracker) emit(percent int, message string) {
	if percent < t.last {
		percent = t.last
	}
	t.last = percent
	if t.sink != nil {
		t.sink(Progress{Percent: percent, Message: message})
	}
}

// emitStep spreads repeated calls (one per OCR provider) across [from, max],
// advancing a fixed stride per call without ever passing max.
func (t *tracker) emitStep(from, max int, message string) {
	const stride = 5
	p := from + t.step*stride
	if p > max {
		p = max
	}
	t.step++
	t.emit(p, message)
}
