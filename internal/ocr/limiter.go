package ocr

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent OCR calls across all in-flight extractions.
// Provider APIs are the expensive shared resource here, not CPU.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter returns a limiter allowing max concurrent calls; max <= 0
// means unlimited.
func NewLimiter(max int64) *Limiter {
	if max <= 0 {
		return &Limiter{}
	}
	return &Limiter{sem: semaphore.NewWeighted(max)}
}

func (l *Limiter) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	if l == nil || l.sem == nil {
		return fn()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return fn()
}
