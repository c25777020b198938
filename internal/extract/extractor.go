package extract

import "context"

// Extractor is implemented by every file-type handler. SupportedTypes
// and SupportedExtensions feed the registry; Name and MaxFileSize are
// surfaced in health output and size-limit errors.
type Extractor interface {
	Extract(ctx context.Context, job Job) (Result, error)
	SupportedTypes() []string
	SupportedExtensions() []string
	Name() string
	MaxFileSize() int64
}

// WindowProgressFunc reports windowed-read progress as done of total.
type WindowProgressFunc func(done, total int)

const windowProgressOption = "windowProgress"

// WithWindowProgress returns a copy of job carrying fn, so chunked
// extractors can report per-window milestones without widening the
// Extractor interface. Extractors that read in one pass ignore it.
func WithWindowProgress(job Job, fn WindowProgressFunc) Job {
	if job.Options == nil {
		job.Options = make(map[string]any, 1)
	}
	job.Options[windowProgressOption] = fn
	return job
}

// WindowProgress returns the job's window-progress callback, or a no-op
// when the caller did not attach one.
func WindowProgress(job Job) WindowProgressFunc {
	if fn, ok := job.Options[windowProgressOption].(WindowProgressFunc); ok && fn != nil {
		return fn
	}
	return func(int, int) {}
}
