package extract

import (
	"errors"
	"fmt"
)

// Kind partitions extraction failures by how the orchestrator reacts to
// them. Container and exhaustion failures surface to the caller as result
// messages; everything else converts to "try the next strategy".
type Kind string

const (
	KindInvalidContainer   Kind = "invalid_container"
	KindExtractionTooSmall Kind = "extraction_too_small"
	KindOcrProvider        Kind = "ocr_provider"
	KindOcrExhausted       Kind = "ocr_exhausted"
	KindBudgetExceeded     Kind = "budget_exceeded"
)

type Error struct {
	Kind     Kind
	Message  string
	Provider string // set for ocr_provider failures
	Err      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the extraction kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func NewInvalidContainer(format string, err error) *Error {
	msg := fmt.Sprintf("file is not a valid %s container", format)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Kind: KindInvalidContainer, Message: msg, Err: err}
}

func NewTooSmall(got, min int) *Error {
	return &Error{
		Kind:    KindExtractionTooSmall,
		Message: fmt.Sprintf("native extraction produced %d characters, below the %d minimum", got, min),
	}
}

func NewOcrProvider(provider string, err error) *Error {
	return &Error{Kind: KindOcrProvider, Provider: provider, Message: err.Error(), Err: err}
}

func NewOcrExhausted() *Error {
	return &Error{
		Kind:    KindOcrExhausted,
		Message: "all OCR providers failed or are unconfigured; the document may be scanned, protected, or corrupted",
	}
}

func NewBudgetExceeded(bytesRead int64) *Error {
	return &Error{
		Kind:    KindBudgetExceeded,
		Message: fmt.Sprintf("processing budget reached after %d bytes", bytesRead),
	}
}
