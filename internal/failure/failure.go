// Package failure defines the download error taxonomy and the keyword based
// classifier that maps raw diagnostics to a remediation category.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies where in the pipeline an error originated
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindProbe            Kind = "probe"
	KindTransfer         Kind = "transfer"
	KindToolMissing      Kind = "tool_missing"
	KindAudioAcquisition Kind = "audio_acquisition"
	KindMux              Kind = "mux"
	KindCancelled        Kind = "cancelled"
)

// ErrCancelled marks a user cancellation. It is a distinct outcome, not an error
// to classify.
var ErrCancelled = errors.New("cancelled by user")

// Error is a pipeline failure with its kind and, when one exists, the temp file
// the user can resume from.
type Error struct {
	Kind     Kind
	Op       string
	Err      error
	TempPath string
}

// New creates a pipeline error
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a pipeline error from a format string
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithTemp returns a copy of the error carrying the temp path
func (e *Error) WithTemp(path string) *Error {
	cp := *e
	cp.TempPath = path
	return &cp
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, KindCancelled for cancellations, or
// KindUnknown for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if IsCancelled(err) {
		return KindCancelled
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// TempPathOf returns the temp path attached anywhere in the chain
func TempPathOf(err error) string {
	var fe *Error
	for errors.As(err, &fe) {
		if fe.TempPath != "" {
			return fe.TempPath
		}
		err = fe.Err
	}
	return ""
}

// IsCancelled reports whether err is a user cancellation
func IsCancelled(err error) bool {
	if errors.Is(err, ErrCancelled) {
		return true
	}
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindCancelled
}
