package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so the orchestrator can decide
// between retrying, failing the job, and surfacing a terminal state.
type ErrorKind string

const (
	// KindTransient covers network hiccups, rate limits and other
	// failures worth retrying with backoff.
	KindTransient ErrorKind = "transient"

	// KindUnavailable means the source is permanently gone
	// (removed video, private video). Never retried.
	KindUnavailable ErrorKind = "source_unavailable"

	// KindRestricted means the source exists but cannot be fetched
	// (age-restricted, region-blocked). Never retried.
	KindRestricted ErrorKind = "source_restricted"

	// KindModelLoad means the recognition model for a tier could not be
	// loaded. Permanent for that tier, other tiers are unaffected.
	KindModelLoad ErrorKind = "model_load"

	// KindCancelled marks a cooperative cancellation. Not a failure.
	KindCancelled ErrorKind = "cancelled"

	// KindNotReady is returned by read operations against a job that
	// has not reached READY (or whose transcript has been evicted).
	KindNotReady ErrorKind = "job_not_ready"
)

// Error is a classified pipeline error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a classification. A nil err yields nil.
func E(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification of err. Unclassified errors are
// reported as transient so the retry path gets a chance at them.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}

// Retryable reports whether the orchestrator should retry after err.
func Retryable(err error) bool {
	return KindOf(err) == KindTransient
}