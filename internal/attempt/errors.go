package attempt

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/retrieval-cli/internal/resilience"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/validate"
)

// Kind classifies a mutation failure.
type Kind int

const (
	// KindUnknown is the catch-all for unclassified failures.
	KindUnknown Kind = iota
	// KindValidationFailed means the form was rejected before anything changed.
	KindValidationFailed
	// KindNotFound means a referenced attempt does not exist.
	KindNotFound
	// KindInvalidTransition means the requested status is unreachable from
	// the attempt's current status.
	KindInvalidTransition
	// KindTransientFailure means the backend was unavailable or the attempt
	// changed underneath the edit. Nothing was written; the caller may retry.
	KindTransientFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidationFailed:
		return "validation_failed"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// Error is returned by every Engine operation that fails.
type Error struct {
	Kind      Kind
	AttemptID string
	// Fields is set for KindValidationFailed.
	Fields validate.FieldErrors
	Err    error
}

func (e *Error) Error() string {
	msg := "attempt: " + e.Kind.String()
	if e.AttemptID != "" {
		msg += " " + e.AttemptID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if len(e.Fields) > 0 {
		msg += fmt.Sprintf(": %d invalid field(s)", len(e.Fields))
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Errors that did not come from
// the engine are classified by their cause.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return classify(err)
}

// FieldErrorsOf returns the field errors carried by a validation failure.
func FieldErrorsOf(err error) validate.FieldErrors {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

// IsRetryable reports whether retrying the same request could succeed.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransientFailure
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return KindTransientFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindUnknown
	case resilience.IsTransient(err):
		return KindTransientFailure
	default:
		return KindUnknown
	}
}

func wrapErr(id string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: classify(err), AttemptID: id, Err: err}
}
