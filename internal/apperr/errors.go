// Package apperr holds the error categories shared by models, services and handlers.
// Specific errors carry one of the categories so callers can branch on errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks input the caller must fix (bad id format, disallowed waste type, ...).
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing record or lookup key.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that collides with existing active state.
	ErrConflict = errors.New("conflict")
)

// Error is a message tagged with a category. Error() returns only the message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func Validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

func Conflict(msg string) error { return &Error{Kind: ErrConflict, Msg: msg} }

// relabeled keeps the original error in the chain under an extra category.
type relabeled struct {
	kind error
	err  error
}

func (r *relabeled) Error() string { return r.err.Error() }

func (r *relabeled) Unwrap() []error { return []error{r.kind, r.err} }

// AsValidation re-labels err as a validation failure, keeping the original message and chain.
func AsValidation(err error) error {
	if err == nil || errors.Is(err, ErrValidation) {
		return err
	}
	return &relabeled{kind: ErrValidation, err: err}
}
