package valueobject

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the lending core wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrIllegalTransition      = errors.New("illegal state transition")
	ErrIntegrityViolation     = errors.New("integrity violation")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError is returned when an action is attempted from a status that
// does not allow it.
type TransitionError struct {
	Entity string
	Action string
	Status string
}

// NewTransitionError builds a TransitionError naming the current status.
func NewTransitionError(entity, action, status string) *TransitionError {
	return &TransitionError{Entity: entity, Action: action, Status: status}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.Status)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IntegrityError reports a running balance that would become inconsistent.
type IntegrityError struct {
	Target string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %s", e.Target, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityViolation }

// NewIntegrityError builds an IntegrityError.
func NewIntegrityError(target, format string, args ...any) *IntegrityError {
	return &IntegrityError{Target: target, Detail: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the missing entity and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}
