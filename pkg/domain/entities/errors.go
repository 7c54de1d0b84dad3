package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidStateTransition is returned when a transition is attempted from a disallowed status
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrValidation is returned for malformed or missing identifiers and arguments
	ErrValidation = errors.New("validation failure")
	// ErrVersionMismatch is returned when a stale copy of an aggregate is saved
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrNotFound is returned when an aggregate does not exist
	ErrNotFound = errors.New("not found")
)

// InvalidStateTransitionError describes a rejected lifecycle transition
type InvalidStateTransitionError struct {
	Operation string
	From      RequisitionStatus
	Allowed   []RequisitionStatus
}

func (e *InvalidStateTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("cannot %s requisition in status %s, allowed: %s",
		e.Operation, e.From, strings.Join(allowed, ", "))
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// ValidationError describes a malformed argument
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
