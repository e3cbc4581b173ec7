package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced record is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTopology indicates the block tree input is malformed.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrValidation indicates rejected campaign or coefficient input.
	ErrValidation = errors.New("validation failed")
	// ErrCoefficientScale marks a decimal coefficient above 1, usually a
	// percentage typed into the decimal field.
	ErrCoefficientScale = errors.New("coefficient above 1 in decimal format")
)

// NotFoundError reports a missing record of a given kind.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidTopologyError reports a node or unit that cannot be placed in a tree.
type InvalidTopologyError struct {
	NodeID int64
	Reason string
	Err    error
}

func (e *InvalidTopologyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid topology at node %d: %s: %v", e.NodeID, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid topology at node %d: %s", e.NodeID, e.Reason)
}

// Is matches ErrInvalidTopology.
func (e *InvalidTopologyError) Is(target error) bool {
	return target == ErrInvalidTopology
}

func (e *InvalidTopologyError) Unwrap() error {
	return e.Err
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid is shorthand for a ValidationError without a cause.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
