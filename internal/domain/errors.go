package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals missing or malformed user input, raised before dispatch.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyParentFilter signals an instances query whose parent segment is empty.
	ErrEmptyParentFilter = errors.New("empty parent filter")
	// ErrSearchTransport signals a worker-reported failure or a broken worker channel.
	ErrSearchTransport = errors.New("search transport error")
	// ErrStaleResponse marks a response that no longer correlates to the current request.
	ErrStaleResponse = errors.New("stale response")
	// ErrChannelClosed signals a dispatch on a closed worker channel.
	ErrChannelClosed = errors.New("worker channel closed")
	// ErrResponseTimeout signals that the worker did not answer in time.
	ErrResponseTimeout = errors.New("worker response timeout")
	// ErrDatasetNotFound signals an unknown catalog version or missing dataset file.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrSessionNotFound signals an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrItemNotFound signals an identity absent from the current result list.
	ErrItemNotFound = errors.New("item not found")
	// ErrExportNotOpen signals an export confirmation without an open export.
	ErrExportNotOpen = errors.New("export not open")
	// ErrNothingSelected signals an export confirmation with an empty selection.
	ErrNothingSelected = errors.New("nothing selected")
)

// Field names used as keys of the per-field error map.
const (
	FieldQuery   = "query"
	FieldVersion = "version"
	FieldMode    = "mode"
	FieldGlobal  = "global"
	FieldAction  = "action"
	FieldPage    = "page"
)

// ValidationError reports invalid input for a single form field.
type ValidationError struct {
	Field   string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.cause }

// NewValidationError creates a field validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewEmptyParentFilterError creates the validation error for an empty parent segment.
func NewEmptyParentFilterError() error {
	return &ValidationError{
		Field:   FieldQuery,
		Message: "parent filter required before ':'",
		cause:   ErrEmptyParentFilter,
	}
}
