package aitool

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions across the module.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrToolNotFound indicates the requested tool id was not found in a
	// registry snapshot or fallback lookup context.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidDescriptor indicates a descriptor failed its load-time
	// structural validation.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrInvalidSchema indicates a malformed schema fragment supplied by a
	// descriptor. This is an authoring bug, never a runtime data error.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrRegistryFrozen indicates an attempt to register an adapter after
	// the adapter registry was frozen for serving.
	ErrRegistryFrozen = errors.New("adapter registry is frozen")

	// ErrDuplicateID indicates two descriptors in one snapshot share an id.
	ErrDuplicateID = errors.New("duplicate tool id")
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a resource was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to schema or descriptor validation.
	KindValidation = "validation"

	// KindExecution represents errors that occur during tool execution.
	KindExecution = "execution"

	// KindConfiguration represents fatal descriptor or adapter configuration errors.
	KindConfiguration = "configuration"

	// KindNetwork represents errors related to network operations.
	KindNetwork = "network"

	// KindTimeout represents errors related to operation timeouts.
	KindTimeout = "timeout"

	// KindInternal represents internal module errors.
	KindInternal = "internal"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category
// of error.
//
// Error implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
type Error struct {
	// Op is the operation that failed (e.g., "engine.Execute", "descriptor.LoadFile").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindValidation).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	// This can include tool ids, field paths, or other debugging information.
	Context map[string]any
}

// Error implements the error interface, returning a formatted message
// that includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("aitool: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("aitool: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("aitool: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and
// errors.As() to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Error, allowing comparison based on
// the underlying error or on Op/Kind of another *Error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			return t.Op == "" || e.Op == t.Op
		}
		return false
	}

	return errors.Is(e.Err, target)
}

// E constructs a structured Error. It is a convenience for the common
// case of wrapping a cause with an operation and kind.
func E(op, kind string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// WithContext attaches context key-value pairs to the error and returns
// the same instance for chaining.
func (e *Error) WithContext(ctx map[string]any) *Error {
	e.Context = ctx
	return e
}
