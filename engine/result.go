package engine

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/aitool/descriptor"
)

// FailureKind distinguishes how an execution ultimately failed.
// Classified and exhausted failures are runtime conditions; the
// remaining kinds are fatal configuration errors or cancellation and
// are never retried regardless of policy.
type FailureKind string

const (
	// FailureClassified is a classified runtime error surfaced without
	// (or instead of) recovery.
	FailureClassified FailureKind = "classified"

	// FailureRecoveryExhausted means every attempt permitted by the
	// recovery policy failed; the last classified error is wrapped.
	FailureRecoveryExhausted FailureKind = "recovery_exhausted"

	// FailureInvalidSchema means the descriptor itself carries a
	// malformed schema fragment. Authoring bug, never retried.
	FailureInvalidSchema FailureKind = "invalid_schema"

	// FailureFallbackIncompatible means an AlternateTool target's
	// parameter schema rejected the validated parameters.
	FailureFallbackIncompatible FailureKind = "fallback_incompatible"

	// FailureFallbackLoop means fallback execution exceeded the fixed
	// depth bound.
	FailureFallbackLoop FailureKind = "fallback_loop_detected"

	// FailureCancelled means the caller's context was cancelled during
	// dispatch or during a declared wait interval.
	FailureCancelled FailureKind = "cancelled"
)

// ExecutionError is the typed error carried on a failed Result.
type ExecutionError struct {
	// Kind says how the execution failed.
	Kind FailureKind

	// Type is the classified error type of the (last) failure, when one
	// exists.
	Type descriptor.ErrorType

	// Message is the originating failure message.
	Message string

	// Attempts is the number of dispatch attempts performed under the
	// governing recovery policy.
	Attempts int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	switch e.Kind {
	case FailureRecoveryExhausted:
		return fmt.Sprintf("recovery exhausted after %d attempts (%s): %s", e.Attempts, e.Type, e.Message)
	case FailureClassified:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying cause error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether this is a configuration error that no policy
// may retry.
func (e *ExecutionError) Fatal() bool {
	switch e.Kind {
	case FailureInvalidSchema, FailureFallbackIncompatible, FailureFallbackLoop:
		return true
	default:
		return false
	}
}

// Attempt is the record of one dispatch. It is owned by the engine for
// the duration of one Execute call and returned on the Result; nothing
// is persisted.
type Attempt struct {
	// Index is the 1-based position in the invocation's attempt sequence.
	Index int `json:"index"`

	// ToolID is the tool actually dispatched; fallback attempts carry
	// the fallback's id.
	ToolID string `json:"tool_id"`

	// StartedAt is when the dispatch began.
	StartedAt time.Time `json:"started_at"`

	// Latency is the wall-clock duration of the dispatch.
	Latency time.Duration `json:"latency"`

	// Success reports whether the attempt produced a valid output.
	Success bool `json:"success"`

	// ErrorType is the classified failure type when Success is false.
	ErrorType descriptor.ErrorType `json:"error_type,omitempty"`

	// Error is the failure message when Success is false.
	Error string `json:"error,omitempty"`
}

// Result is the caller-visible outcome of one Execute call. Exactly one
// of three shapes holds: Success with Output, failure with Err, or
// NeedsInput with Message (a terminal, non-exceptional outcome from a
// PromptUser policy).
type Result struct {
	// Success reports whether execution produced a validated output.
	Success bool `json:"success"`

	// ToolID is the tool that produced the final outcome. When a
	// fallback tool succeeded, this is the fallback's id.
	ToolID string `json:"tool_id"`

	// Output is the validated (and default-filled) tool output.
	Output any `json:"output,omitempty"`

	// Err describes the failure when Success and NeedsInput are false.
	Err *ExecutionError `json:"error,omitempty"`

	// Attempts is the ordered record of every dispatch performed,
	// fallback attempts included.
	Attempts []Attempt `json:"attempts"`

	// NeedsInput indicates a PromptUser policy terminated execution
	// pending an external decision.
	NeedsInput bool `json:"needs_input,omitempty"`

	// Message carries the PromptUser message when NeedsInput is set.
	Message string `json:"message,omitempty"`

	// RetryPossible indicates the invocation may be retried once the
	// needed input is supplied.
	RetryPossible bool `json:"retry_possible,omitempty"`
}

// LookupFunc resolves a tool id to its descriptor within the caller's
// registry context. It backs AlternateTool fallback resolution; a miss
// degrades the recovery to Fail.
type LookupFunc func(id string) (*descriptor.Descriptor, bool)

// Options control one Execute call. The zero value gives the default
// behavior: input validation, output validation, and error recovery all
// enabled, with the effective timeout resolved from the descriptor or
// the engine default.
type Options struct {
	// SkipInputValidation disables parameter-schema validation.
	SkipInputValidation bool

	// SkipOutputValidation disables return-schema validation.
	SkipOutputValidation bool

	// DisableRecovery surfaces the first classified failure without
	// consulting recovery policies.
	DisableRecovery bool

	// TimeoutOverride replaces the descriptor's declared per-attempt
	// timeout when positive.
	TimeoutOverride time.Duration

	// Lookup resolves fallback tool ids for AlternateTool policies.
	// When nil, AlternateTool degrades to Fail.
	Lookup LookupFunc
}
