package queue

import (
	"fmt"
	"time"
)

// DefaultQueue is the list key workers drain when no queue name is
// configured.
const DefaultQueue = "aitool:invocations"

// Invocation is a single tool execution request submitted to a queue.
type Invocation struct {
	// ID is a UUID correlating the request with its outcome.
	ID string `json:"id"`

	// ToolID is the descriptor id of the tool to execute.
	ToolID string `json:"tool_id"`

	// Params are the raw input parameters. Workers validate them
	// against the tool's parameter schema before dispatch.
	Params map[string]any `json:"params"`

	// TimeoutMS optionally overrides the tool's per-attempt timeout.
	TimeoutMS int64 `json:"timeout_ms,omitempty"`

	// DisableRecovery surfaces the first classified failure without
	// consulting recovery policies.
	DisableRecovery bool `json:"disable_recovery,omitempty"`

	// ReplyChannel is the pub/sub channel the outcome is published to.
	ReplyChannel string `json:"reply_channel"`

	// SubmittedAt is the Unix timestamp in milliseconds when the
	// request was enqueued.
	SubmittedAt int64 `json:"submitted_at"`
}

// IsValid checks that the invocation has all required fields populated.
func (i *Invocation) IsValid() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if i.ToolID == "" {
		return fmt.Errorf("tool_id is required")
	}
	if i.ReplyChannel == "" {
		return fmt.Errorf("reply_channel is required")
	}
	if i.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", i.SubmittedAt)
	}
	return nil
}

// Age returns the duration since the invocation was enqueued. Useful
// for detecting stale requests and computing queue wait time.
func (i *Invocation) Age() time.Duration {
	if i.SubmittedAt <= 0 {
		return 0
	}
	return time.Duration(time.Now().UnixMilli()-i.SubmittedAt) * time.Millisecond
}

// Outcome is the published result of executing one Invocation. It is a
// flattened engine.Result plus worker bookkeeping.
type Outcome struct {
	// ID correlates this outcome with the original invocation.
	ID string `json:"id"`

	// ToolID is the tool that produced the final outcome; a successful
	// fallback reports the fallback's id.
	ToolID string `json:"tool_id"`

	// Success reports whether execution produced a validated output.
	Success bool `json:"success"`

	// Output is the validated tool output when Success is set.
	Output any `json:"output,omitempty"`

	// NeedsInput and Message carry a PromptUser termination.
	NeedsInput bool   `json:"needs_input,omitempty"`
	Message    string `json:"message,omitempty"`

	// ErrorKind, ErrorType, and ErrorMessage describe a failure.
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error,omitempty"`

	// Attempts is the number of dispatch attempts performed.
	Attempts int `json:"attempts"`

	// WorkerID identifies the worker that processed the invocation.
	WorkerID string `json:"worker_id"`

	// StartedAt / CompletedAt are Unix timestamps in milliseconds.
	StartedAt   int64 `json:"started_at"`
	CompletedAt int64 `json:"completed_at"`
}

// Duration returns the wall-clock time the worker spent on the invocation.
func (o *Outcome) Duration() time.Duration {
	if o.StartedAt <= 0 || o.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(o.CompletedAt-o.StartedAt) * time.Millisecond
}

// IsValid checks that the outcome has all required fields populated.
func (o *Outcome) IsValid() error {
	if o.ID == "" {
		return fmt.Errorf("id is required")
	}
	if o.ToolID == "" {
		return fmt.Errorf("tool_id is required")
	}
	if o.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if o.CompletedAt < o.StartedAt {
		return fmt.Errorf("completed_at (%d) cannot be before started_at (%d)", o.CompletedAt, o.StartedAt)
	}
	return nil
}
