package descriptor

import (
	"fmt"
	"time"
)

// PolicyKind names one of the five recovery strategy variants.
type PolicyKind string

const (
	PolicyRetry            PolicyKind = "retry"
	PolicyRetryWithBackoff PolicyKind = "retry_with_backoff"
	PolicyWaitAndRetry     PolicyKind = "wait_and_retry"
	PolicyAlternateTool    PolicyKind = "alternate_tool"
	PolicyFail             PolicyKind = "fail"
	PolicyPromptUser       PolicyKind = "prompt_user"
)

// RecoveryPolicy is the tagged union of recovery strategies. The five
// variants are mutually exclusive; each carries its own required fields
// which Validate checks at load time.
type RecoveryPolicy interface {
	// Kind returns the variant tag.
	Kind() PolicyKind

	// Validate checks the variant's required fields.
	Validate() error
}

// Retry re-dispatches up to MaxAttempts total attempts with no delay
// between them.
type Retry struct {
	MaxAttempts int
}

func (Retry) Kind() PolicyKind { return PolicyRetry }

func (p Retry) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max_attempts must be at least 1, got %d", p.MaxAttempts)
	}
	return nil
}

// RetryWithBackoff re-dispatches up to MaxAttempts total attempts,
// waiting BackoffScheduleMS[min(attempt-1, len-1)] milliseconds before
// each attempt after the first. The schedule is clamped: the last
// declared value repeats for attempts beyond its length.
type RetryWithBackoff struct {
	MaxAttempts       int
	BackoffScheduleMS []int64
}

func (RetryWithBackoff) Kind() PolicyKind { return PolicyRetryWithBackoff }

func (p RetryWithBackoff) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry_with_backoff: max_attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if len(p.BackoffScheduleMS) == 0 {
		return fmt.Errorf("retry_with_backoff: backoff_ms schedule is required")
	}
	for i, ms := range p.BackoffScheduleMS {
		if ms < 0 {
			return fmt.Errorf("retry_with_backoff: backoff_ms[%d] is negative: %d", i, ms)
		}
	}
	return nil
}

// Delay returns the wait before the given 1-based attempt index.
// Attempt 1 never waits; later attempts clamp into the schedule.
func (p RetryWithBackoff) Delay(attempt int) time.Duration {
	if attempt <= 1 || len(p.BackoffScheduleMS) == 0 {
		return 0
	}
	idx := attempt - 2
	if idx >= len(p.BackoffScheduleMS) {
		idx = len(p.BackoffScheduleMS) - 1
	}
	return time.Duration(p.BackoffScheduleMS[idx]) * time.Millisecond
}

// WaitAndRetry waits WaitMS milliseconds, performs exactly one more
// attempt, then stops regardless of outcome.
type WaitAndRetry struct {
	WaitMS int64
}

func (WaitAndRetry) Kind() PolicyKind { return PolicyWaitAndRetry }

func (p WaitAndRetry) Validate() error {
	if p.WaitMS < 0 {
		return fmt.Errorf("wait_and_retry: wait_ms is negative: %d", p.WaitMS)
	}
	return nil
}

// Wait returns the declared wait as a duration.
func (p WaitAndRetry) Wait() time.Duration {
	return time.Duration(p.WaitMS) * time.Millisecond
}

// AlternateTool executes the named fallback tool with the same validated
// parameters, provided its parameter schema is compatible.
type AlternateTool struct {
	FallbackToolID string
}

func (AlternateTool) Kind() PolicyKind { return PolicyAlternateTool }

func (p AlternateTool) Validate() error {
	if p.FallbackToolID == "" {
		return fmt.Errorf("alternate_tool: fallback_tool id is required")
	}
	return nil
}

// Fail surfaces the classified error to the caller immediately. It is
// also the implicit policy for any error type a descriptor leaves unmapped.
type Fail struct{}

func (Fail) Kind() PolicyKind { return PolicyFail }

func (Fail) Validate() error { return nil }

// PromptUser terminates the invocation with a structured "needs input"
// result carrying Message. It is a terminal, non-exceptional outcome.
type PromptUser struct {
	Message string
}

func (PromptUser) Kind() PolicyKind { return PolicyPromptUser }

func (p PromptUser) Validate() error {
	if p.Message == "" {
		return fmt.Errorf("prompt_user: message_to_user is required")
	}
	return nil
}
