package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/aitool/adapter"
	"github.com/zero-day-ai/aitool/descriptor"
	"github.com/zero-day-ai/aitool/schema"
)

const (
	// DefaultTimeout bounds an attempt when neither the caller nor the
	// descriptor declares a timeout.
	DefaultTimeout = 30 * time.Second

	// maxFallbackDepth bounds AlternateTool chaining per root
	// invocation. One hop: a fallback tool may not itself fall back.
	maxFallbackDepth = 1

	tracerName = "github.com/zero-day-ai/aitool/engine"
)

// Config holds the configuration for constructing an Engine.
type Config struct {
	// Adapters is the frozen protocol adapter registry. Nil uses the
	// package-wide default registry.
	Adapters *adapter.Registry

	// DefaultTimeout is the engine-wide per-attempt timeout applied
	// when a descriptor declares none. Zero uses DefaultTimeout.
	DefaultTimeout time.Duration

	// Logger is the structured logger for execution events. Nil uses
	// slog.Default().
	Logger *slog.Logger

	// TracerProvider supplies the tracer for execution spans. Nil uses
	// the global otel provider.
	TracerProvider trace.TracerProvider
}

// Engine orchestrates tool execution and recovery. It is stateless
// across invocations and safe for concurrent use.
type Engine struct {
	adapters       *adapter.Registry
	defaultTimeout time.Duration
	logger         *slog.Logger
	tracer         trace.Tracer
}

// New constructs an Engine from the given configuration.
func New(cfg Config) *Engine {
	adapters := cfg.Adapters
	if adapters == nil {
		adapters = adapter.Default()
	}

	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tp := cfg.TracerProvider
	var tracer trace.Tracer
	if tp != nil {
		tracer = tp.Tracer(tracerName)
	} else {
		tracer = otel.Tracer(tracerName)
	}

	return &Engine{
		adapters:       adapters,
		defaultTimeout: timeout,
		logger:         logger,
		tracer:         tracer,
	}
}

// Execute runs one tool invocation through the full state machine:
// validate input, dispatch through the protocol adapter, validate
// output, and on failure apply the descriptor's recovery policy for the
// classified error type. The returned Result always carries the ordered
// record of every dispatch attempt performed, fallback attempts
// included.
func (e *Engine) Execute(ctx context.Context, d *descriptor.Descriptor, params map[string]any, opts Options) Result {
	inv := &invocation{
		engine: e,
		opts:   opts,
		id:     uuid.NewString(),
	}

	ctx, span := e.tracer.Start(ctx, "aitool.execute", trace.WithAttributes(
		attribute.String("tool.id", d.ID),
		attribute.String("tool.version", d.Version),
		attribute.String("tool.protocol", string(d.Protocol)),
	))
	defer span.End()

	result := inv.executeTool(ctx, d, params, 0)
	result.Attempts = inv.attempts

	span.SetAttributes(attribute.Int("tool.attempts", len(inv.attempts)))
	if result.Err != nil {
		span.SetStatus(codes.Error, result.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return result
}

// invocation is the per-Execute state: the ordered attempt log and the
// caller's options. Nothing here outlives the call.
type invocation struct {
	engine   *Engine
	opts     Options
	id       string
	attempts []Attempt
}

// failure is one classified failure awaiting a recovery decision.
type failure struct {
	typ       descriptor.ErrorType
	msg       string
	cause     error
	cancelled bool
	fatal     *ExecutionError
}

// executeTool runs the state machine for one tool. depth counts
// AlternateTool hops below the root invocation.
func (inv *invocation) executeTool(ctx context.Context, d *descriptor.Descriptor, params map[string]any, depth int) Result {
	log := inv.engine.logger.With("tool", d.ID, "invocation", inv.id)

	// VALIDATING_INPUT. Defaults are substituted here, so the adapter
	// always sees the normalized parameter set.
	normalized := params
	var pending *failure

	if !inv.opts.SkipInputValidation {
		res, err := d.ParameterSchema.Validate(params)
		if err != nil {
			return inv.failResult(d, &ExecutionError{
				Kind:    FailureInvalidSchema,
				Message: "parameter schema is malformed",
				Cause:   err,
			})
		}
		if !res.Valid() {
			pending = &failure{
				typ: descriptor.ErrorInvalidInput,
				msg: violationSummary(res.Violations),
			}
			log.Warn("input validation failed", "violations", len(res.Violations))
		} else if m, ok := res.Value.(map[string]any); ok {
			normalized = m
		}
	}

	// dispatch performs one adapter call plus output validation and
	// appends the attempt record. dispatches counts attempts performed
	// under the current tool's recovery budget.
	dispatches := 0
	dispatch := func(ctx context.Context) (any, *failure) {
		dispatches++
		return inv.dispatchOnce(ctx, d, normalized, log)
	}

	// DISPATCHING. A pre-dispatch input failure goes straight to
	// classification; recovery policies re-enter at dispatch.
	if pending == nil {
		out, f := dispatch(ctx)
		if f == nil {
			return successResult(d, out)
		}
		pending = f
	}

	// CLASSIFYING / RECOVERING.
	if pending.fatal != nil || pending.cancelled {
		return inv.terminalResult(d, pending, dispatches)
	}

	if inv.opts.DisableRecovery {
		return inv.classifiedResult(d, pending, dispatches)
	}

	policy := d.Policy(pending.typ)
	log.Info("applying recovery policy",
		"error_type", pending.typ,
		"policy", string(policy.Kind()),
	)

	// retryTo drives Retry, RetryWithBackoff, and WaitAndRetry: delay
	// returns the wait before the upcoming (1-based) attempt number.
	retryTo := func(budget int, delay func(next int) time.Duration) Result {
		for dispatches < budget {
			if wait := delay(dispatches + 1); wait > 0 {
				if !inv.sleep(ctx, wait) {
					// Cancellation during a declared wait skips the
					// pending attempt entirely.
					return inv.terminalResult(d, &failure{
						typ:       pending.typ,
						msg:       "cancelled during recovery wait",
						cause:     ctx.Err(),
						cancelled: true,
					}, dispatches)
				}
			}
			out, f := dispatch(ctx)
			if f == nil {
				return successResult(d, out)
			}
			pending = f
			if f.fatal != nil || f.cancelled {
				return inv.terminalResult(d, f, dispatches)
			}
		}
		return inv.exhaustedResult(d, pending, dispatches)
	}

	switch p := policy.(type) {
	case descriptor.Fail:
		return inv.classifiedResult(d, pending, dispatches)

	case descriptor.PromptUser:
		return Result{
			ToolID:        d.ID,
			NeedsInput:    true,
			Message:       p.Message,
			RetryPossible: true,
		}

	case descriptor.Retry:
		return retryTo(p.MaxAttempts, func(int) time.Duration { return 0 })

	case descriptor.RetryWithBackoff:
		return retryTo(p.MaxAttempts, p.Delay)

	case descriptor.WaitAndRetry:
		return retryTo(dispatches+1, func(int) time.Duration { return p.Wait() })

	case descriptor.AlternateTool:
		return inv.fallback(ctx, d, p, normalized, pending, dispatches, depth, log)

	default:
		// Unreachable for descriptors that passed Validate.
		return inv.classifiedResult(d, pending, dispatches)
	}
}

// dispatchOnce resolves the adapter, performs one call under the
// effective timeout, validates the output, and records the attempt.
func (inv *invocation) dispatchOnce(ctx context.Context, d *descriptor.Descriptor, params map[string]any, log *slog.Logger) (any, *failure) {
	index := len(inv.attempts) + 1

	ctx, span := inv.engine.tracer.Start(ctx, "aitool.attempt", trace.WithAttributes(
		attribute.String("tool.id", d.ID),
		attribute.Int("attempt.index", index),
	))
	defer span.End()

	a, err := inv.engine.adapters.Resolve(string(d.Protocol))
	if err != nil {
		f := &failure{typ: descriptor.ErrorUnknown, msg: err.Error(), cause: err}
		inv.record(d, index, time.Now(), 0, f)
		span.SetStatus(codes.Error, f.msg)
		return nil, f
	}

	timeout := inv.effectiveTimeout(d)
	start := time.Now()
	raw, err := a.Invoke(ctx, d.Endpoint, params, timeout)
	latency := time.Since(start)

	if err != nil {
		f := &failure{msg: err.Error(), cause: err}
		if errors.Is(err, context.Canceled) {
			f.cancelled = true
			f.typ = descriptor.ErrorUnknown
		} else {
			f.typ = Classify(err)
		}
		inv.record(d, index, start, latency, f)
		span.SetStatus(codes.Error, f.msg)
		log.Warn("attempt failed",
			"attempt", index,
			"error_type", f.typ,
			"latency", latency,
			"error", f.msg,
		)
		return nil, f
	}

	// VALIDATING_OUTPUT. A violation here is not swallowed: it enters
	// recovery exactly like a dispatch failure.
	if !inv.opts.SkipOutputValidation {
		res, verr := d.ReturnSchema.Validate(raw)
		if verr != nil {
			f := &failure{
				typ: descriptor.ErrorInvalidOutput,
				msg: "return schema is malformed",
				fatal: &ExecutionError{
					Kind:    FailureInvalidSchema,
					Type:    descriptor.ErrorInvalidOutput,
					Message: "return schema is malformed",
					Cause:   verr,
				},
			}
			inv.record(d, index, start, latency, f)
			span.SetStatus(codes.Error, f.msg)
			return nil, f
		}
		if !res.Valid() {
			f := &failure{
				typ: descriptor.ErrorInvalidOutput,
				msg: violationSummary(res.Violations),
			}
			inv.record(d, index, start, latency, f)
			span.SetStatus(codes.Error, f.msg)
			log.Warn("output validation failed", "attempt", index, "violations", len(res.Violations))
			return nil, f
		}
		raw = res.Value
	}

	inv.record(d, index, start, latency, nil)
	span.SetStatus(codes.Ok, "")
	log.Debug("attempt succeeded", "attempt", index, "latency", latency)
	return raw, nil
}

// fallback executes an AlternateTool policy: one bounded hop to the
// named tool with the same validated parameters.
func (inv *invocation) fallback(ctx context.Context, d *descriptor.Descriptor, p descriptor.AlternateTool, params map[string]any, pending *failure, dispatches, depth int, log *slog.Logger) Result {
	if depth >= maxFallbackDepth {
		return inv.failResult(d, &ExecutionError{
			Kind:     FailureFallbackLoop,
			Type:     pending.typ,
			Message:  fmt.Sprintf("fallback depth limit reached at tool %q", d.ID),
			Attempts: dispatches,
		})
	}

	// A missing lookup context or an unknown fallback id degrades the
	// recovery to Fail rather than erroring on configuration.
	if inv.opts.Lookup == nil {
		log.Warn("alternate_tool policy with no lookup context", "fallback", p.FallbackToolID)
		return inv.classifiedResult(d, pending, dispatches)
	}
	fb, ok := inv.opts.Lookup(p.FallbackToolID)
	if !ok {
		log.Warn("fallback tool not found", "fallback", p.FallbackToolID)
		return inv.classifiedResult(d, pending, dispatches)
	}

	// The engine performs no parameter translation: the fallback's
	// schema must accept the already-validated parameters as-is.
	res, err := fb.ParameterSchema.Validate(params)
	if err != nil {
		return inv.failResult(d, &ExecutionError{
			Kind:    FailureInvalidSchema,
			Message: fmt.Sprintf("fallback tool %q parameter schema is malformed", fb.ID),
			Cause:   err,
		})
	}
	if !res.Valid() {
		return inv.failResult(d, &ExecutionError{
			Kind:     FailureFallbackIncompatible,
			Type:     pending.typ,
			Message:  fmt.Sprintf("fallback tool %q rejected parameters: %s", fb.ID, violationSummary(res.Violations)),
			Attempts: dispatches,
		})
	}

	log.Info("executing fallback tool", "fallback", fb.ID, "error_type", pending.typ)
	return inv.executeTool(ctx, fb, params, depth+1)
}

// record appends one attempt to the invocation's ordered log.
func (inv *invocation) record(d *descriptor.Descriptor, index int, start time.Time, latency time.Duration, f *failure) {
	a := Attempt{
		Index:     index,
		ToolID:    d.ID,
		StartedAt: start,
		Latency:   latency,
		Success:   f == nil,
	}
	if f != nil {
		if !f.cancelled {
			a.ErrorType = f.typ
		}
		a.Error = f.msg
	}
	inv.attempts = append(inv.attempts, a)
}

// sleep waits for the given duration, returning false if the context
// was cancelled first.
func (inv *invocation) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// effectiveTimeout resolves the per-attempt timeout: caller override,
// then the descriptor's declared timeout, then the engine default.
func (inv *invocation) effectiveTimeout(d *descriptor.Descriptor) time.Duration {
	if inv.opts.TimeoutOverride > 0 {
		return inv.opts.TimeoutOverride
	}
	if d.Timeout > 0 {
		return d.Timeout
	}
	return inv.engine.defaultTimeout
}

func successResult(d *descriptor.Descriptor, output any) Result {
	return Result{Success: true, ToolID: d.ID, Output: output}
}

func (inv *invocation) failResult(d *descriptor.Descriptor, err *ExecutionError) Result {
	return Result{ToolID: d.ID, Err: err}
}

func (inv *invocation) classifiedResult(d *descriptor.Descriptor, f *failure, dispatches int) Result {
	return inv.failResult(d, &ExecutionError{
		Kind:     FailureClassified,
		Type:     f.typ,
		Message:  f.msg,
		Attempts: dispatches,
		Cause:    f.cause,
	})
}

func (inv *invocation) exhaustedResult(d *descriptor.Descriptor, f *failure, dispatches int) Result {
	return inv.failResult(d, &ExecutionError{
		Kind:     FailureRecoveryExhausted,
		Type:     f.typ,
		Message:  f.msg,
		Attempts: dispatches,
		Cause:    f.cause,
	})
}

// terminalResult converts a fatal or cancelled failure into a Result.
func (inv *invocation) terminalResult(d *descriptor.Descriptor, f *failure, dispatches int) Result {
	if f.fatal != nil {
		if f.fatal.Attempts == 0 {
			f.fatal.Attempts = dispatches
		}
		return inv.failResult(d, f.fatal)
	}
	return inv.failResult(d, &ExecutionError{
		Kind:     FailureCancelled,
		Type:     f.typ,
		Message:  f.msg,
		Attempts: dispatches,
		Cause:    f.cause,
	})
}

// violationSummary joins the first violations into one message,
// capping the list so a pathological input cannot flood logs.
func violationSummary(violations []schema.Violation) string {
	const maxShown = 5

	msgs := make([]string, 0, len(violations))
	for i, v := range violations {
		if i == maxShown {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(violations)-maxShown))
			break
		}
		msgs = append(msgs, v.String())
	}
	return strings.Join(msgs, "; ")
}
