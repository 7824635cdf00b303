package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Func is the signature of an in-process tool implementation invoked
// through the function_call protocol.
type Func func(ctx context.Context, params map[string]any) (any, error)

// FuncAdapter dispatches function_call endpoints to Go functions
// registered by name. The endpoint's "function" key selects the target.
//
// Unlike the adapter registry, the function table stays open for
// registration: embedded tools register during their package init or at
// application startup.
type FuncAdapter struct {
	mu        sync.RWMutex
	functions map[string]Func
}

// NewFuncAdapter creates an empty function adapter.
func NewFuncAdapter() *FuncAdapter {
	return &FuncAdapter{functions: make(map[string]Func)}
}

// RegisterFunc binds a function name to its implementation. Registering
// an existing name replaces the previous implementation.
func (a *FuncAdapter) RegisterFunc(name string, fn Func) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.functions[name] = fn
}

// Invoke looks up the endpoint's function and runs it under the
// effective timeout. A function that outlives its deadline is abandoned
// to finish in the background; its eventual result is discarded.
func (a *FuncAdapter) Invoke(ctx context.Context, endpoint map[string]any, params map[string]any, timeout time.Duration) (any, error) {
	name, _ := endpoint["function"].(string)
	if name == "" {
		return nil, &Error{Category: CategoryUnknown, Message: "endpoint.function is required"}
	}

	a.mu.RLock()
	fn, ok := a.functions[name]
	a.mu.RUnlock()
	if !ok {
		return nil, &Error{Category: CategoryUnknown,
			Message: fmt.Sprintf("function %q is not registered", name)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := fn(ctx, params)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Category: CategoryTimeout,
				Message: fmt.Sprintf("function %q exceeded timeout %v", name, timeout),
				Cause:   ctx.Err()}
		}
		return nil, ctx.Err()
	}
}
