package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zero-day-ai/aitool"
)

// Adapter performs the actual call for one invocation protocol.
// Implementations must be safe for concurrent use: the engine invokes a
// single adapter instance from many concurrent executions.
type Adapter interface {
	// Invoke performs one call against the endpoint with validated
	// parameters. A positive timeout bounds the attempt; zero means the
	// caller's context is the only bound. Failures are reported as
	// *Error when the adapter can categorize them, or as a raw error
	// from the tool itself.
	Invoke(ctx context.Context, endpoint map[string]any, params map[string]any, timeout time.Duration) (any, error)
}

// ErrorCategory is the adapter-reported failure category. It takes
// precedence over message inspection during classification.
type ErrorCategory string

const (
	CategoryTimeout   ErrorCategory = "timeout"
	CategoryTransport ErrorCategory = "transport_error"
	CategoryUnknown   ErrorCategory = "unknown"
)

// Error is a categorized adapter failure.
type Error struct {
	// Category is the adapter's own classification of the failure.
	Category ErrorCategory

	// Message is a human-readable description.
	Message string

	// StatusCode carries a protocol status code when one exists
	// (e.g. an HTTP status), zero otherwise.
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("adapter %s: %s", e.Category, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Registry maps protocol names to adapters. It follows an explicit
// lifecycle: construct, Register each adapter, Freeze, then serve
// Resolve calls. Registration after Freeze is an error, which keeps the
// serving set immutable and safe for lock-free reads by the engine.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	frozen   bool
}

// NewRegistry creates an empty, unfrozen adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to a protocol name. Returns an error
// wrapping aitool.ErrRegistryFrozen if the registry was already frozen,
// or a configuration error if the name is already taken.
func (r *Registry) Register(protocol string, a Adapter) error {
	const op = "adapter.Register"

	if protocol == "" {
		return &aitool.Error{Op: op, Kind: aitool.KindConfiguration,
			Err: fmt.Errorf("protocol name is required")}
	}
	if a == nil {
		return &aitool.Error{Op: op, Kind: aitool.KindConfiguration,
			Err: fmt.Errorf("adapter for %q is nil", protocol)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return &aitool.Error{Op: op, Kind: aitool.KindConfiguration,
			Err:     aitool.ErrRegistryFrozen,
			Context: map[string]any{"protocol": protocol}}
	}
	if _, exists := r.adapters[protocol]; exists {
		return &aitool.Error{Op: op, Kind: aitool.KindConfiguration,
			Err:     fmt.Errorf("protocol %q already registered", protocol),
			Context: map[string]any{"protocol": protocol}}
	}

	r.adapters[protocol] = a
	return nil
}

// Freeze transitions the registry from construction to serving. After
// Freeze the adapter set can no longer change. Freeze is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Resolve returns the adapter registered for a protocol name.
func (r *Registry) Resolve(protocol string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[protocol]
	if !ok {
		return nil, &aitool.Error{Op: "adapter.Resolve", Kind: aitool.KindNotFound,
			Err:     fmt.Errorf("no adapter registered for protocol %q", protocol),
			Context: map[string]any{"protocol": protocol}}
	}
	return a, nil
}

// Protocols returns the registered protocol names in sorted order.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultFunc     = NewFuncAdapter()
	defaultRegistry = NewRegistry()
)

func init() {
	// The default registry is assembled once at process start and
	// frozen before any call site can resolve from it.
	_ = defaultRegistry.Register("function_call", defaultFunc)
	_ = defaultRegistry.Register("http", NewHTTPAdapter(nil))
	_ = defaultRegistry.Register("cli", NewCLIAdapter())
	defaultRegistry.Freeze()
}

// Default returns the process-wide frozen registry carrying the
// built-in function_call, http, and cli adapters. Deployments needing a
// different adapter set construct their own Registry instead.
func Default() *Registry {
	return defaultRegistry
}

// DefaultFunc returns the function adapter behind the default
// registry's function_call protocol. In-process tools register their Go
// functions on it.
func DefaultFunc() *FuncAdapter {
	return defaultFunc
}
