package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/aitool"
)

func TestRegistryLifecycle(t *testing.T) {
	t.Run("register resolve", func(t *testing.T) {
		r := NewRegistry()
		fa := NewFuncAdapter()
		require.NoError(t, r.Register("function_call", fa))

		resolved, err := r.Resolve("function_call")
		require.NoError(t, err)
		assert.Same(t, Adapter(fa), resolved)
	})

	t.Run("register after freeze fails", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("function_call", NewFuncAdapter()))
		r.Freeze()

		err := r.Register("http", NewHTTPAdapter(nil))
		require.Error(t, err)
		assert.True(t, errors.Is(err, aitool.ErrRegistryFrozen))

		// The pre-freeze set keeps serving
		_, err = r.Resolve("function_call")
		require.NoError(t, err)
	})

	t.Run("freeze is idempotent", func(t *testing.T) {
		r := NewRegistry()
		r.Freeze()
		r.Freeze()
		require.Error(t, r.Register("x", NewFuncAdapter()))
	})

	t.Run("duplicate protocol rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("cli", NewCLIAdapter()))
		require.Error(t, r.Register("cli", NewCLIAdapter()))
	})

	t.Run("resolve unknown protocol", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Resolve("carrier_pigeon")
		require.Error(t, err)
	})

	t.Run("empty protocol name rejected", func(t *testing.T) {
		r := NewRegistry()
		require.Error(t, r.Register("", NewFuncAdapter()))
	})

	t.Run("nil adapter rejected", func(t *testing.T) {
		r := NewRegistry()
		require.Error(t, r.Register("x", nil))
	})

	t.Run("protocols sorted", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("http", NewHTTPAdapter(nil)))
		require.NoError(t, r.Register("cli", NewCLIAdapter()))
		require.NoError(t, r.Register("function_call", NewFuncAdapter()))

		assert.Equal(t, []string{"cli", "function_call", "http"}, r.Protocols())
	})
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"cli", "function_call", "http"}, r.Protocols())

	// The default registry is frozen at init
	err := r.Register("custom", NewFuncAdapter())
	require.Error(t, err)
	assert.True(t, errors.Is(err, aitool.ErrRegistryFrozen))

	// The function_call adapter stays open for function registration
	DefaultFunc().RegisterFunc("adapter_test_echo", func(ctx context.Context, params map[string]any) (any, error) {
		return params, nil
	})

	a, err := r.Resolve("function_call")
	require.NoError(t, err)
	out, err := a.Invoke(context.Background(), map[string]any{"function": "adapter_test_echo"},
		map[string]any{"k": "v"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, out)
}

func TestAdapterError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &Error{Category: CategoryTransport, Message: "request failed", StatusCode: 502, Cause: cause}

	assert.Contains(t, err.Error(), "transport_error")
	assert.Contains(t, err.Error(), "502")
	assert.True(t, errors.Is(err, cause))
}
