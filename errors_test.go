package aitool

import (
	"errors"
	"strings"
	"testing"
)

// TestSentinelErrors verifies that all sentinel errors are defined correctly.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "ErrToolNotFound",
			err:  ErrToolNotFound,
			want: "tool not found",
		},
		{
			name: "ErrInvalidDescriptor",
			err:  ErrInvalidDescriptor,
			want: "invalid descriptor",
		},
		{
			name: "ErrInvalidSchema",
			err:  ErrInvalidSchema,
			want: "invalid schema",
		},
		{
			name: "ErrRegistryFrozen",
			err:  ErrRegistryFrozen,
			want: "adapter registry is frozen",
		},
		{
			name: "ErrDuplicateID",
			err:  ErrDuplicateID,
			want: "duplicate tool id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("sentinel error %s is nil", tt.name)
			}
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("error message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	t.Run("with underlying error", func(t *testing.T) {
		err := &Error{Op: "descriptor.LoadFile", Kind: KindValidation, Err: ErrInvalidDescriptor}
		got := err.Error()
		if !strings.Contains(got, "descriptor.LoadFile") {
			t.Errorf("message %q missing op", got)
		}
		if !strings.Contains(got, KindValidation) {
			t.Errorf("message %q missing kind", got)
		}
		if !strings.Contains(got, "invalid descriptor") {
			t.Errorf("message %q missing cause", got)
		}
	})

	t.Run("without underlying error", func(t *testing.T) {
		err := &Error{Op: "engine.Execute", Kind: KindInternal}
		got := err.Error()
		if !strings.Contains(got, "engine.Execute") || !strings.Contains(got, KindInternal) {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("context appears in message", func(t *testing.T) {
		err := E("registry.Lookup", KindNotFound, ErrToolNotFound).
			WithContext(map[string]any{"tool_id": "com.acme.search"})
		if !strings.Contains(err.Error(), "com.acme.search") {
			t.Errorf("message %q missing context value", err.Error())
		}
	})
}

func TestErrorUnwrapping(t *testing.T) {
	t.Run("errors.Is reaches the cause", func(t *testing.T) {
		err := E("descriptor.Load", KindValidation, ErrInvalidDescriptor)
		if !errors.Is(err, ErrInvalidDescriptor) {
			t.Error("expected errors.Is to match the wrapped sentinel")
		}
		if errors.Is(err, ErrToolNotFound) {
			t.Error("unexpected match against unrelated sentinel")
		}
	})

	t.Run("errors.As extracts the structured error", func(t *testing.T) {
		var structured *Error
		wrapped := E("queue.Push", KindNetwork, errors.New("connection reset"))
		if !errors.As(error(wrapped), &structured) {
			t.Fatal("expected errors.As to extract *Error")
		}
		if structured.Kind != KindNetwork {
			t.Errorf("kind = %q, want %q", structured.Kind, KindNetwork)
		}
	})

	t.Run("Is matches on kind", func(t *testing.T) {
		err := E("engine.Execute", KindTimeout, errors.New("deadline"))
		if !errors.Is(err, &Error{Kind: KindTimeout}) {
			t.Error("expected kind-only match")
		}
		if errors.Is(err, &Error{Kind: KindTimeout, Op: "other.Op"}) {
			t.Error("unexpected match with mismatched op")
		}
	})
}
