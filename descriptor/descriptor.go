package descriptor

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/aitool"
	"github.com/zero-day-ai/aitool/schema"
)

// Descriptor is the immutable in-memory representation of a tool
// definition. It is created by a loader (or Builder), validated once,
// and read-only for the rest of the process lifetime. The engine trusts
// its structural validity but re-validates every parameter and return
// value at call time.
type Descriptor struct {
	// ID is the globally unique identifier, reverse-domain by convention
	// (e.g. "com.acme.search_products"). Unique within any registry snapshot.
	ID string

	// Name is the short invocation name of the tool.
	Name string

	// Version is the tool's semantic version. Version changes are the
	// unit of compatibility tracking.
	Version string

	// DisplayName is an optional human-facing name.
	DisplayName string

	// Description is a human-readable summary of what the tool does.
	Description string

	// Category is one of the fixed category enumeration values.
	Category Category

	// Tags are free-form labels for discovery.
	Tags []string

	// Protocol names the adapter used to invoke this tool.
	Protocol Protocol

	// Endpoint is protocol-specific addressing data, opaque to the
	// engine beyond the protocol tag.
	Endpoint map[string]any

	// ParameterSchema validates input before dispatch.
	ParameterSchema schema.JSON

	// ReturnSchema validates adapter output after dispatch.
	ReturnSchema schema.JSON

	// Guidance is the trigger/anti-pattern usage guidance for selection.
	Guidance Guidance

	// ErrorPolicies maps each declared error type to its recovery
	// policy. Types left unmapped default to Fail at execution time.
	ErrorPolicies map[ErrorType]RecoveryPolicy

	// Hints is optional advisory performance metadata for the selector.
	Hints *PerformanceHints

	// Dependencies lists ids of tools this tool composes with or requires.
	Dependencies []string

	// Timeout is the tool's declared per-attempt timeout. Zero means
	// the engine-wide default applies.
	Timeout time.Duration
}

// Validate checks the descriptor's structural invariants. It is called
// by loaders and by the Builder; descriptors constructed by hand should
// be validated before use.
func (d *Descriptor) Validate() error {
	op := "descriptor.Validate"

	if d.ID == "" {
		return invalid(op, d.ID, fmt.Errorf("%w: id is required", aitool.ErrInvalidDescriptor))
	}
	if d.Name == "" {
		return invalid(op, d.ID, fmt.Errorf("%w: name is required", aitool.ErrInvalidDescriptor))
	}
	if d.Version == "" {
		return invalid(op, d.ID, fmt.Errorf("%w: version is required", aitool.ErrInvalidDescriptor))
	}
	if !d.Category.Valid() {
		return invalid(op, d.ID, fmt.Errorf("%w: unknown category %q", aitool.ErrInvalidDescriptor, d.Category))
	}
	if d.Protocol == "" {
		return invalid(op, d.ID, fmt.Errorf("%w: protocol is required", aitool.ErrInvalidDescriptor))
	}
	if d.Timeout < 0 {
		return invalid(op, d.ID, fmt.Errorf("%w: negative timeout %v", aitool.ErrInvalidDescriptor, d.Timeout))
	}

	// Unknown error_policy keys are a load-time error, never silently
	// ignored: a typo would otherwise disable a declared recovery.
	for errType, policy := range d.ErrorPolicies {
		if !errType.Valid() {
			return invalid(op, d.ID, fmt.Errorf("%w: unknown error_type %q in error_policies",
				aitool.ErrInvalidDescriptor, errType))
		}
		if policy == nil {
			return invalid(op, d.ID, fmt.Errorf("%w: nil policy for error_type %q",
				aitool.ErrInvalidDescriptor, errType))
		}
		if err := policy.Validate(); err != nil {
			return invalid(op, d.ID, fmt.Errorf("%w: policy for %q: %v",
				aitool.ErrInvalidDescriptor, errType, err))
		}
	}

	for _, trig := range d.Guidance.Triggers {
		if trig.Trigger == "" {
			return invalid(op, d.ID, fmt.Errorf("%w: empty trigger text", aitool.ErrInvalidDescriptor))
		}
	}

	if err := d.ParameterSchema.CheckSchema(); err != nil {
		return invalid(op, d.ID, fmt.Errorf("parameter_schema: %w", err))
	}
	if err := d.ReturnSchema.CheckSchema(); err != nil {
		return invalid(op, d.ID, fmt.Errorf("return_schema: %w", err))
	}

	return nil
}

// Policy returns the recovery policy declared for the given error type,
// or Fail when none is declared.
func (d *Descriptor) Policy(errType ErrorType) RecoveryPolicy {
	if p, ok := d.ErrorPolicies[errType]; ok && p != nil {
		return p
	}
	return Fail{}
}

// String returns a human-readable identifier for logs.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s@%s", d.ID, d.Version)
}

func invalid(op, id string, err error) error {
	e := &aitool.Error{Op: op, Kind: aitool.KindValidation, Err: err}
	if id != "" {
		e.Context = map[string]any{"tool_id": id}
	}
	return e
}
