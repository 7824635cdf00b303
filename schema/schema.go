package schema

import (
	"fmt"
	"regexp"

	"github.com/zero-day-ai/aitool"
)

// JSON represents a JSON Schema fragment.
// It provides a structured way to define and validate tool parameter and
// return data. The zero value accepts any value.
type JSON struct {
	Type        string          `json:"type,omitempty" yaml:"type,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string        `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty" yaml:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any             `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength   *int            `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern     string          `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// knownTypes is the closed set of type names the validator understands.
var knownTypes = map[string]bool{
	"":        true, // untyped fragments accept any value
	"object":  true,
	"array":   true,
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"null":    true,
}

// Any creates a JSON schema that accepts any type.
// This is useful for dynamic or unstructured data.
func Any() JSON {
	return JSON{}
}

// String creates a JSON schema for a string type.
func String() JSON {
	return JSON{Type: "string"}
}

// StringWithDesc creates a JSON schema for a string type with a description.
func StringWithDesc(desc string) JSON {
	return JSON{
		Type:        "string",
		Description: desc,
	}
}

// Int creates a JSON schema for an integer type.
func Int() JSON {
	return JSON{Type: "integer"}
}

// Number creates a JSON schema for a number type.
func Number() JSON {
	return JSON{Type: "number"}
}

// Bool creates a JSON schema for a boolean type.
func Bool() JSON {
	return JSON{Type: "boolean"}
}

// Null creates a JSON schema that accepts only null.
func Null() JSON {
	return JSON{Type: "null"}
}

// Array creates a JSON schema for an array type with the specified item schema.
func Array(items JSON) JSON {
	return JSON{
		Type:  "array",
		Items: &items,
	}
}

// Object creates a JSON schema for an object type with the specified
// properties and required fields.
func Object(properties map[string]JSON, required ...string) JSON {
	return JSON{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// Enum creates a JSON schema with enumerated values.
func Enum(values ...any) JSON {
	return JSON{Enum: values}
}

// WithDefault returns a copy of the schema with a default value for
// absent optional fields. This method is immutable - it does not modify
// the receiver.
func (j JSON) WithDefault(v any) JSON {
	j.Default = v
	return j
}

// WithPattern returns a copy of the schema with a regexp pattern constraint.
func (j JSON) WithPattern(pattern string) JSON {
	j.Pattern = pattern
	return j
}

// WithRange returns a copy of the schema with minimum and maximum constraints.
func (j JSON) WithRange(min, max float64) JSON {
	j.Minimum = &min
	j.Maximum = &max
	return j
}

// WithMinimum returns a copy of the schema with a minimum constraint.
func (j JSON) WithMinimum(min float64) JSON {
	j.Minimum = &min
	return j
}

// WithMaximum returns a copy of the schema with a maximum constraint.
func (j JSON) WithMaximum(max float64) JSON {
	j.Maximum = &max
	return j
}

// WithLength returns a copy of the schema with string length constraints.
func (j JSON) WithLength(min, max int) JSON {
	j.MinLength = &min
	j.MaxLength = &max
	return j
}

// CheckSchema verifies that the schema fragment itself is well-formed.
// It is called by the descriptor loader so that authoring mistakes (an
// invalid regexp, contradictory bounds, a default that violates its own
// fragment) surface at load time rather than during execution.
//
// Returns an error wrapping aitool.ErrInvalidSchema on the first problem
// found.
func (j JSON) CheckSchema() error {
	return j.checkSchema("$")
}

func (j JSON) checkSchema(path string) error {
	if !knownTypes[j.Type] {
		return invalidSchema(path, fmt.Sprintf("unknown type %q", j.Type))
	}

	if j.Pattern != "" {
		if _, err := regexp.Compile(j.Pattern); err != nil {
			return invalidSchema(path, fmt.Sprintf("invalid pattern %q: %v", j.Pattern, err))
		}
	}

	if j.Minimum != nil && j.Maximum != nil && *j.Minimum > *j.Maximum {
		return invalidSchema(path, fmt.Sprintf("minimum %v exceeds maximum %v", *j.Minimum, *j.Maximum))
	}

	if j.MinLength != nil && *j.MinLength < 0 {
		return invalidSchema(path, fmt.Sprintf("negative minLength %d", *j.MinLength))
	}
	if j.MinLength != nil && j.MaxLength != nil && *j.MinLength > *j.MaxLength {
		return invalidSchema(path, fmt.Sprintf("minLength %d exceeds maxLength %d", *j.MinLength, *j.MaxLength))
	}

	for name, prop := range j.Properties {
		if err := prop.checkSchema(path + "." + name); err != nil {
			return err
		}
	}

	if j.Items != nil {
		if err := j.Items.checkSchema(path + "[]"); err != nil {
			return err
		}
	}

	for _, req := range j.Required {
		if j.Properties != nil {
			if _, ok := j.Properties[req]; !ok {
				return invalidSchema(path, fmt.Sprintf("required field %q has no property schema", req))
			}
		}
	}

	// A declared default must satisfy its own fragment, otherwise
	// substitution would manufacture invalid data.
	if j.Default != nil {
		probe := j
		probe.Default = nil
		result, err := probe.Validate(j.Default)
		if err != nil {
			return err
		}
		if !result.Valid() {
			return invalidSchema(path, fmt.Sprintf("default value %v violates its own schema: %s",
				j.Default, result.Violations[0]))
		}
	}

	return nil
}

func invalidSchema(path, msg string) error {
	return &aitool.Error{
		Op:      "schema.CheckSchema",
		Kind:    aitool.KindValidation,
		Err:     fmt.Errorf("%w: %s: %s", aitool.ErrInvalidSchema, path, msg),
		Context: map[string]any{"path": path},
	}
}
