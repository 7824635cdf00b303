package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
)

// actualLimit bounds how much of an offending value is echoed back in a
// violation. Large payloads are truncated so violations stay safe to log.
const actualLimit = 128

// Violation describes a single constraint failure found during
// validation. Path identifies the offending field ("$" is the root),
// Constraint names the failed check, and Actual carries a truncated
// rendering of the value that failed it.
type Violation struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
	Actual     string `json:"actual,omitempty"`
}

// String formats the violation as "path: message".
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Result is the outcome of validating a value against a schema.
// When Valid, Value holds the normalized input: equal to the original
// plus substituted defaults for absent optional fields.
type Result struct {
	Value      any
	Violations []Violation
}

// Valid reports whether the value satisfied every declared constraint.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Validate validates the given value against this JSON schema.
//
// Data errors never produce a Go error: they accumulate as Violations on
// the returned Result. The error return is reserved for malformed schema
// fragments (wrapping aitool.ErrInvalidSchema), which descriptors catch
// at load time via CheckSchema.
func (j JSON) Validate(value any) (Result, error) {
	v := &validator{}
	normalized, err := v.validate("$", j, value)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: normalized, Violations: v.violations}, nil
}

// validator accumulates violations across one recursive validation pass.
type validator struct {
	violations []Violation
}

func (v *validator) add(path, constraint, msg string, actual any) {
	v.violations = append(v.violations, Violation{
		Path:       path,
		Constraint: constraint,
		Message:    msg,
		Actual:     renderActual(actual),
	})
}

func (v *validator) validate(path string, s JSON, value any) (any, error) {
	// Enum membership supersedes type-specific checks, matching the
	// loader's authoring model where enums carry their own value set.
	if len(s.Enum) > 0 {
		if !enumContains(s.Enum, value) {
			v.add(path, "enum", fmt.Sprintf("value is not one of the allowed values %v", s.Enum), value)
		}
		return value, nil
	}

	if value == nil {
		if s.Type != "" && s.Type != "null" {
			v.add(path, "type", fmt.Sprintf("expected %s, got null", s.Type), nil)
		}
		return value, nil
	}

	switch s.Type {
	case "":
		return value, nil
	case "null":
		v.add(path, "type", "expected null", value)
		return value, nil
	case "string":
		return value, v.validateString(path, s, value)
	case "integer":
		v.validateNumeric(path, s, value, true)
		return value, nil
	case "number":
		v.validateNumeric(path, s, value, false)
		return value, nil
	case "boolean":
		if _, ok := value.(bool); !ok {
			v.add(path, "type", fmt.Sprintf("expected boolean, got %T", value), value)
		}
		return value, nil
	case "array":
		return v.validateArray(path, s, value)
	case "object":
		return v.validateObject(path, s, value)
	default:
		return nil, invalidSchema(path, fmt.Sprintf("unknown type %q", s.Type))
	}
}

// validateString checks string-specific constraints.
func (v *validator) validateString(path string, s JSON, value any) error {
	str, ok := value.(string)
	if !ok {
		v.add(path, "type", fmt.Sprintf("expected string, got %T", value), value)
		return nil
	}

	if s.MinLength != nil && len(str) < *s.MinLength {
		v.add(path, "minLength", fmt.Sprintf("string length %d is less than minimum %d", len(str), *s.MinLength), value)
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		v.add(path, "maxLength", fmt.Sprintf("string length %d is greater than maximum %d", len(str), *s.MaxLength), value)
	}

	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return invalidSchema(path, fmt.Sprintf("invalid pattern %q: %v", s.Pattern, err))
		}
		if !re.MatchString(str) {
			v.add(path, "pattern", fmt.Sprintf("string does not match pattern %s", s.Pattern), value)
		}
	}

	return nil
}

// validateNumeric checks integer/number types and range constraints.
func (v *validator) validateNumeric(path string, s JSON, value any, wantInt bool) {
	num, ok := toFloat(value)
	if !ok {
		want := "number"
		if wantInt {
			want = "integer"
		}
		v.add(path, "type", fmt.Sprintf("expected %s, got %T", want, value), value)
		return
	}

	// math.Trunc keeps this well-defined for magnitudes beyond int64.
	if wantInt && num != math.Trunc(num) {
		v.add(path, "type", fmt.Sprintf("expected integer, got float with decimal: %v", value), value)
		return
	}

	if s.Minimum != nil && num < *s.Minimum {
		v.add(path, "minimum", fmt.Sprintf("value %v is less than minimum %v", num, *s.Minimum), value)
	}
	if s.Maximum != nil && num > *s.Maximum {
		v.add(path, "maximum", fmt.Sprintf("value %v is greater than maximum %v", num, *s.Maximum), value)
	}
}

// validateArray checks the item schema against every element and returns
// a normalized copy of the array.
func (v *validator) validateArray(path string, s JSON, value any) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		v.add(path, "type", fmt.Sprintf("expected array, got %T", value), value)
		return value, nil
	}

	normalized := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		if s.Items != nil {
			nv, err := v.validate(fmt.Sprintf("%s[%d]", path, i), *s.Items, item)
			if err != nil {
				return nil, err
			}
			normalized[i] = nv
		} else {
			normalized[i] = item
		}
	}

	return normalized, nil
}

// validateObject checks required fields, substitutes defaults for absent
// optional fields, and recurses into declared properties. The input map
// is never mutated; a normalized copy is returned.
func (v *validator) validateObject(path string, s JSON, value any) (any, error) {
	objMap, ok := toMap(value)
	if !ok {
		v.add(path, "type", fmt.Sprintf("expected object, got %T", value), value)
		return value, nil
	}

	normalized := make(map[string]any, len(objMap))
	for k, val := range objMap {
		normalized[k] = val
	}

	// Defaults are substituted before any further checks so that an
	// omitted optional field validates identically to an explicit one.
	for name, prop := range s.Properties {
		if _, present := normalized[name]; !present && prop.Default != nil {
			normalized[name] = copyValue(prop.Default)
		}
	}

	for _, req := range s.Required {
		if _, present := normalized[req]; !present {
			v.add(path+"."+req, "required", fmt.Sprintf("required field %s is missing", req), nil)
		}
	}

	for name, prop := range s.Properties {
		val, present := normalized[name]
		if !present {
			continue
		}
		nv, err := v.validate(path+"."+name, prop, val)
		if err != nil {
			return nil, err
		}
		normalized[name] = nv
	}

	return normalized, nil
}

// toMap coerces a value into map[string]any, marshaling through JSON for
// struct inputs.
func toMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
			return nil, false
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, false
		}
		return out, true
	}
}

// toFloat coerces any numeric kind to float64.
func toFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// enumContains reports enum membership. Numeric values compare by value
// rather than by type, since JSON decoding produces float64 while
// schemas authored in Go typically use int literals.
func enumContains(enum []any, value any) bool {
	for _, allowed := range enum {
		if reflect.DeepEqual(value, allowed) {
			return true
		}
		av, aok := toFloat(allowed)
		vv, vok := toFloat(value)
		if aok && vok && av == vv {
			return true
		}
	}
	return false
}

// copyValue deep-copies a default value so substituted maps and slices
// are never shared across validations.
func copyValue(value any) any {
	switch value.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return value
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return value
		}
		return out
	default:
		return value
	}
}

// renderActual formats a value for inclusion in a violation, truncating
// past actualLimit so oversized or sensitive payloads are not echoed
// wholesale.
func renderActual(value any) string {
	if value == nil {
		return ""
	}
	s := fmt.Sprintf("%v", value)
	if len(s) > actualLimit {
		return s[:actualLimit] + "...(truncated)"
	}
	return s
}
