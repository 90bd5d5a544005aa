package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Type defines the contract for parameter validation.
type Type interface {
	// Name returns the catalog name of the type (e.g. "string", "number").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringType validates free text. Password and code parameters are strings too.
type StringType struct{ name string }

func (t *StringType) Name() string { return t.name }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// NumberType validates numeric values, including json.Number.
type NumberType struct{ integer bool }

func (t *NumberType) Name() string {
	if t.integer {
		return "integer"
	}
	return "number"
}

func (t *NumberType) Validate(value any) error {
	var f float64
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float32:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return fmt.Errorf("expected number, got %q", v.String())
		}
		f = parsed
	default:
		return fmt.Errorf("expected number, got %T", value)
	}
	if t.integer && f != float64(int64(f)) {
		return fmt.Errorf("expected integer, got fractional number")
	}
	return nil
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "boolean" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

// JSONType accepts a structured value or a string holding JSON.
type JSONType struct{}

func (t *JSONType) Name() string { return "json" }

func (t *JSONType) Validate(value any) error {
	switch v := value.(type) {
	case map[string]any, []any, nil:
		return nil
	case string:
		if v == "" || json.Valid([]byte(v)) {
			return nil
		}
		return fmt.Errorf("expected JSON document, got malformed string")
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice || rv.Kind() == reflect.Struct {
			return nil
		}
		return fmt.Errorf("expected JSON object or array, got %T", value)
	}
}

// OptionsType restricts a string to a fixed set of choices.
// An empty choice list accepts any string (choices are resolved at runtime).
type OptionsType struct {
	choices []string
}

func (t *OptionsType) Name() string { return "options" }

func (t *OptionsType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string option, got %T", value)
	}
	if len(t.choices) == 0 {
		return nil
	}
	for _, c := range t.choices {
		if c == s {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of [%s]", s, strings.Join(t.choices, ", "))
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{name: "string"} }

// Password creates a string validator for secret values.
func Password() Type { return &StringType{name: "password"} }

// Code creates a string validator for source snippets.
func Code() Type { return &StringType{name: "code"} }

// Reference creates a validator for a node id reference.
func Reference() Type { return &StringType{name: "reference"} }

// Number creates a numeric validator.
func Number() Type { return &NumberType{} }

// Integer creates a whole-number validator.
func Integer() Type { return &NumberType{integer: true} }

// Bool creates a boolean validator.
func Bool() Type { return &BoolType{} }

// JSON creates a validator for structured input.
func JSON() Type { return &JSONType{} }

// Options creates a validator restricted to choices.
func Options(choices ...string) Type { return &OptionsType{choices: choices} }

// Slice creates a list validator for elements of the given type.
func Slice(elemType Type) Type { return &SliceType{elemType: elemType} }

// ParseType converts a catalog type name to a Type.
// Supports "string", "password", "code", "reference", "number", "integer",
// "boolean", "json", "options" and list forms like "[string]".
func ParseType(typeStr string) (Type, error) {
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "password":
		return Password(), nil
	case "code":
		return Code(), nil
	case "reference":
		return Reference(), nil
	case "number":
		return Number(), nil
	case "integer":
		return Integer(), nil
	case "boolean", "bool":
		return Bool(), nil
	case "json":
		return JSON(), nil
	case "options":
		return Options(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}
