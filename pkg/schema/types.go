package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Built-in type identifiers.
const (
	Float      = "Float"
	Int        = "Int"
	Bool       = "Bool"
	String     = "String"
	Transition = "Transition"
)

// Type defines the contract for a port value kind.
type Type interface {
	// Name returns the type identifier (e.g., "Float").
	Name() string
	// Coerce boxes value into the canonical Go representation of the type.
	// It returns an error if the value cannot represent the type.
	Coerce(value any) (any, error)
}

// FloatType carries float64 values.
type FloatType struct{}

func (t *FloatType) Name() string { return Float }

func (t *FloatType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected float, got %q", v.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected float, got %T", value)
	}
}

// IntType carries int64 values.
type IntType struct{}

func (t *IntType) Name() string { return Int }

func (t *IntType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		// Accept floats that are whole numbers (from JSON/YAML/HCL decoding)
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), nil
		}
		return nil, fmt.Errorf("expected int, got float (not a whole number)")
	case json.Number:
		i, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected int, got %q", v.String())
		}
		return i, nil
	default:
		return nil, fmt.Errorf("expected int, got %T", value)
	}
}

// BoolType carries bool values.
type BoolType struct{}

func (t *BoolType) Name() string { return Bool }

func (t *BoolType) Coerce(value any) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", value)
	}
	return b, nil
}

// StringType carries string values.
type StringType struct{}

func (t *StringType) Name() string { return String }

func (t *StringType) Coerce(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", value)
	}
	return s, nil
}

// TransitionType marks control-flow ports between dialog nodes.
// It carries no data; any value is normalized to struct{}.
type TransitionType struct{}

func (t *TransitionType) Name() string { return Transition }

func (t *TransitionType) Coerce(value any) (any, error) {
	return struct{}{}, nil
}

// CustomType applies a user-defined coercion function.
type CustomType struct {
	name   string
	coerce func(any) (any, error)
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Coerce(value any) (any, error) {
	return t.coerce(value)
}

// Custom creates a type with a user-defined coercion.
func Custom(name string, coerce func(any) (any, error)) Type {
	return &CustomType{name: name, coerce: coerce}
}
