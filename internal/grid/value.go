// Package grid holds the canonical tabular data model: a closed, tagged
// cell value variant, ordered case-insensitive header maps, and the
// rectangular grid produced by input normalization and dimension
// reconciliation.
package grid

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Kind tags the closed set of scalar cell kinds. Downstream code switches
// exhaustively on Kind instead of duck-typing raw values.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Value is a scalar cell value. The grid never carries non-scalar values;
// structured inputs are serialized to text at the normalization boundary.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Null returns the null cell value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean cell value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a numeric cell value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Text wraps a text cell value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is null or empty text.
func (v Value) IsEmpty() bool {
	return v.kind == KindNull || (v.kind == KindText && v.s == "")
}

// Text renders the value as cell text. Null renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return v.s
	}
}

// Native returns the value as a plain Go scalar suitable for JSON
// encoding or backend writes: nil, bool, float64, or string.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	default:
		return v.s
	}
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool { return v == o }

// CoercionError reports a raw value that cannot be represented as a
// scalar even after structured-value serialization.
type CoercionError struct {
	Row, Col int
	Value    any
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("grid: value of type %T at row %d col %d cannot be coerced to a scalar", e.Value, e.Row, e.Col)
}

// Coerce converts an arbitrary decoded value into a tagged scalar.
// Booleans, numbers, and text pass through; nil becomes null; structured
// values (maps, slices) serialize to canonical JSON text rather than
// failing, so comment-like payloads inside a data array do not hard-fail
// the whole batch. Values with no scalar representation (channels,
// functions) return a CoercionError.
func Coerce(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Text(x.String()), nil
		}
		return Number(f), nil
	case string:
		return Text(x), nil
	case Value:
		return x, nil
	}

	switch reflect.ValueOf(raw).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		b, err := json.Marshal(raw)
		if err != nil {
			return Value{}, &CoercionError{Value: raw}
		}
		return Text(string(b)), nil
	}
	return Value{}, &CoercionError{Value: raw}
}
