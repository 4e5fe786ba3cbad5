package grid

import (
	"fmt"
	"strings"
)

// Orientation controls how a flat 1D payload is promoted when the target
// range is row-shaped versus column-shaped.
type Orientation uint8

const (
	OrientRow    Orientation = iota // single row
	OrientColumn                    // single column
)

// AlignmentError reports a row-object key that does not exist in the
// target header map (strict mode only).
type AlignmentError struct {
	Row     int
	Key     string
	Columns []string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("grid: row %d key %q not found in columns %v", e.Row, e.Key, e.Columns)
}

// NormalizeOptions direct shape handling during normalization.
type NormalizeOptions struct {
	// Headers aligns row-object keys to column positions. Required for
	// row-object input; optional for the other shapes.
	Headers *HeaderMap
	// Permissive ignores row-object keys missing from Headers instead of
	// failing with an AlignmentError.
	Permissive bool
	// Orient selects row or column promotion for flat 1D input.
	Orient Orientation
}

// Normalize converts caller-supplied data in one of the accepted shapes
// (row-major 2D, a sequence of row-objects, or a flat 1D sequence) into
// a rectangular Grid. Row-objects are projected onto the
// header map's canonical column order with case-insensitive key matching;
// columns absent from an object fill with null.
func Normalize(data []any, opts NormalizeOptions) (Grid, error) {
	if len(data) == 0 {
		return Empty(), nil
	}

	switch shapeOf(data) {
	case shapeObjects:
		return normalizeObjects(data, opts)
	case shape2D:
		return normalize2D(data)
	default:
		return normalize1D(data, opts.Orient)
	}
}

type inputShape uint8

const (
	shape1D inputShape = iota
	shape2D
	shapeObjects
)

// shapeOf inspects the first non-nil element: a map selects row-object
// handling, a slice selects 2D handling, anything else is a flat list.
func shapeOf(data []any) inputShape {
	for _, el := range data {
		switch el.(type) {
		case nil:
			continue
		case map[string]any:
			return shapeObjects
		case []any:
			return shape2D
		default:
			return shape1D
		}
	}
	return shape1D
}

func normalize2D(data []any) (Grid, error) {
	rows := make([][]Value, 0, len(data))
	for i, el := range data {
		raw, ok := el.([]any)
		if !ok {
			if el == nil {
				rows = append(rows, nil)
				continue
			}
			// A stray scalar inside a 2D payload becomes a one-cell row
			// rather than failing the batch.
			v, err := coerceAt(el, i, 0)
			if err != nil {
				return Empty(), err
			}
			rows = append(rows, []Value{v})
			continue
		}
		row := make([]Value, len(raw))
		for j, cell := range raw {
			v, err := coerceAt(cell, i, j)
			if err != nil {
				return Empty(), err
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return New(rows), nil
}

func normalizeObjects(data []any, opts NormalizeOptions) (Grid, error) {
	if opts.Headers == nil || opts.Headers.Len() == 0 {
		return Empty(), fmt.Errorf("grid: row-object input requires target headers")
	}
	rows := make([][]Value, 0, len(data))
	for i, el := range data {
		obj, ok := el.(map[string]any)
		if !ok {
			return Empty(), fmt.Errorf("grid: row %d is not a row-object (got %T)", i, el)
		}
		row := make([]Value, opts.Headers.Len())
		for j := range row {
			row[j] = Null()
		}
		for key, raw := range obj {
			pos, found := opts.Headers.Lookup(key)
			if !found {
				if opts.Permissive {
					continue
				}
				return Empty(), &AlignmentError{Row: i, Key: key, Columns: opts.Headers.Names()}
			}
			v, err := coerceAt(raw, i, pos)
			if err != nil {
				return Empty(), err
			}
			row[pos] = v
		}
		rows = append(rows, row)
	}
	return New(rows), nil
}

func normalize1D(data []any, orient Orientation) (Grid, error) {
	vals := make([]Value, len(data))
	for i, raw := range data {
		// Stamp error positions where the cell lands in the output.
		r, c := 0, i
		if orient == OrientColumn {
			r, c = i, 0
		}
		v, err := coerceAt(raw, r, c)
		if err != nil {
			return Empty(), err
		}
		vals[i] = v
	}
	if orient == OrientColumn {
		rows := make([][]Value, len(vals))
		for i, v := range vals {
			rows[i] = []Value{v}
		}
		return New(rows), nil
	}
	return New([][]Value{vals}), nil
}

func coerceAt(raw any, row, col int) (Value, error) {
	v, err := Coerce(raw)
	if err != nil {
		var ce *CoercionError
		if asCoercion(err, &ce) {
			ce.Row, ce.Col = row, col
		}
		return Value{}, err
	}
	return v, nil
}

func asCoercion(err error, target **CoercionError) bool {
	ce, ok := err.(*CoercionError)
	if ok {
		*target = ce
	}
	return ok
}

// FromStrings builds a grid from backend string cells, mapping empty
// strings to null and everything else to text.
func FromStrings(rows [][]string) Grid {
	out := make([][]Value, len(rows))
	for i, r := range rows {
		row := make([]Value, len(r))
		for j, s := range r {
			if strings.TrimSpace(s) == "" {
				row[j] = Null()
			} else {
				row[j] = Text(s)
			}
		}
		out[i] = row
	}
	return New(out)
}
