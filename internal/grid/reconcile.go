package grid

import (
	"fmt"
	"strings"
)

// FillPolicy selects how a grid smaller than its target shape is padded.
type FillPolicy uint8

const (
	FillNone  FillPolicy = iota // fail on mismatch
	FillNull                    // pad with null
	FillEmpty                   // pad with empty string
	FillZero                    // pad with zero
)

// ParseFillPolicy maps the wire spelling to a policy.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "fill-null", "fill_null":
		return FillNull, nil
	case "none", "fail":
		return FillNone, nil
	case "empty", "fill-empty", "fill_empty":
		return FillEmpty, nil
	case "zero", "fill-zero", "fill_zero":
		return FillZero, nil
	}
	return FillNone, fmt.Errorf("grid: unknown fill policy %q", s)
}

func (p FillPolicy) String() string {
	switch p {
	case FillNone:
		return "none"
	case FillNull:
		return "null"
	case FillEmpty:
		return "empty"
	default:
		return "zero"
	}
}

func (p FillPolicy) fill() Value {
	switch p {
	case FillEmpty:
		return Text("")
	case FillZero:
		return Number(0)
	default:
		return Null()
	}
}

// Shape is a rows x columns target taken from a resolved range.
type Shape struct {
	Rows int
	Cols int
}

// DimensionError reports a shape mismatch under FillNone. It carries both
// shapes so callers can present the discrepancy.
type DimensionError struct {
	Got  Shape
	Want Shape
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("grid: data shape %dx%d does not match target %dx%d and fill policy is none",
		e.Got.Rows, e.Got.Cols, e.Want.Rows, e.Want.Cols)
}

// Reconcile returns a grid of at least the target shape. A smaller grid is
// padded per the fill policy; a larger grid is returned whole so the
// caller expands the target range instead of truncating data. The input
// grid is never mutated. Warnings describe any shape change.
func Reconcile(g Grid, target Shape, policy FillPolicy) (Grid, []string, error) {
	got := Shape{Rows: g.Height(), Cols: g.Width()}
	if got == target {
		return g, nil, nil
	}
	if policy == FillNone && (got.Rows < target.Rows || got.Cols < target.Cols) {
		return Empty(), nil, &DimensionError{Got: got, Want: target}
	}

	outRows := got.Rows
	if target.Rows > outRows {
		outRows = target.Rows
	}
	outCols := got.Cols
	if target.Cols > outCols {
		outCols = target.Cols
	}

	pad := policy.fill()
	rows := make([][]Value, outRows)
	for i := 0; i < outRows; i++ {
		row := make([]Value, outCols)
		for j := 0; j < outCols; j++ {
			if i < got.Rows && j < got.Cols {
				row[j] = g.At(i, j)
			} else {
				row[j] = pad
			}
		}
		rows[i] = row
	}

	var warnings []string
	if got.Rows < target.Rows || got.Cols < target.Cols {
		warnings = append(warnings, fmt.Sprintf(
			"data shape %dx%d padded to %dx%d with %s fill", got.Rows, got.Cols, outRows, outCols, policy))
	}
	if got.Rows > target.Rows || got.Cols > target.Cols {
		warnings = append(warnings, fmt.Sprintf(
			"data shape %dx%d exceeds target %dx%d; range expands to fit", got.Rows, got.Cols, target.Rows, target.Cols))
	}
	return Grid{rows: rows, width: outCols}, warnings, nil
}
