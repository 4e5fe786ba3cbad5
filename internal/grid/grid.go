package grid

// Grid is a rectangular block of scalar cell values. Every row has the
// same width; the width is fixed when the grid is built.
type Grid struct {
	rows  [][]Value
	width int
}

// New builds a Grid from rows, padding ragged rows with null so the
// result is rectangular.
func New(rows [][]Value) Grid {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	out := make([][]Value, len(rows))
	for i, r := range rows {
		row := make([]Value, width)
		copy(row, r)
		for j := len(r); j < width; j++ {
			row[j] = Null()
		}
		out[i] = row
	}
	return Grid{rows: out, width: width}
}

// Empty returns a grid with no rows and zero width.
func Empty() Grid { return Grid{} }

// Height returns the row count.
func (g Grid) Height() int { return len(g.rows) }

// Width returns the column count.
func (g Grid) Width() int { return g.width }

// At returns the value at (row, col).
func (g Grid) At(row, col int) Value { return g.rows[row][col] }

// Row returns row i. The slice is shared; callers must not mutate it.
func (g Grid) Row(i int) []Value { return g.rows[i] }

// Native converts the grid to plain Go scalars row by row, for JSON
// encoding in tool results.
func (g Grid) Native() [][]any {
	out := make([][]any, len(g.rows))
	for i, row := range g.rows {
		nr := make([]any, len(row))
		for j, v := range row {
			nr[j] = v.Native()
		}
		out[i] = nr
	}
	return out
}
