// Package sheetaddr parses and formats A1-style range addresses and
// resolves open-ended forms against a sheet's current extent.
package sheetaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// Open marks a row or column bound that extends to the sheet extent.
// Concrete indices are 0-based internally; the A1 surface syntax is 1-based.
const Open = -1

// RangeSpec is a structured range over a named sheet. Bounds are either
// concrete 0-based indices or Open.
type RangeSpec struct {
	Sheet    string
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// Extent reports a sheet's current used size in rows and columns.
type Extent struct {
	Rows int
	Cols int
}

// SyntaxError reports a malformed address string together with the
// offending token so callers can surface an actionable message.
type SyntaxError struct {
	Input  string
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Token != "" && e.Token != e.Input {
		return fmt.Sprintf("sheetaddr: invalid range %q: %s (at %q)", e.Input, e.Reason, e.Token)
	}
	return fmt.Sprintf("sheetaddr: invalid range %q: %s", e.Input, e.Reason)
}

// endpoint is one side of a range: a cell, a bare column, or a bare row.
type endpoint struct {
	row int // 0-based or Open
	col int // 0-based or Open
}

// Parse accepts a single cell (B5), a bounded rectangle (A1:C10), a
// column-open form (B:B, B2:B), and a row-open form (2:1000). An optional
// sheet qualifier (Sheet1! or 'My Sheet'!) precedes the address.
func Parse(addr string) (RangeSpec, error) {
	s := strings.TrimSpace(addr)
	if s == "" {
		return RangeSpec{}, &SyntaxError{Input: addr, Reason: "empty address"}
	}

	var sheet string
	if i := splitSheet(s); i >= 0 {
		var err error
		sheet, err = unquoteSheet(s[:i])
		if err != nil {
			return RangeSpec{}, &SyntaxError{Input: addr, Token: s[:i], Reason: err.Error()}
		}
		s = s[i+1:]
	}
	if s == "" {
		return RangeSpec{}, &SyntaxError{Input: addr, Reason: "missing range after sheet qualifier"}
	}

	parts := strings.Split(s, ":")
	if len(parts) > 2 {
		return RangeSpec{}, &SyntaxError{Input: addr, Token: s, Reason: "more than one ':'"}
	}

	start, err := parseEndpoint(addr, parts[0])
	if err != nil {
		return RangeSpec{}, err
	}

	if len(parts) == 1 {
		// Single endpoint must be a fully concrete cell.
		if start.row == Open || start.col == Open {
			return RangeSpec{}, &SyntaxError{Input: addr, Token: parts[0], Reason: "bare row or column requires a ':' form"}
		}
		return RangeSpec{Sheet: sheet, StartRow: start.row, StartCol: start.col, EndRow: start.row, EndCol: start.col}, nil
	}

	end, err := parseEndpoint(addr, parts[1])
	if err != nil {
		return RangeSpec{}, err
	}

	r := RangeSpec{Sheet: sheet, StartRow: start.row, StartCol: start.col, EndRow: end.row, EndCol: end.col}

	// A fully open range carries no information at all.
	if r.StartRow == Open && r.StartCol == Open && r.EndRow == Open && r.EndCol == Open {
		return RangeSpec{}, &SyntaxError{Input: addr, Token: s, Reason: "fully open range"}
	}
	// Row-open form 2:1000 spans the full column extent; column-open form
	// B:B spans the full row extent. Mixed bare row/column endpoints
	// (e.g. "B:5") do not describe a rectangle.
	if (start.row == Open) != (end.row == Open) && start.col == Open && end.col != Open {
		return RangeSpec{}, &SyntaxError{Input: addr, Token: s, Reason: "mismatched open bounds"}
	}
	if (start.col == Open) != (end.col == Open) && start.row == Open && end.row != Open {
		return RangeSpec{}, &SyntaxError{Input: addr, Token: s, Reason: "mismatched open bounds"}
	}

	r.normalize()
	return r, nil
}

// normalize swaps reversed concrete bounds so StartRow<=EndRow and
// StartCol<=EndCol, matching spreadsheet conventions (A5:A1 == A1:A5).
func (r *RangeSpec) normalize() {
	if r.StartRow != Open && r.EndRow != Open && r.StartRow > r.EndRow {
		r.StartRow, r.EndRow = r.EndRow, r.StartRow
	}
	if r.StartCol != Open && r.EndCol != Open && r.StartCol > r.EndCol {
		r.StartCol, r.EndCol = r.EndCol, r.StartCol
	}
	// An open start with a concrete end (B:B5) anchors at the first row
	// or column; only end bounds stay open.
	if r.StartRow == Open && r.EndRow != Open {
		r.StartRow = 0
	}
	if r.StartCol == Open && r.EndCol != Open {
		r.StartCol = 0
	}
}

func parseEndpoint(input, tok string) (endpoint, error) {
	t := strings.ToUpper(strings.TrimSpace(tok))
	if t == "" {
		return endpoint{}, &SyntaxError{Input: input, Token: tok, Reason: "empty endpoint"}
	}
	i := 0
	for i < len(t) && t[i] >= 'A' && t[i] <= 'Z' {
		i++
	}
	letters, digits := t[:i], t[i:]
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return endpoint{}, &SyntaxError{Input: input, Token: tok, Reason: "unexpected character"}
		}
	}

	ep := endpoint{row: Open, col: Open}
	if letters != "" {
		col, err := ColumnIndex(letters)
		if err != nil {
			return endpoint{}, &SyntaxError{Input: input, Token: tok, Reason: err.Error()}
		}
		ep.col = col
	}
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 {
			return endpoint{}, &SyntaxError{Input: input, Token: tok, Reason: "row must be a positive number"}
		}
		ep.row = n - 1
	}
	return ep, nil
}

// splitSheet returns the index of the '!' separating a sheet qualifier,
// honoring single-quoted sheet names, or -1 when absent.
func splitSheet(s string) int {
	if strings.HasPrefix(s, "'") {
		for i := 1; i < len(s); i++ {
			if s[i] != '\'' {
				continue
			}
			if i+1 < len(s) && s[i+1] == '\'' { // escaped quote
				i++
				continue
			}
			if i+1 < len(s) && s[i+1] == '!' {
				return i + 1
			}
			return -1
		}
		return -1
	}
	return strings.IndexByte(s, '!')
}

func unquoteSheet(s string) (string, error) {
	if !strings.HasPrefix(s, "'") {
		if s == "" {
			return "", fmt.Errorf("empty sheet name")
		}
		return s, nil
	}
	if len(s) < 2 || !strings.HasSuffix(s, "'") {
		return "", fmt.Errorf("unterminated quoted sheet name")
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
}

// Format renders the spec back to A1 text, preserving open forms. The
// cell set referred to by Parse(Format(r)) is identical to r's.
func (r RangeSpec) Format() string {
	var b strings.Builder
	if r.Sheet != "" {
		b.WriteString(quoteSheet(r.Sheet))
		b.WriteByte('!')
	}
	switch {
	case r.StartCol == Open && r.EndCol == Open:
		// Row-open form across the full column extent, e.g. 2:1000.
		fmt.Fprintf(&b, "%d:%d", r.StartRow+1, r.EndRow+1)
	case r.StartRow == Open && r.EndRow == Open:
		// Column form across the full row extent, e.g. B:D.
		b.WriteString(ColumnLetters(r.StartCol))
		b.WriteByte(':')
		b.WriteString(ColumnLetters(r.EndCol))
	case r.EndRow == Open:
		// Column-open continuation, e.g. B2:B.
		b.WriteString(ColumnLetters(r.StartCol))
		fmt.Fprintf(&b, "%d:", r.StartRow+1)
		b.WriteString(ColumnLetters(r.EndCol))
	case r.StartRow == r.EndRow && r.StartCol == r.EndCol:
		b.WriteString(ColumnLetters(r.StartCol))
		b.WriteString(strconv.Itoa(r.StartRow + 1))
	default:
		b.WriteString(ColumnLetters(r.StartCol))
		b.WriteString(strconv.Itoa(r.StartRow + 1))
		b.WriteByte(':')
		b.WriteString(ColumnLetters(r.EndCol))
		b.WriteString(strconv.Itoa(r.EndRow + 1))
	}
	return b.String()
}

func quoteSheet(name string) string {
	if strings.ContainsAny(name, " !'") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// Resolve fixes open bounds against the sheet's extent at call time.
// Extents are re-read per call rather than cached; sheets can grow
// between requests. The resolved range always spans at least one cell.
func (r RangeSpec) Resolve(ext Extent) RangeSpec {
	out := r
	if out.StartRow == Open {
		out.StartRow = 0
	}
	if out.StartCol == Open {
		out.StartCol = 0
	}
	if out.EndRow == Open {
		out.EndRow = ext.Rows - 1
	}
	if out.EndCol == Open {
		out.EndCol = ext.Cols - 1
	}
	if out.EndRow < out.StartRow {
		out.EndRow = out.StartRow
	}
	if out.EndCol < out.StartCol {
		out.EndCol = out.StartCol
	}
	return out
}

// Bounded reports whether every bound is concrete.
func (r RangeSpec) Bounded() bool {
	return r.StartRow != Open && r.StartCol != Open && r.EndRow != Open && r.EndCol != Open
}

// Height returns the number of rows in a bounded range.
func (r RangeSpec) Height() int { return r.EndRow - r.StartRow + 1 }

// Width returns the number of columns in a bounded range.
func (r RangeSpec) Width() int { return r.EndCol - r.StartCol + 1 }

// ExpandTo grows a bounded range so it covers at least rows x cols cells
// from its anchor. The effective write is always at least as large as the
// data; a tight caller-supplied range never truncates.
func (r RangeSpec) ExpandTo(rows, cols int) RangeSpec {
	out := r
	if want := r.StartRow + rows - 1; want > out.EndRow {
		out.EndRow = want
	}
	if want := r.StartCol + cols - 1; want > out.EndCol {
		out.EndCol = want
	}
	return out
}

// Cell renders a single 0-based coordinate as an A1 cell reference.
func Cell(row, col int) string {
	return ColumnLetters(col) + strconv.Itoa(row+1)
}

// ColumnLetters converts a 0-based column index to its letter encoding
// (0=A, 25=Z, 26=AA, ...).
func ColumnLetters(idx int) string {
	if idx < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for idx >= 0 {
		i--
		buf[i] = byte('A' + idx%26)
		idx = idx/26 - 1
	}
	return string(buf[i:])
}

// ColumnIndex converts a column letter encoding to a 0-based index.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column letters")
	}
	idx := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q", string(letters[i]))
		}
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1, nil
}
