// Package header implements header-row detection for sheets where the
// caller did not name an explicit starting row. Candidate rows near the
// top of the sheet are scored; preamble (report titles, merged banner
// rows, blank spacer rows) scores near zero and is discarded.
package header

import (
	"fmt"
	"strings"

	"github.com/gridwell/mcptab/internal/grid"
)

// DefaultScanRows bounds how many leading rows are considered.
const DefaultScanRows = 5

// Candidate records the score assigned to one row during detection.
type Candidate struct {
	Row      int     `json:"row"`
	Score    float64 `json:"score"`
	NonEmpty int     `json:"non_empty"`
	Unique   int     `json:"unique"`
}

// Detection is the outcome of header inference.
type Detection struct {
	HeaderRow  int // index of the chosen header row within the scanned block
	DataStart  int // index of the first data row
	Headers    *grid.HeaderMap
	Candidates []Candidate
}

// DetectionError reports that no row scored above the confidence floor.
// The scored candidates travel with the error for caller diagnosis.
type DetectionError struct {
	Candidates []Candidate
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("header: no row qualifies as a header among %d candidates; supply an explicit header row", len(e.Candidates))
}

// Detect scores the first maxScan rows of g and picks the header row.
// A row's score is its count of non-empty, case-insensitively unique
// cells; fully empty rows and single-cell title rows score zero. The
// topmost row clearing the confidence floor wins: data rows below may
// score higher (a fully populated row beats a header with blank or
// repeated labels), but they describe records, not columns. Rows above
// the winner are discarded preamble.
func Detect(g grid.Grid, maxScan int) (Detection, error) {
	if maxScan <= 0 {
		maxScan = DefaultScanRows
	}
	if g.Height() < maxScan {
		maxScan = g.Height()
	}

	candidates := make([]Candidate, 0, maxScan)
	best := -1
	for i := 0; i < maxScan; i++ {
		c := scoreRow(i, g.Row(i))
		candidates = append(candidates, c)
		if best < 0 && c.Score >= 2 {
			best = i
		}
	}

	if best < 0 {
		return Detection{Candidates: candidates}, &DetectionError{Candidates: candidates}
	}

	headers, err := headerMapFromRow(g.Row(best))
	if err != nil {
		return Detection{Candidates: candidates}, err
	}
	return Detection{
		HeaderRow:  best,
		DataStart:  best + 1,
		Headers:    headers,
		Candidates: candidates,
	}, nil
}

// scoreRow counts non-empty, unique cell values. A row with at most one
// non-empty cell looks like a title or merged banner and scores zero.
func scoreRow(idx int, row []grid.Value) Candidate {
	seen := make(map[string]struct{}, len(row))
	nonEmpty := 0
	for _, v := range row {
		s := strings.TrimSpace(v.Text())
		if s == "" {
			continue
		}
		nonEmpty++
		seen[strings.ToLower(s)] = struct{}{}
	}
	c := Candidate{Row: idx, NonEmpty: nonEmpty, Unique: len(seen)}
	if nonEmpty <= 1 {
		return c
	}
	c.Score = float64(len(seen))
	return c
}

// headerMapFromRow builds a HeaderMap from the winning row. Blank cells
// receive positional placeholders; duplicated names are suffixed with
// their position so the map's uniqueness invariant holds.
func headerMapFromRow(row []grid.Value) (*grid.HeaderMap, error) {
	names := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, v := range row {
		name := strings.TrimSpace(v.Text())
		if name == "" {
			names[i] = "" // NewHeaderMap assigns Column_N
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			name = fmt.Sprintf("%s_%d", name, i+1)
			key = strings.ToLower(name)
		}
		seen[key] = i
		names[i] = name
	}
	return grid.NewHeaderMap(names)
}

// FromRow bypasses inference: the given 0-based row index becomes the
// header row. Used when the caller supplies an explicit starting row.
func FromRow(g grid.Grid, row int) (Detection, error) {
	if row < 0 || row >= g.Height() {
		return Detection{}, fmt.Errorf("header: row %d out of range (sheet has %d rows)", row+1, g.Height())
	}
	headers, err := headerMapFromRow(g.Row(row))
	if err != nil {
		return Detection{}, err
	}
	return Detection{HeaderRow: row, DataStart: row + 1, Headers: headers}, nil
}
