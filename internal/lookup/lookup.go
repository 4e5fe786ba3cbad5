// Package lookup computes minimal cell mutations for key-matched partial
// row updates: UPDATE ... WHERE key = x SET col = val semantics over a
// previously fetched sheet snapshot.
package lookup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridwell/mcptab/internal/grid"
)

// MissingPolicy controls what happens when an entry's key matches no
// snapshot row.
type MissingPolicy uint8

const (
	MissingSkip    MissingPolicy = iota // record the key, keep going
	MissingFail                         // fail that entry, others proceed
	MissingFailAll                      // abort the whole batch
)

// ParseMissingPolicy maps the wire spelling to a policy.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip", "ignore":
		return MissingSkip, nil
	case "fail":
		return MissingFail, nil
	case "fail-all", "fail_all":
		return MissingFailAll, nil
	}
	return MissingSkip, fmt.Errorf("lookup: unknown on_missing policy %q", s)
}

// DuplicatePolicy controls behavior when the key column is not unique
// within the snapshot. First-match is a deliberate, opt-in degradation;
// the default surfaces the ambiguity.
type DuplicatePolicy uint8

const (
	DuplicateError      DuplicatePolicy = iota
	DuplicateFirstMatch                 // first occurrence wins
)

// ParseDuplicatePolicy maps the wire spelling to a policy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error", "fail":
		return DuplicateError, nil
	case "first_match", "first-match", "first":
		return DuplicateFirstMatch, nil
	}
	return DuplicateError, fmt.Errorf("lookup: unknown on_duplicate policy %q", s)
}

// Entry is one update request: a key value to match in the key column and
// the named columns to set on the matched row. Columns not named are
// never touched.
type Entry struct {
	Key grid.Value
	Set map[string]grid.Value
}

// Plan describes a batch of lookup updates against one sheet snapshot.
type Plan struct {
	KeyColumn   string
	Entries     []Entry
	OnMissing   MissingPolicy
	OnDuplicate DuplicatePolicy
}

// Mutation is a single-cell update at an absolute snapshot position.
type Mutation struct {
	Row    int // 0-based row within the snapshot's data block
	Col    int // 0-based column position from the header map
	Column string
	Value  grid.Value
}

// KeyNotFoundError reports an entry whose key matched no snapshot row.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("lookup: key %q not found in snapshot", e.Key)
}

// AmbiguousKeyError reports a key that occurs on more than one snapshot
// row while first-match was not opted into.
type AmbiguousKeyError struct {
	Key  string
	Rows []int
}

func (e *AmbiguousKeyError) Error() string {
	return fmt.Sprintf("lookup: key %q is ambiguous in snapshot (rows %v); set on_duplicate=first_match to accept the first occurrence", e.Key, e.Rows)
}

// KeyColumnError reports that the plan's key column is missing from the
// snapshot's headers.
type KeyColumnError struct {
	Column  string
	Columns []string
}

func (e *KeyColumnError) Error() string {
	return fmt.Sprintf("lookup: key column %q not found in sheet columns %v", e.Column, e.Columns)
}

// Result carries the computed mutations plus per-entry outcomes. Entries
// that fail individually do not disturb mutations from other entries.
type Result struct {
	Mutations      []Mutation
	Matched        int
	UnmatchedKeys  []string
	EntryErrors    []error
	IgnoredColumns []string
}

// Apply indexes the snapshot by the key column (case-insensitive, first
// occurrence wins) and computes mutations for each plan entry. Set
// columns missing from the header map are collected in IgnoredColumns
// rather than emitted. The engine is stateless; the snapshot may be stale
// by write time (last-writer-wins, no transaction token).
func Apply(headers *grid.HeaderMap, rows grid.Grid, plan Plan) (Result, error) {
	var res Result

	keyCol, ok := headers.Lookup(plan.KeyColumn)
	if !ok {
		return res, &KeyColumnError{Column: plan.KeyColumn, Columns: headers.Names()}
	}

	index := make(map[string]int, rows.Height())
	dups := make(map[string][]int)
	for i := 0; i < rows.Height(); i++ {
		if keyCol >= rows.Width() {
			continue
		}
		key := foldKey(rows.At(i, keyCol))
		if key == "" {
			continue
		}
		if first, seen := index[key]; seen {
			if len(dups[key]) == 0 {
				dups[key] = []int{first}
			}
			dups[key] = append(dups[key], i)
			continue
		}
		index[key] = i
	}

	ignored := make(map[string]struct{})
	for _, entry := range plan.Entries {
		key := foldKey(entry.Key)
		row, found := index[key]
		if !found {
			res.UnmatchedKeys = append(res.UnmatchedKeys, entry.Key.Text())
			switch plan.OnMissing {
			case MissingFailAll:
				return Result{}, &KeyNotFoundError{Key: entry.Key.Text()}
			case MissingFail:
				res.EntryErrors = append(res.EntryErrors, &KeyNotFoundError{Key: entry.Key.Text()})
			}
			continue
		}
		if dupRows, dup := dups[key]; dup && plan.OnDuplicate != DuplicateFirstMatch {
			res.EntryErrors = append(res.EntryErrors, &AmbiguousKeyError{Key: entry.Key.Text(), Rows: dupRows})
			continue
		}

		res.Matched++
		// Emit mutations in canonical column order so output is stable.
		byPos := make(map[int]grid.Value, len(entry.Set))
		for col, val := range entry.Set {
			pos, known := headers.Lookup(col)
			if !known {
				ignored[col] = struct{}{}
				continue
			}
			byPos[pos] = val
		}
		for pos := 0; pos < headers.Len(); pos++ {
			val, set := byPos[pos]
			if !set {
				continue
			}
			res.Mutations = append(res.Mutations, Mutation{
				Row:    row,
				Col:    pos,
				Column: headers.Name(pos),
				Value:  val,
			})
		}
	}

	for col := range ignored {
		res.IgnoredColumns = append(res.IgnoredColumns, col)
	}
	sort.Strings(res.IgnoredColumns)
	return res, nil
}

// foldKey matches key values case-insensitively and ignores surrounding
// whitespace, so "@User1" and "@user1" address the same row.
func foldKey(v grid.Value) string {
	return strings.ToLower(strings.TrimSpace(v.Text()))
}
