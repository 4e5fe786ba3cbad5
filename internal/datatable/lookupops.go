package datatable

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridwell/mcptab/internal/backend"
	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/header"
	"github.com/gridwell/mcptab/internal/lookup"
	"github.com/gridwell/mcptab/internal/sheetaddr"
)

// UpdateByLookupInput updates rows matched by a key column instead of
// by address.
type UpdateByLookupInput struct {
	URI              string           `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Sheet            string           `json:"sheet,omitempty" jsonschema_description:"Sheet name; defaults to the first sheet"`
	On               string           `json:"on" validate:"required" jsonschema_description:"Key column name, matched case-insensitively against the sheet's headers"`
	Rows             []map[string]any `json:"rows" validate:"required,min=1" jsonschema_description:"Row-objects; each carries the key column's value plus the columns to set"`
	OnMissing        string           `json:"on_missing,omitempty" validate:"omitempty,onmissing" jsonschema_description:"Key not found: skip (default), fail (record, continue), fail_all (abort batch)"`
	OnDuplicate      string           `json:"on_duplicate,omitempty" validate:"omitempty,onduplicate" jsonschema_description:"Key on multiple rows: error (default) or first_match"`
	CreateNewColumns bool             `json:"create_new_columns,omitempty" jsonschema_description:"Append set columns missing from the sheet instead of ignoring them"`
	OverwriteEmpty   bool             `json:"overwrite_with_empty,omitempty" jsonschema_description:"Write null and empty set values instead of dropping them"`
	HeaderRow        int              `json:"header_row,omitempty" validate:"omitempty,min=1" jsonschema_description:"1-based header row override; omit to infer"`
}

// UpdateByLookupOutput reports per-entry outcomes of a lookup update.
type UpdateByLookupOutput struct {
	URI            string   `json:"uri"`
	Sheet          string   `json:"sheet"`
	KeyColumn      string   `json:"key_column" jsonschema_description:"Canonical header the key matched"`
	Matched        int      `json:"matched" jsonschema_description:"Entries that matched a row"`
	CellsWritten   int      `json:"cells_written"`
	UnmatchedKeys  []string `json:"unmatched_keys,omitempty" jsonschema_description:"Keys skipped under on_missing=skip"`
	Errors         []string `json:"errors,omitempty" jsonschema_description:"Per-entry failures under on_missing=fail"`
	IgnoredColumns []string `json:"ignored_columns,omitempty" jsonschema_description:"Set columns absent from the sheet (create_new_columns=false)"`
	AddedColumns   []string `json:"added_columns,omitempty" jsonschema_description:"Columns appended before applying the update"`
}

// UpdateByLookup reads a sheet snapshot, locates each entry's row by key
// column value, and writes only the named cells. Untouched columns keep
// their values. The snapshot is not revalidated before the writes land;
// concurrent edits resolve last-writer-wins.
func (t *Tables) UpdateByLookup(ctx context.Context, in UpdateByLookupInput) (UpdateByLookupOutput, error) {
	var out UpdateByLookupOutput
	out.URI = in.URI

	onMissing, err := lookup.ParseMissingPolicy(in.OnMissing)
	if err != nil {
		return out, err
	}
	onDuplicate, err := lookup.ParseDuplicatePolicy(in.OnDuplicate)
	if err != nil {
		return out, err
	}

	svc, _, err := t.Router.Open(ctx, in.URI)
	if err != nil {
		return out, err
	}
	defer svc.Close()
	out.Sheet = displaySheet(ctx, svc, in.Sheet)

	ext, err := svc.Extent(ctx, in.Sheet)
	if err != nil {
		return out, err
	}
	if ext.Rows == 0 || ext.Cols == 0 {
		return out, fmt.Errorf("datatable: sheet %q is empty; nothing to update by lookup", out.Sheet)
	}
	if err := t.checkCellBudget(ext.Rows * ext.Cols); err != nil {
		return out, err
	}
	block, err := svc.Read(ctx, sheetaddr.RangeSpec{
		Sheet: in.Sheet, StartRow: 0, StartCol: 0,
		EndRow: ext.Rows - 1, EndCol: ext.Cols - 1,
	})
	if err != nil {
		return out, err
	}

	var det header.Detection
	if in.HeaderRow > 0 {
		det, err = header.FromRow(block, in.HeaderRow-1)
	} else {
		det, err = header.Detect(block, t.Limits.HeaderScanRows)
	}
	if err != nil {
		return out, err
	}
	if pos, ok := det.Headers.Lookup(in.On); ok {
		out.KeyColumn = det.Headers.Name(pos)
	}

	entries, newColumns, err := buildEntries(in.Rows, in.On, in.OverwriteEmpty)
	if err != nil {
		return out, err
	}

	if in.CreateNewColumns && len(newColumns) > 0 {
		added, err := t.appendHeaderCells(ctx, svc, in.Sheet, det, newColumns)
		if err != nil {
			return out, err
		}
		out.AddedColumns = added
	}

	dataRows := make([][]grid.Value, 0, block.Height()-det.DataStart)
	for r := det.DataStart; r < block.Height(); r++ {
		dataRows = append(dataRows, block.Row(r))
	}
	res, err := lookup.Apply(det.Headers, grid.New(dataRows), lookup.Plan{
		KeyColumn:   in.On,
		Entries:     entries,
		OnMissing:   onMissing,
		OnDuplicate: onDuplicate,
	})
	if err != nil {
		return out, err
	}

	out.Matched = res.Matched
	out.UnmatchedKeys = res.UnmatchedKeys
	out.IgnoredColumns = res.IgnoredColumns
	for _, e := range res.EntryErrors {
		out.Errors = append(out.Errors, e.Error())
	}

	for _, mut := range res.Mutations {
		row := det.DataStart + mut.Row
		spec := sheetaddr.RangeSpec{
			Sheet:    in.Sheet,
			StartRow: row, StartCol: mut.Col,
			EndRow: row, EndCol: mut.Col,
		}
		ack, err := svc.Write(ctx, spec, grid.New([][]grid.Value{{mut.Value}}))
		if err != nil {
			return out, err
		}
		out.CellsWritten += ack.CellsWritten
	}
	return out, nil
}

// buildEntries converts wire row-objects into lookup entries, splitting
// out set columns that do not yet exist when the caller wants them
// created. Keys match the key column case-insensitively.
func buildEntries(rows []map[string]any, keyColumn string, overwriteEmpty bool) ([]lookup.Entry, []string, error) {
	keyFold := strings.ToLower(strings.TrimSpace(keyColumn))
	var (
		entries []lookup.Entry
		order   []string
		seen    = map[string]string{}
	)
	for i, obj := range rows {
		var entry lookup.Entry
		entry.Set = make(map[string]grid.Value)
		keyFound := false
		for k, raw := range obj {
			v, err := grid.Coerce(raw)
			if err != nil {
				return nil, nil, err
			}
			if strings.ToLower(strings.TrimSpace(k)) == keyFold {
				entry.Key = v
				keyFound = true
				continue
			}
			if !overwriteEmpty && v.IsEmpty() {
				continue
			}
			entry.Set[k] = v
			fold := strings.ToLower(strings.TrimSpace(k))
			if _, dup := seen[fold]; !dup {
				seen[fold] = k
				order = append(order, k)
			}
		}
		if !keyFound {
			return nil, nil, fmt.Errorf("datatable: row %d does not carry key column %q", i, keyColumn)
		}
		entries = append(entries, entry)
	}
	return entries, order, nil
}

// appendHeaderCells extends the detected header map with the set columns
// missing from the sheet and writes the new header cells.
func (t *Tables) appendHeaderCells(ctx context.Context, svc backend.Service, sheet string, det header.Detection, candidates []string) ([]string, error) {
	var fresh []string
	for _, name := range candidates {
		if _, exists := det.Headers.Lookup(name); exists {
			continue
		}
		if err := det.Headers.Append(name); err != nil {
			return nil, err
		}
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	startCol := det.Headers.Len() - len(fresh)
	cells := make([]grid.Value, len(fresh))
	for i, name := range fresh {
		cells[i] = grid.Text(name)
	}
	spec := sheetaddr.RangeSpec{
		Sheet:    sheet,
		StartRow: det.HeaderRow, StartCol: startCol,
		EndRow: det.HeaderRow, EndCol: startCol + len(fresh) - 1,
	}
	if _, err := svc.Write(ctx, spec, grid.New([][]grid.Value{cells})); err != nil {
		return nil, err
	}
	return fresh, nil
}
