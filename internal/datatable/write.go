package datatable

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridwell/mcptab/internal/backend"
	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/header"
	"github.com/gridwell/mcptab/internal/sheetaddr"
)

// UpdateRangeInput carries a block write with shape reconciliation.
type UpdateRangeInput struct {
	URI        string `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Range      string `json:"range,omitempty" validate:"omitempty,a1range" jsonschema_description:"Target A1 range; defaults to A1. Open forms allowed; the range grows to fit the data, it never truncates"`
	Sheet      string `json:"sheet,omitempty" jsonschema_description:"Sheet name when the range carries no qualifier"`
	Data       []any  `json:"data" validate:"required" jsonschema_description:"2D rows, row-objects keyed by header, or a flat 1D list"`
	Fill       string `json:"fill_policy,omitempty" validate:"omitempty,fillpolicy" jsonschema_description:"How to pad data smaller than the range: none (fail), null (default), empty, zero"`
	Orient     string `json:"orient,omitempty" validate:"omitempty,oneof=rows columns" jsonschema_description:"Promotion for flat 1D data: rows or columns; inferred from the range shape when omitted"`
	Permissive bool   `json:"permissive,omitempty" jsonschema_description:"Ignore row-object keys that match no sheet column instead of failing"`
}

// WriteOutput reports the outcome of a write-shaped operation.
type WriteOutput struct {
	URI          string   `json:"uri"`
	Sheet        string   `json:"sheet"`
	Range        string   `json:"range" jsonschema_description:"Bounded A1 range actually written"`
	CellsWritten int      `json:"cells_written"`
	Warnings     []string `json:"warnings,omitempty" jsonschema_description:"Padding and expansion notices"`
}

// UpdateRange normalizes the payload, reconciles it against the target
// range, and writes the block. Data larger than the range expands the
// range; data smaller is padded per the fill policy.
func (t *Tables) UpdateRange(ctx context.Context, in UpdateRangeInput) (WriteOutput, error) {
	var out WriteOutput
	out.URI = in.URI

	policy, err := grid.ParseFillPolicy(in.Fill)
	if err != nil {
		return out, err
	}

	svc, _, err := t.Router.Open(ctx, in.URI)
	if err != nil {
		return out, err
	}
	defer svc.Close()

	rangeA1 := in.Range
	if strings.TrimSpace(rangeA1) == "" {
		rangeA1 = "A1"
	}
	spec, err := t.resolveWriteTarget(ctx, svc, rangeA1, in.Sheet)
	if err != nil {
		return out, err
	}
	out.Sheet = displaySheet(ctx, svc, spec.Sheet)

	g, err := t.normalizePayload(ctx, svc, spec, in.Data, in.Orient, in.Permissive)
	if err != nil {
		return out, err
	}
	if g.Height() == 0 {
		return out, fmt.Errorf("datatable: no data to write")
	}

	g, warnings, err := grid.Reconcile(g, grid.Shape{Rows: spec.Height(), Cols: spec.Width()}, policy)
	if err != nil {
		return out, err
	}
	out.Warnings = warnings

	spec = spec.ExpandTo(g.Height(), g.Width())
	if err := t.checkCellBudget(spec.Height() * spec.Width()); err != nil {
		return out, err
	}
	ack, err := svc.Write(ctx, spec, g)
	if err != nil {
		return out, err
	}
	out.Range = ack.Range.Format()
	out.CellsWritten = ack.CellsWritten
	return out, nil
}

// AppendRowsInput appends data rows after the last used row.
type AppendRowsInput struct {
	URI        string `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Sheet      string `json:"sheet,omitempty" jsonschema_description:"Sheet name; defaults to the first sheet"`
	Data       []any  `json:"data" validate:"required" jsonschema_description:"2D rows or row-objects keyed by the sheet's headers"`
	Permissive bool   `json:"permissive,omitempty" jsonschema_description:"Ignore row-object keys that match no sheet column instead of failing"`
}

// AppendRows writes the normalized rows starting on the row after the
// sheet's used extent. Row-objects align to the sheet's detected headers.
func (t *Tables) AppendRows(ctx context.Context, in AppendRowsInput) (WriteOutput, error) {
	var out WriteOutput
	out.URI = in.URI

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

	var g grid.Grid
	if isObjectRows(in.Data) {
		det, err := t.sheetHeaders(ctx, svc, in.Sheet, ext)
		if err != nil {
			return out, err
		}
		g, err = grid.Normalize(in.Data, grid.NormalizeOptions{Headers: det.Headers, Permissive: in.Permissive})
		if err != nil {
			return out, err
		}
	} else {
		g, err = grid.Normalize(in.Data, grid.NormalizeOptions{})
		if err != nil {
			return out, err
		}
	}
	if g.Height() == 0 {
		return out, fmt.Errorf("datatable: no rows to append")
	}

	spec := sheetaddr.RangeSpec{
		Sheet:    in.Sheet,
		StartRow: ext.Rows, StartCol: 0,
		EndRow: ext.Rows + g.Height() - 1, EndCol: g.Width() - 1,
	}
	if err := t.checkCellBudget(spec.Height() * spec.Width()); err != nil {
		return out, err
	}
	ack, err := svc.Write(ctx, spec, g)
	if err != nil {
		return out, err
	}
	out.Range = ack.Range.Format()
	out.CellsWritten = ack.CellsWritten
	return out, nil
}

// AppendColumnsInput adds named columns after the last used column.
type AppendColumnsInput struct {
	URI       string   `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Sheet     string   `json:"sheet,omitempty" jsonschema_description:"Sheet name; defaults to the first sheet"`
	Names     []string `json:"names" validate:"required,min=1" jsonschema_description:"Column names to add, in order"`
	HeaderRow int      `json:"header_row,omitempty" validate:"omitempty,min=1" jsonschema_description:"1-based header row override; omit to infer"`
}

// AppendColumnsOutput lists the columns actually added.
type AppendColumnsOutput struct {
	URI      string   `json:"uri"`
	Sheet    string   `json:"sheet"`
	Added    []string `json:"added" jsonschema_description:"Names written, as COLUMN=LETTER pairs"`
	Skipped  []string `json:"skipped,omitempty" jsonschema_description:"Names that already exist (case-insensitive)"`
	Range    string   `json:"range,omitempty" jsonschema_description:"Header cells written"`
	Warnings []string `json:"warnings,omitempty"`
}

// AppendColumns writes new header cells after the sheet's last used
// column. Names already present are skipped, not duplicated.
func (t *Tables) AppendColumns(ctx context.Context, in AppendColumnsInput) (AppendColumnsOutput, error) {
	var out AppendColumnsOutput
	out.URI = in.URI

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
	block, err := svc.Read(ctx, sheetaddr.RangeSpec{
		Sheet: in.Sheet, StartRow: 0, StartCol: 0,
		EndRow: maxInt(ext.Rows-1, 0), EndCol: maxInt(ext.Cols-1, 0),
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

	var fresh []string
	for _, name := range in.Names {
		if _, exists := det.Headers.Lookup(name); exists {
			out.Skipped = append(out.Skipped, name)
			continue
		}
		if err := det.Headers.Append(name); err != nil {
			return out, err
		}
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return out, nil
	}

	startCol := det.Headers.Len() - len(fresh)
	cells := make([]grid.Value, len(fresh))
	for i, name := range fresh {
		cells[i] = grid.Text(name)
		out.Added = append(out.Added, fmt.Sprintf("%s=%s", name, sheetaddr.ColumnLetters(startCol+i)))
	}
	spec := sheetaddr.RangeSpec{
		Sheet:    in.Sheet,
		StartRow: det.HeaderRow, StartCol: startCol,
		EndRow: det.HeaderRow, EndCol: startCol + len(fresh) - 1,
	}
	ack, err := svc.Write(ctx, spec, grid.New([][]grid.Value{cells}))
	if err != nil {
		return out, err
	}
	out.Range = ack.Range.Format()
	return out, nil
}

// ClearRangeInput blanks a cell block.
type ClearRangeInput struct {
	URI   string `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Range string `json:"range" validate:"required,a1range" jsonschema_description:"A1 range to clear; open forms resolve against the used extent"`
	Sheet string `json:"sheet,omitempty" jsonschema_description:"Sheet name when the range carries no qualifier"`
}

// ClearRange blanks the cells in the resolved range. Values are removed;
// the rows and columns themselves remain.
func (t *Tables) ClearRange(ctx context.Context, in ClearRangeInput) (WriteOutput, error) {
	var out WriteOutput
	out.URI = in.URI

	svc, _, err := t.Router.Open(ctx, in.URI)
	if err != nil {
		return out, err
	}
	defer svc.Close()

	spec, err := t.resolveBlock(ctx, svc, in.Range, in.Sheet)
	if err != nil {
		return out, err
	}
	out.Sheet = displaySheet(ctx, svc, spec.Sheet)

	if err := t.checkCellBudget(spec.Height() * spec.Width()); err != nil {
		return out, err
	}
	ack, err := svc.Clear(ctx, spec)
	if err != nil {
		return out, err
	}
	out.Range = ack.Range.Format()
	out.CellsWritten = ack.CellsWritten
	return out, nil
}

// resolveWriteTarget parses the target range for a write. Open bounds
// resolve against the used extent; on an empty sheet they anchor at the
// range start so the write can establish the block.
func (t *Tables) resolveWriteTarget(ctx context.Context, svc backend.Service, rangeA1, sheet string) (sheetaddr.RangeSpec, error) {
	spec, err := sheetaddr.Parse(rangeA1)
	if err != nil {
		return spec, err
	}
	if spec.Sheet == "" {
		spec.Sheet = sheet
	}
	if spec.Bounded() {
		return spec, nil
	}
	ext, err := svc.Extent(ctx, spec.Sheet)
	if err != nil {
		return spec, err
	}
	if ext.Rows == 0 || ext.Cols == 0 {
		ext = sheetaddr.Extent{Rows: spec.StartRow + 1, Cols: spec.StartCol + 1}
	}
	return spec.Resolve(ext), nil
}

// normalizePayload runs shape normalization, fetching the sheet's header
// map first when the payload is row-objects.
func (t *Tables) normalizePayload(ctx context.Context, svc backend.Service, target sheetaddr.RangeSpec, data []any, orient string, permissive bool) (grid.Grid, error) {
	opts := grid.NormalizeOptions{Permissive: permissive}
	switch orient {
	case "columns":
		opts.Orient = grid.OrientColumn
	case "rows", "":
		// A column-shaped target promotes flat input down the column.
		if orient == "" && target.Width() == 1 && target.Height() > 1 {
			opts.Orient = grid.OrientColumn
		}
	}
	if isObjectRows(data) {
		ext, err := svc.Extent(ctx, target.Sheet)
		if err != nil {
			return grid.Empty(), err
		}
		det, err := t.sheetHeaders(ctx, svc, target.Sheet, ext)
		if err != nil {
			return grid.Empty(), err
		}
		opts.Headers = det.Headers
	}
	return grid.Normalize(data, opts)
}

// sheetHeaders reads the top of the sheet and detects its header map.
func (t *Tables) sheetHeaders(ctx context.Context, svc backend.Service, sheet string, ext sheetaddr.Extent) (header.Detection, error) {
	if ext.Rows == 0 || ext.Cols == 0 {
		return header.Detection{}, fmt.Errorf("datatable: sheet %q has no header row to align row-objects against", sheet)
	}
	scan := t.Limits.HeaderScanRows
	if scan <= 0 {
		scan = header.DefaultScanRows
	}
	if scan > ext.Rows {
		scan = ext.Rows
	}
	block, err := svc.Read(ctx, sheetaddr.RangeSpec{
		Sheet: sheet, StartRow: 0, StartCol: 0,
		EndRow: scan - 1, EndCol: ext.Cols - 1,
	})
	if err != nil {
		return header.Detection{}, err
	}
	return header.Detect(block, scan)
}

func isObjectRows(data []any) bool {
	for _, el := range data {
		switch el.(type) {
		case nil:
			continue
		case map[string]any:
			return true
		default:
			return false
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
