// Package datatable orchestrates the header-aware table operations
// exposed as MCP tools: paged loads, shape-reconciled range writes,
// key-based lookup updates, appends, and discovery. It composes the
// addressing, grid, header, and lookup engines over a backend service.
package datatable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridwell/mcptab/internal/backend"
	"github.com/gridwell/mcptab/internal/header"
	"github.com/gridwell/mcptab/internal/runtime"
	"github.com/gridwell/mcptab/internal/sheetaddr"
	"github.com/gridwell/mcptab/pkg/pagination"
)

// Tables owns effective limits and the backend router shared by all
// table operations.
type Tables struct {
	Limits runtime.Limits
	Router *backend.Router
}

// PageMeta carries paging state for load_data_table responses.
type PageMeta struct {
	TotalRows  int    `json:"total_rows" jsonschema_description:"Data rows in the block (headers excluded)"`
	Returned   int    `json:"returned" jsonschema_description:"Rows included in this page"`
	Offset     int    `json:"offset" jsonschema_description:"0-based offset of the first returned row"`
	NextCursor string `json:"next_cursor,omitempty" jsonschema_description:"Opaque token for the next page; absent on the last page"`
}

// LoadInput selects a table block to load with optional paging.
type LoadInput struct {
	URI       string `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Range     string `json:"range,omitempty" validate:"omitempty,a1range" jsonschema_description:"A1 range, open forms allowed (B5, A1:C10, B:B, B2:B, 2:1000); omit for the whole sheet"`
	Sheet     string `json:"sheet,omitempty" jsonschema_description:"Sheet name when the range carries no qualifier; defaults to the first sheet"`
	HeaderRow int    `json:"header_row,omitempty" validate:"omitempty,min=1" jsonschema_description:"1-based header row override; omit to infer"`
	PageSize  int    `json:"page_size,omitempty" validate:"omitempty,min=1" jsonschema_description:"Max data rows per page"`
	Cursor    string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"Continuation token from a previous page; overrides range and header inputs"`
}

// LoadOutput is one page of a normalized table.
type LoadOutput struct {
	URI        string             `json:"uri"`
	Sheet      string             `json:"sheet"`
	Range      string             `json:"range" jsonschema_description:"Bounded A1 range the block resolved to"`
	HeaderRow  int                `json:"header_row" jsonschema_description:"1-based sheet row the headers came from"`
	Headers    []string           `json:"headers"`
	Rows       [][]any            `json:"rows" jsonschema_description:"Data rows as JSON scalars; empty cells are null"`
	Candidates []header.Candidate `json:"header_candidates,omitempty" jsonschema_description:"Scores for the scanned rows when the header was inferred"`
	Meta       PageMeta           `json:"meta"`
}

// Load resolves the requested block against the live extent, fixes the
// header row, and returns one page of data rows. Open-ended ranges
// expand to the used extent at call time. A cursor re-reads the block
// fresh; rows present at page time are what the page reflects.
func (t *Tables) Load(ctx context.Context, in LoadInput) (LoadOutput, error) {
	var out LoadOutput

	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = t.Limits.PageRows
	}
	offset := 0
	rangeA1 := in.Range
	sheet := in.Sheet
	headerRow := in.HeaderRow // 1-based, 0 means infer

	if strings.TrimSpace(in.Cursor) != "" {
		cur, err := pagination.Decode(in.Cursor)
		if err != nil {
			return out, err
		}
		if in.URI != "" && cur.URI != in.URI {
			return out, fmt.Errorf("cursor: token was issued for a different spreadsheet")
		}
		rangeA1 = cur.R
		sheet = cur.S
		headerRow = cur.Hr + 1
		offset = cur.Off
		pageSize = cur.Ps
	}

	svc, _, err := t.Router.Open(ctx, in.URI)
	if err != nil {
		return out, err
	}
	defer svc.Close()
	out.URI = in.URI

	spec, err := t.resolveBlock(ctx, svc, rangeA1, sheet)
	if err != nil {
		return out, err
	}
	out.Sheet = displaySheet(ctx, svc, spec.Sheet)
	out.Range = spec.Format()

	if err := t.checkCellBudget(spec.Height() * spec.Width()); err != nil {
		return out, err
	}
	block, err := svc.Read(ctx, spec)
	if err != nil {
		return out, err
	}

	var det header.Detection
	if headerRow > 0 {
		// The override is absolute (1-based sheet row); translate into
		// the block before bypassing inference.
		rel := headerRow - 1 - spec.StartRow
		det, err = header.FromRow(block, rel)
	} else {
		det, err = header.Detect(block, t.Limits.HeaderScanRows)
		out.Candidates = det.Candidates
	}
	if err != nil {
		return out, err
	}
	out.HeaderRow = spec.StartRow + det.HeaderRow + 1
	out.Headers = det.Headers.Names()

	dataRows := block.Height() - det.DataStart
	if dataRows < 0 {
		dataRows = 0
	}
	out.Meta.TotalRows = dataRows
	out.Meta.Offset = offset

	start := det.DataStart + offset
	end := start + pageSize
	if limit := det.DataStart + dataRows; end > limit {
		end = limit
	}
	for r := start; r < end; r++ {
		row := make([]any, 0, block.Width())
		for c := 0; c < block.Width(); c++ {
			row = append(row, block.At(r, c).Native())
		}
		out.Rows = append(out.Rows, row)
	}
	out.Meta.Returned = len(out.Rows)

	if next := pagination.NextOffset(offset, len(out.Rows)); next < dataRows {
		token, err := pagination.Encode(pagination.Cursor{
			URI: out.URI,
			S:   sheet,
			R:   rangeA1,
			Hr:  out.HeaderRow - 1,
			Off: next,
			Ps:  pageSize,
			Iat: time.Now().Unix(),
		})
		if err != nil {
			return out, err
		}
		out.Meta.NextCursor = token
	}
	return out, nil
}

// resolveBlock parses the range (or takes the whole sheet when empty)
// and resolves open bounds against the sheet's used extent.
func (t *Tables) resolveBlock(ctx context.Context, svc backend.Service, rangeA1, sheet string) (sheetaddr.RangeSpec, error) {
	var spec sheetaddr.RangeSpec
	if strings.TrimSpace(rangeA1) == "" {
		spec = sheetaddr.RangeSpec{
			Sheet:    sheet,
			StartRow: 0, StartCol: 0,
			EndRow: sheetaddr.Open, EndCol: sheetaddr.Open,
		}
	} else {
		var err error
		spec, err = sheetaddr.Parse(rangeA1)
		if err != nil {
			return spec, err
		}
		if spec.Sheet == "" {
			spec.Sheet = sheet
		}
	}
	if spec.Bounded() {
		return spec, nil
	}
	ext, err := svc.Extent(ctx, spec.Sheet)
	if err != nil {
		return spec, err
	}
	if ext.Rows == 0 || ext.Cols == 0 {
		return spec, fmt.Errorf("datatable: sheet %q has no data to resolve open range %s against", spec.Sheet, spec.Format())
	}
	return spec.Resolve(ext), nil
}

func (t *Tables) checkCellBudget(cells int) error {
	if t.Limits.MaxCellsPerOp > 0 && cells > t.Limits.MaxCellsPerOp {
		return fmt.Errorf("datatable: operation touches %d cells, above the %d cell limit; narrow the range", cells, t.Limits.MaxCellsPerOp)
	}
	return nil
}

// displaySheet fills in the backend's default sheet name when the
// caller addressed the default implicitly.
func displaySheet(ctx context.Context, svc backend.Service, sheet string) string {
	if sheet != "" {
		return sheet
	}
	infos, err := svc.Sheets(ctx)
	if err != nil || len(infos) == 0 {
		return sheet
	}
	return infos[0].Name
}
