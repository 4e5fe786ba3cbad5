package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gridwell/mcptab/internal/datatable"
	"github.com/gridwell/mcptab/pkg/mcperr"
	"github.com/gridwell/mcptab/pkg/validation"
)

// RegisterTableTools wires the table operations as MCP tools. Mutating
// tools are registered unconditionally; the write filter decides whether
// they appear in discovery.
func RegisterTableTools(s *server.MCPServer, reg *Registry, tables *datatable.Tables) {
	// load_data_table
	load := mcp.NewTool(
		"load_data_table",
		mcp.WithDescription("Load a header-aware table block from a spreadsheet. Resolves open A1 forms (B5, A1:C10, B:B, B2:B, 2:1000) against the live used extent, infers the header row by scoring the top rows for non-empty unique labels (override with header_row), and returns one page of data rows with a continuation cursor for large blocks. Errors include INVALID_RANGE, INVALID_SHEET, HEADER_DETECTION_FAILED, and CURSOR_INVALID."),
		mcp.WithInputSchema[datatable.LoadInput](),
		mcp.WithOutputSchema[datatable.LoadOutput](),
	)
	s.AddTool(load, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.LoadInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.Load(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.ReadFailed), nil
		}
		summary := fmt.Sprintf("sheet=%s range=%s header_row=%d rows=%d/%d next=%v",
			out.Sheet, out.Range, out.HeaderRow, out.Meta.Returned, out.Meta.TotalRows, out.Meta.NextCursor != "")
		return structured(out, summary), nil
	}))
	reg.Register(load)

	// list_worksheets
	list := mcp.NewTool(
		"list_worksheets",
		mcp.WithDescription("List a spreadsheet's worksheets with their used row and column counts. No cell data is returned. Use this to verify sheet names before addressing ranges with a sheet qualifier."),
		mcp.WithInputSchema[datatable.ListWorksheetsInput](),
		mcp.WithOutputSchema[datatable.ListWorksheetsOutput](),
	)
	s.AddTool(list, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.ListWorksheetsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.ListWorksheets(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.OpenFailed), nil
		}
		var names []string
		for _, sh := range out.Sheets {
			names = append(names, fmt.Sprintf("%s(%dx%d)", sh.Name, sh.Rows, sh.Cols))
		}
		return structured(out, "sheets: "+strings.Join(names, ", ")), nil
	}))
	reg.Register(list)

	// find_cells
	find := mcp.NewTool(
		"find_cells",
		mcp.WithDescription("Search a sheet (or a restricted A1 range) for cells containing a substring, case-insensitively, and return their A1 addresses with values. Results are bounded by max_results; truncated=true signals more matches exist."),
		mcp.WithInputSchema[datatable.FindCellsInput](),
		mcp.WithOutputSchema[datatable.FindCellsOutput](),
	)
	s.AddTool(find, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.FindCellsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.FindCells(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.ReadFailed), nil
		}
		summary := fmt.Sprintf("matches=%d range=%s truncated=%v", len(out.Matches), out.Range, out.Truncated)
		return structured(out, summary), nil
	}))
	reg.Register(find)

	// update_range
	update := mcp.NewTool(
		"update_range",
		mcp.WithDescription("Write a block of values to an A1 range. Accepts 2D rows, row-objects keyed by the sheet's headers, or a flat 1D list; structured values are stored as canonical JSON text. Data larger than the range expands the range (never truncates); data smaller is padded per fill_policy (null default; none fails on mismatch). Defaults to A1 when no range is given. Errors include INVALID_RANGE, DIMENSION_MISMATCH, COLUMN_ALIGNMENT, and TYPE_COERCION."),
		mcp.WithInputSchema[datatable.UpdateRangeInput](),
		mcp.WithOutputSchema[datatable.WriteOutput](),
	)
	s.AddTool(update, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.UpdateRangeInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.UpdateRange(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.WriteFailed), nil
		}
		summary := fmt.Sprintf("wrote %d cells to %s", out.CellsWritten, out.Range)
		if len(out.Warnings) > 0 {
			summary += " | " + strings.Join(out.Warnings, "; ")
		}
		return structured(out, summary), nil
	}))
	reg.Register(update)

	// update_by_lookup
	lookupTool := mcp.NewTool(
		"update_by_lookup",
		mcp.WithDescription("Update rows matched by a key column instead of by address. Each row-object carries the key column's value plus the columns to set; only those cells change, everything else keeps its value. Keys and column names match case-insensitively; the first occurrence of a key wins the row index. on_missing controls unmatched keys (skip, fail, fail_all) and on_duplicate must be set to first_match to accept ambiguous keys. create_new_columns appends unknown set columns to the header row first. Errors include LOOKUP_KEY_NOT_FOUND, LOOKUP_KEY_AMBIGUOUS, HEADER_DETECTION_FAILED, and VALIDATION."),
		mcp.WithInputSchema[datatable.UpdateByLookupInput](),
		mcp.WithOutputSchema[datatable.UpdateByLookupOutput](),
	)
	s.AddTool(lookupTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.UpdateByLookupInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.UpdateByLookup(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.WriteFailed), nil
		}
		summary := fmt.Sprintf("matched=%d cells=%d unmatched=%d errors=%d",
			out.Matched, out.CellsWritten, len(out.UnmatchedKeys), len(out.Errors))
		return structured(out, summary), nil
	}))
	reg.Register(lookupTool)

	// append_rows
	appendRows := mcp.NewTool(
		"append_rows",
		mcp.WithDescription("Append data rows after the last used row of a sheet. Accepts 2D rows or row-objects aligned to the sheet's detected headers (missing columns fill with null). Errors include HEADER_DETECTION_FAILED (row-objects on a headerless sheet) and COLUMN_ALIGNMENT."),
		mcp.WithInputSchema[datatable.AppendRowsInput](),
		mcp.WithOutputSchema[datatable.WriteOutput](),
	)
	s.AddTool(appendRows, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.AppendRowsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.AppendRows(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.WriteFailed), nil
		}
		return structured(out, fmt.Sprintf("appended %d cells at %s", out.CellsWritten, out.Range)), nil
	}))
	reg.Register(appendRows)

	// append_columns
	appendCols := mcp.NewTool(
		"append_columns",
		mcp.WithDescription("Add named columns after the last used column by writing new header cells on the detected header row. Names already present (case-insensitive) are skipped, not duplicated."),
		mcp.WithInputSchema[datatable.AppendColumnsInput](),
		mcp.WithOutputSchema[datatable.AppendColumnsOutput](),
	)
	s.AddTool(appendCols, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.AppendColumnsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.AppendColumns(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.WriteFailed), nil
		}
		summary := fmt.Sprintf("added=%d skipped=%d", len(out.Added), len(out.Skipped))
		return structured(out, summary), nil
	}))
	reg.Register(appendCols)

	// clear_range
	clear := mcp.NewTool(
		"clear_range",
		mcp.WithDescription("Blank the cells in an A1 range. Values are removed; the rows and columns themselves remain. Open forms resolve against the used extent."),
		mcp.WithInputSchema[datatable.ClearRangeInput](),
		mcp.WithOutputSchema[datatable.WriteOutput](),
	)
	s.AddTool(clear, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in datatable.ClearRangeInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		out, err := tables.ClearRange(ctx, in)
		if err != nil {
			return mcperr.FromError(err, mcperr.WriteFailed), nil
		}
		return structured(out, fmt.Sprintf("cleared %d cells in %s", out.CellsWritten, out.Range)), nil
	}))
	reg.Register(clear)
}

// structured attaches a concise text summary for clients that ignore the
// structured payload.
func structured(out any, summary string) *mcp.CallToolResult {
	res := mcp.NewToolResultStructured(out, summary)
	res.Content = []mcp.Content{mcp.NewTextContent(summary)}
	return res
}
