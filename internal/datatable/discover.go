package datatable

import (
	"context"
	"strings"

	"github.com/gridwell/mcptab/internal/sheetaddr"
)

// ListWorksheetsInput names the spreadsheet to inspect.
type ListWorksheetsInput struct {
	URI string `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
}

// WorksheetInfo summarizes one sheet without loading cell data.
type WorksheetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows" jsonschema_description:"Used row count"`
	Cols int    `json:"cols" jsonschema_description:"Used column count"`
}

// ListWorksheetsOutput enumerates a spreadsheet's sheets.
type ListWorksheetsOutput struct {
	URI    string          `json:"uri"`
	Sheets []WorksheetInfo `json:"sheets"`
}

// ListWorksheets returns sheet names with their used extents.
func (t *Tables) ListWorksheets(ctx context.Context, in ListWorksheetsInput) (ListWorksheetsOutput, error) {
	out := ListWorksheetsOutput{URI: in.URI}

	svc, _, err := t.Router.Open(ctx, in.URI)
	if err != nil {
		return out, err
	}
	defer svc.Close()

	infos, err := svc.Sheets(ctx)
	if err != nil {
		return out, err
	}
	for _, info := range infos {
		out.Sheets = append(out.Sheets, WorksheetInfo{Name: info.Name, Rows: info.Rows, Cols: info.Cols})
	}
	return out, nil
}

// defaultFindResults caps find_cells matches when neither the caller nor
// the configured limits provide a bound.
const defaultFindResults = 100

// FindCellsInput is a bounded substring search across a sheet.
type FindCellsInput struct {
	URI        string `json:"uri" validate:"required" jsonschema_description:"Google Sheets URL or local workbook path"`
	Query      string `json:"query" validate:"required" jsonschema_description:"Substring to match, case-insensitive"`
	Sheet      string `json:"sheet,omitempty" jsonschema_description:"Sheet name; defaults to the first sheet"`
	Range      string `json:"range,omitempty" validate:"omitempty,a1range" jsonschema_description:"Restrict the scan to this A1 range; open forms allowed"`
	MaxResults int    `json:"max_results,omitempty" validate:"omitempty,min=1" jsonschema_description:"Cap on returned matches"`
}

// CellMatch is one matching cell.
type CellMatch struct {
	Address string `json:"address" jsonschema_description:"A1 address of the match"`
	Value   any    `json:"value"`
}

// FindCellsOutput lists matches in row-major order.
type FindCellsOutput struct {
	URI       string      `json:"uri"`
	Sheet     string      `json:"sheet"`
	Range     string      `json:"range" jsonschema_description:"Bounded range actually scanned"`
	Matches   []CellMatch `json:"matches"`
	Truncated bool        `json:"truncated" jsonschema_description:"True when max_results cut the scan short"`
}

// FindCells scans the resolved block for cells whose text contains the
// query, case-insensitively, and returns their addresses.
func (t *Tables) FindCells(ctx context.Context, in FindCellsInput) (FindCellsOutput, error) {
	var out FindCellsOutput
	out.URI = in.URI

	maxResults := in.MaxResults
	if maxResults <= 0 {
		maxResults = t.Limits.PreviewRowLimit * 10
	}
	if maxResults <= 0 {
		maxResults = defaultFindResults
	}

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
	out.Range = spec.Format()

	if err := t.checkCellBudget(spec.Height() * spec.Width()); err != nil {
		return out, err
	}
	block, err := svc.Read(ctx, spec)
	if err != nil {
		return out, err
	}

	needle := strings.ToLower(in.Query)
	for r := 0; r < block.Height() && !out.Truncated; r++ {
		for c := 0; c < block.Width(); c++ {
			v := block.At(r, c)
			if v.IsNull() {
				continue
			}
			if !strings.Contains(strings.ToLower(v.Text()), needle) {
				continue
			}
			if len(out.Matches) >= maxResults {
				out.Truncated = true
				break
			}
			out.Matches = append(out.Matches, CellMatch{
				Address: sheetaddr.Cell(spec.StartRow+r, spec.StartCol+c),
				Value:   v.Native(),
			})
		}
	}
	return out, nil
}
