// Package mcperr maps engine errors to a canonical catalog of MCP tool
// error codes with retry semantics and next-step guidance.
package mcperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/header"
	"github.com/gridwell/mcptab/internal/lookup"
	"github.com/gridwell/mcptab/internal/security"
	"github.com/gridwell/mcptab/internal/sheetaddr"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & addressing
	Validation            Code = "VALIDATION"
	InvalidRange          Code = "INVALID_RANGE"
	InvalidSheet          Code = "INVALID_SHEET"
	InvalidURI            Code = "INVALID_URI"
	CursorInvalid         Code = "CURSOR_INVALID"
	HeaderDetectionFailed Code = "HEADER_DETECTION_FAILED"

	// Normalization & reconciliation
	ColumnAlignment   Code = "COLUMN_ALIGNMENT"
	DimensionMismatch Code = "DIMENSION_MISMATCH"
	TypeCoercion      Code = "TYPE_COERCION"

	// Lookup updates
	LookupKeyNotFound  Code = "LOOKUP_KEY_NOT_FOUND"
	LookupKeyAmbiguous Code = "LOOKUP_KEY_AMBIGUOUS"

	// Resource & limits
	BusyResource Code = "BUSY_RESOURCE"
	Timeout      Code = "TIMEOUT"

	// Backend IO
	OpenFailed       Code = "OPEN_FAILED"
	ReadFailed       Code = "READ_FAILED"
	WriteFailed      Code = "WRITE_FAILED"
	PermissionDenied Code = "PERMISSION_DENIED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

var catalog = map[Code]Entry{
	Validation:            {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry"}},
	InvalidRange:          {Code: InvalidRange, Message: "malformed A1 range address", Retryable: true, NextSteps: []string{"Use forms like B5, A1:C10, B:B, B2:B, or 2:1000"}},
	InvalidSheet:          {Code: InvalidSheet, Message: "sheet not found", Retryable: true, NextSteps: []string{"Call list_worksheets to verify sheet names", "Check case and spacing"}},
	InvalidURI:            {Code: InvalidURI, Message: "unrecognized spreadsheet uri", Retryable: true, NextSteps: []string{"Provide a Google Sheets URL or a local workbook path"}},
	CursorInvalid:         {Code: CursorInvalid, Message: "cursor is invalid for current context", Retryable: true, NextSteps: []string{"Restart pagination from the first page"}},
	HeaderDetectionFailed: {Code: HeaderDetectionFailed, Message: "no row qualifies as a header", Retryable: true, NextSteps: []string{"Retry with an explicit header_row", "Inspect the scored candidates in the error detail"}},

	ColumnAlignment:   {Code: ColumnAlignment, Message: "row-object key not found in target columns", Retryable: true, NextSteps: []string{"Match keys to sheet headers (case-insensitive)", "Or set permissive=true to ignore unknown keys"}},
	DimensionMismatch: {Code: DimensionMismatch, Message: "data shape does not match target range", Retryable: true, NextSteps: []string{"Choose a fill_policy (null, empty, zero)", "Or widen the target range"}},
	TypeCoercion:      {Code: TypeCoercion, Message: "cell value has no scalar representation", Retryable: false, NextSteps: []string{"Replace the offending cell with a scalar or JSON-encodable value"}},

	LookupKeyNotFound:  {Code: LookupKeyNotFound, Message: "lookup key not found in sheet", Retryable: true, NextSteps: []string{"Verify key values against the key column", "Or set on_missing=skip"}},
	LookupKeyAmbiguous: {Code: LookupKeyAmbiguous, Message: "lookup key occurs on multiple rows", Retryable: true, NextSteps: []string{"Deduplicate the key column", "Or opt in with on_duplicate=first_match"}},

	BusyResource: {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:      {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Narrow the range or increase the timeout"}},

	OpenFailed:       {Code: OpenFailed, Message: "failed to open workbook", Retryable: true, NextSteps: []string{"Verify path, permissions, and format"}},
	ReadFailed:       {Code: ReadFailed, Message: "failed to read range", Retryable: true, NextSteps: []string{"Verify the A1 range and retry"}},
	WriteFailed:      {Code: WriteFailed, Message: "failed to write range", Retryable: false, NextSteps: []string{"Validate range and values"}},
	PermissionDenied: {Code: PermissionDenied, Message: "insufficient permissions to access path", Retryable: false, NextSteps: []string{"Choose a path inside an allowed directory"}},
}

// normalize builds the standard "CODE: message | nextSteps: ..." string for
// MCP clients that surface only a message.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// New returns an MCP error result for a code with an optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// CodeFor classifies an engine error into its catalog code. Unknown
// errors fall back to the provided default.
func CodeFor(err error, fallback Code) Code {
	var (
		syntaxErr    *sheetaddr.SyntaxError
		detectErr    *header.DetectionError
		alignErr     *grid.AlignmentError
		dimErr       *grid.DimensionError
		coerceErr    *grid.CoercionError
		missingErr   *lookup.KeyNotFoundError
		ambiguousErr *lookup.AmbiguousKeyError
		keyColErr    *lookup.KeyColumnError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return InvalidRange
	case errors.As(err, &detectErr):
		return HeaderDetectionFailed
	case errors.As(err, &alignErr):
		return ColumnAlignment
	case errors.As(err, &dimErr):
		return DimensionMismatch
	case errors.As(err, &coerceErr):
		return TypeCoercion
	case errors.As(err, &missingErr):
		return LookupKeyNotFound
	case errors.As(err, &ambiguousErr):
		return LookupKeyAmbiguous
	case errors.As(err, &keyColErr):
		return Validation
	case errors.Is(err, security.ErrNotAllowed), errors.Is(err, security.ErrUnsupportedExtension):
		return PermissionDenied
	case errors.Is(err, security.ErrNotFound):
		return OpenFailed
	case IsInvalidSheet(err):
		return InvalidSheet
	}
	return fallback
}

// FromError classifies err and returns the corresponding MCP error result,
// preserving the engine error's structured detail in the message.
func FromError(err error, fallback Code) *mcp.CallToolResult {
	return New(CodeFor(err, fallback), err.Error())
}

// IsInvalidSheet matches common excelize "sheet does not exist" messages.
func IsInvalidSheet(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "doesn't exist") || strings.Contains(low, "does not exist")
}
