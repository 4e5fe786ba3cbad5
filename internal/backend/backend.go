// Package backend defines the read/write boundary between the core
// engine and a spreadsheet store. Reads and writes are two separate,
// non-transactional calls; a snapshot may be stale by the time its
// computed write is issued (last-writer-wins, no optimistic token).
package backend

import (
	"context"
	"fmt"

	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/sheetaddr"
	"github.com/gridwell/mcptab/pkg/sheeturi"
)

// SheetInfo summarizes one worksheet.
type SheetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// Ack reports the outcome of a write at range granularity.
type Ack struct {
	Range        sheetaddr.RangeSpec
	CellsWritten int
}

// Service is one open spreadsheet. A RangeSpec with an empty Sheet field
// addresses the service's default sheet. Implementations must report the
// current extent so open-ended ranges resolve against live bounds.
type Service interface {
	// Sheets lists worksheets with their used extents.
	Sheets(ctx context.Context) ([]SheetInfo, error)
	// Extent reports the used size of a sheet.
	Extent(ctx context.Context, sheet string) (sheetaddr.Extent, error)
	// Read returns the cell block covered by a bounded range.
	Read(ctx context.Context, spec sheetaddr.RangeSpec) (grid.Grid, error)
	// Write replaces the cell block covered by a bounded range.
	Write(ctx context.Context, spec sheetaddr.RangeSpec, g grid.Grid) (Ack, error)
	// Clear blanks the cell block covered by a bounded range.
	Clear(ctx context.Context, spec sheetaddr.RangeSpec) (Ack, error)
	// Close releases the service's hold on the spreadsheet.
	Close() error
}

// Opener produces a Service for a parsed spreadsheet reference.
type Opener interface {
	Open(ctx context.Context, ref sheeturi.Ref) (Service, error)
}

// Router dispatches URIs to the opener registered for their kind.
type Router struct {
	openers map[sheeturi.Kind]Opener
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{openers: make(map[sheeturi.Kind]Opener)}
}

// Register binds an opener to a URI kind.
func (r *Router) Register(kind sheeturi.Kind, o Opener) {
	r.openers[kind] = o
}

// Open parses the URI and opens a service through the matching opener.
func (r *Router) Open(ctx context.Context, uri string) (Service, sheeturi.Ref, error) {
	ref, err := sheeturi.Parse(uri)
	if err != nil {
		return nil, sheeturi.Ref{}, err
	}
	o, ok := r.openers[ref.Kind]
	if !ok {
		return nil, ref, fmt.Errorf("backend: no %s backend configured for %s", ref.Kind, uri)
	}
	svc, err := o.Open(ctx, ref)
	if err != nil {
		return nil, ref, err
	}
	return svc, ref, nil
}
