// Package local serves xlsx workbooks on the local filesystem as
// backend services. Open files are cached per canonical path with an
// idle TTL so repeated tool calls against the same workbook reuse one
// excelize handle.
package local

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/gridwell/mcptab/internal/backend"
	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/sheetaddr"
	"github.com/gridwell/mcptab/pkg/sheeturi"
)

// ErrHandleNotFound indicates the cached workbook was evicted between calls.
var ErrHandleNotFound = errors.New("local: workbook handle not found")

// PathValidator returns a canonical absolute path when the path is
// allowed, or an error when denied.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// Gate coordinates capacity for concurrently open workbooks.
type Gate interface {
	AcquireWorkbook(ctx context.Context) error
	ReleaseWorkbook()
}

type handle struct {
	id        string
	path      string
	file      *excelize.File
	expiresAt time.Time
	mu        sync.RWMutex
}

// Store opens workbooks and caches handles keyed by canonical path.
type Store struct {
	mu           sync.RWMutex
	byPath       map[string]*handle
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         Gate
	validator    PathValidator
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
}

// NewStore constructs a workbook store. Validator may be nil for tests;
// gate may be nil when capacity is unbounded. Clock defaults to time.Now.
func NewStore(ttl, cleanupEvery time.Duration, gate Gate, validator PathValidator) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	return &Store{
		byPath:       make(map[string]*handle),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        time.Now,
		gate:         gate,
		validator:    validator,
		stopCh:       make(chan struct{}),
	}
}

// Start launches periodic eviction of idle handles.
func (s *Store) Start() {
	s.cleanupWG.Add(1)
	ticker := time.NewTicker(s.cleanupEvery)
	go func() {
		defer s.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and closes all cached handles.
func (s *Store) Close(ctx context.Context) error {
	close(s.stopCh)
	done := make(chan struct{})
	go func() { s.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for path, h := range s.byPath {
		h.mu.Lock()
		_ = h.file.Close()
		h.mu.Unlock()
		delete(s.byPath, path)
		s.release()
	}
	return nil
}

// Open implements backend.Opener for local workbook references.
func (s *Store) Open(ctx context.Context, ref sheeturi.Ref) (backend.Service, error) {
	path := ref.Path
	if s.validator != nil {
		canonical, err := s.validator.ValidateOpenPath(path)
		if err != nil {
			return nil, err
		}
		path = canonical
	}

	s.mu.RLock()
	h, ok := s.byPath[path]
	s.mu.RUnlock()
	if ok {
		s.touch(h)
		return &service{store: s, path: path}, nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("local: open %s: %w", path, err)
	}
	h = &handle{
		id:        uuid.NewString(),
		path:      path,
		file:      f,
		expiresAt: s.clock().Add(s.ttl),
	}

	s.mu.Lock()
	if existing, raced := s.byPath[path]; raced {
		// Another caller opened the same file first; keep theirs.
		s.mu.Unlock()
		_ = f.Close()
		s.release()
		s.touch(existing)
		return &service{store: s, path: path}, nil
	}
	s.byPath[path] = h
	s.mu.Unlock()

	return &service{store: s, path: path}, nil
}

// EvictExpired closes handles whose idle TTL elapsed.
func (s *Store) EvictExpired() {
	now := s.clock()
	var expired []*handle

	s.mu.RLock()
	for _, h := range s.byPath {
		h.mu.RLock()
		if now.After(h.expiresAt) {
			expired = append(expired, h)
		}
		h.mu.RUnlock()
	}
	s.mu.RUnlock()

	for _, h := range expired {
		h.mu.Lock()
		_ = h.file.Close()
		h.mu.Unlock()

		s.mu.Lock()
		delete(s.byPath, h.path)
		s.mu.Unlock()
		s.release()
	}
}

// Count returns the number of cached workbook handles.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPath)
}

func (s *Store) touch(h *handle) {
	now := s.clock()
	h.mu.Lock()
	h.expiresAt = now.Add(s.ttl)
	h.mu.Unlock()
}

func (s *Store) get(path string) (*handle, bool) {
	s.mu.RLock()
	h, ok := s.byPath[path]
	s.mu.RUnlock()
	if ok {
		s.touch(h)
	}
	return h, ok
}

func (s *Store) withRead(path string, fn func(*excelize.File) error) error {
	h, ok := s.get(path)
	if !ok {
		return ErrHandleNotFound
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.file)
}

func (s *Store) withWrite(path string, fn func(*excelize.File) error) error {
	h, ok := s.get(path)
	if !ok {
		return ErrHandleNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.file)
}

func (s *Store) acquire(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	return s.gate.AcquireWorkbook(ctx)
}

func (s *Store) release() {
	if s.gate == nil {
		return
	}
	s.gate.ReleaseWorkbook()
}

// service is a backend.Service bound to one cached workbook path.
type service struct {
	store *Store
	path  string
}

var _ backend.Service = (*service)(nil)

func (v *service) Sheets(ctx context.Context) ([]backend.SheetInfo, error) {
	var infos []backend.SheetInfo
	err := v.store.withRead(v.path, func(f *excelize.File) error {
		for _, name := range f.GetSheetList() {
			ext, err := usedExtent(f, name)
			if err != nil {
				return err
			}
			infos = append(infos, backend.SheetInfo{Name: name, Rows: ext.Rows, Cols: ext.Cols})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

func (v *service) Extent(ctx context.Context, sheet string) (sheetaddr.Extent, error) {
	var ext sheetaddr.Extent
	err := v.store.withRead(v.path, func(f *excelize.File) error {
		name, err := resolveSheet(f, sheet)
		if err != nil {
			return err
		}
		ext, err = usedExtent(f, name)
		return err
	})
	return ext, err
}

func (v *service) Read(ctx context.Context, spec sheetaddr.RangeSpec) (grid.Grid, error) {
	if !spec.Bounded() {
		return grid.Empty(), fmt.Errorf("local: read requires a bounded range, got %s", spec.Format())
	}
	var out grid.Grid
	err := v.store.withRead(v.path, func(f *excelize.File) error {
		name, err := resolveSheet(f, spec.Sheet)
		if err != nil {
			return err
		}
		all, err := f.GetRows(name)
		if err != nil {
			return err
		}
		rows := make([][]grid.Value, 0, spec.Height())
		for r := spec.StartRow; r <= spec.EndRow; r++ {
			row := make([]grid.Value, 0, spec.Width())
			for c := spec.StartCol; c <= spec.EndCol; c++ {
				var raw string
				if r < len(all) && c < len(all[r]) {
					raw = all[r][c]
				}
				row = append(row, cellValue(raw))
			}
			rows = append(rows, row)
		}
		out = grid.New(rows)
		return nil
	})
	if err != nil {
		return grid.Empty(), err
	}
	return out, nil
}

func (v *service) Write(ctx context.Context, spec sheetaddr.RangeSpec, g grid.Grid) (backend.Ack, error) {
	if !spec.Bounded() {
		return backend.Ack{}, fmt.Errorf("local: write requires a bounded range, got %s", spec.Format())
	}
	if g.Height() > spec.Height() || g.Width() > spec.Width() {
		return backend.Ack{}, fmt.Errorf("local: %dx%d block does not fit range %s", g.Height(), g.Width(), spec.Format())
	}
	written := 0
	err := v.store.withWrite(v.path, func(f *excelize.File) error {
		name, err := resolveSheet(f, spec.Sheet)
		if err != nil {
			return err
		}
		for r := 0; r < g.Height(); r++ {
			for c := 0; c < g.Width(); c++ {
				cell := sheetaddr.Cell(spec.StartRow+r, spec.StartCol+c)
				if err := f.SetCellValue(name, cell, g.At(r, c).Native()); err != nil {
					return err
				}
				written++
			}
		}
		return f.Save()
	})
	if err != nil {
		return backend.Ack{}, err
	}
	return backend.Ack{Range: spec, CellsWritten: written}, nil
}

func (v *service) Clear(ctx context.Context, spec sheetaddr.RangeSpec) (backend.Ack, error) {
	if !spec.Bounded() {
		return backend.Ack{}, fmt.Errorf("local: clear requires a bounded range, got %s", spec.Format())
	}
	cleared := 0
	err := v.store.withWrite(v.path, func(f *excelize.File) error {
		name, err := resolveSheet(f, spec.Sheet)
		if err != nil {
			return err
		}
		for r := spec.StartRow; r <= spec.EndRow; r++ {
			for c := spec.StartCol; c <= spec.EndCol; c++ {
				if err := f.SetCellValue(name, sheetaddr.Cell(r, c), nil); err != nil {
					return err
				}
				cleared++
			}
		}
		return f.Save()
	})
	if err != nil {
		return backend.Ack{}, err
	}
	return backend.Ack{Range: spec, CellsWritten: cleared}, nil
}

// Close releases the service's view; the cached handle stays open until
// its TTL elapses so subsequent calls reuse it.
func (v *service) Close() error { return nil }

func resolveSheet(f *excelize.File, sheet string) (string, error) {
	if sheet == "" {
		return f.GetSheetName(f.GetActiveSheetIndex()), nil
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return "", err
	}
	if idx < 0 {
		return "", fmt.Errorf("local: sheet %s does not exist", sheet)
	}
	return sheet, nil
}

// usedExtent reports the populated size of a sheet. Rows are scanned
// for the authoritative size; the stored dimension ref is stale after
// in-place edits, so it only widens the result, never shrinks it.
func usedExtent(f *excelize.File, sheet string) (sheetaddr.Extent, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return sheetaddr.Extent{}, err
	}
	ext := sheetaddr.Extent{Rows: len(rows)}
	for _, r := range rows {
		if len(r) > ext.Cols {
			ext.Cols = len(r)
		}
	}
	if dim, derr := f.GetSheetDimension(sheet); derr == nil && dim != "" {
		if spec, perr := sheetaddr.Parse(dim); perr == nil && spec.Bounded() {
			if spec.EndRow+1 > ext.Rows {
				ext.Rows = spec.EndRow + 1
			}
			if spec.EndCol+1 > ext.Cols {
				ext.Cols = spec.EndCol + 1
			}
		}
	}
	return ext, nil
}

// cellValue converts excelize's formatted string into a typed value.
// Booleans and plain numbers are promoted; everything else stays text.
func cellValue(raw string) grid.Value {
	if raw == "" {
		return grid.Null()
	}
	switch strings.ToUpper(raw) {
	case "TRUE":
		return grid.Bool(true)
	case "FALSE":
		return grid.Bool(false)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		// Leading zeros mark identifiers like "007"; keep those textual.
		if !(len(raw) > 1 && raw[0] == '0' && raw[1] != '.') {
			return grid.Number(n)
		}
	}
	return grid.Text(raw)
}
