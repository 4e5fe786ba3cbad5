package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/sheetaddr"
	"github.com/gridwell/mcptab/pkg/sheeturi"
)

func buildWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sh := "Sheet1"
	require.NoError(t, f.SetSheetRow(sh, "A1", &[]any{"Name", "Score", "Active"}))
	require.NoError(t, f.SetSheetRow(sh, "A2", &[]any{"Ada", 95, true}))
	require.NoError(t, f.SetSheetRow(sh, "A3", &[]any{"Bob", 82.5, false}))

	path := filepath.Join(t.TempDir(), "scores.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func openService(t *testing.T, s *Store, path string) *service {
	t.Helper()
	svc, err := s.Open(context.Background(), sheeturi.Ref{Kind: sheeturi.KindLocal, Path: path})
	require.NoError(t, err)
	return svc.(*service)
}

func mustParse(t *testing.T, a1 string) sheetaddr.RangeSpec {
	t.Helper()
	spec, err := sheetaddr.Parse(a1)
	require.NoError(t, err)
	return spec
}

func TestRead_TypedCells(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	g, err := svc.Read(context.Background(), mustParse(t, "A1:C3"))
	require.NoError(t, err)
	require.Equal(t, 3, g.Height())
	require.Equal(t, 3, g.Width())
	require.Equal(t, grid.Text("Name"), g.At(0, 0))
	require.Equal(t, grid.Number(95), g.At(1, 1))
	require.Equal(t, grid.Bool(true), g.At(1, 2))
	require.Equal(t, grid.Number(82.5), g.At(2, 1))
}

func TestRead_OutsideUsedAreaIsNull(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	g, err := svc.Read(context.Background(), mustParse(t, "E10:F11"))
	require.NoError(t, err)
	require.Equal(t, grid.Null(), g.At(0, 0))
	require.Equal(t, grid.Null(), g.At(1, 1))
}

func TestRead_RequiresBoundedRange(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	_, err := svc.Read(context.Background(), mustParse(t, "B:B"))
	require.Error(t, err)
}

func TestWrite_ThenReadBack(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	block := grid.New([][]grid.Value{{grid.Text("Eve"), grid.Number(77)}})
	ack, err := svc.Write(context.Background(), mustParse(t, "A4:B4"), block)
	require.NoError(t, err)
	require.Equal(t, 2, ack.CellsWritten)

	g, err := svc.Read(context.Background(), mustParse(t, "A4:B4"))
	require.NoError(t, err)
	require.Equal(t, grid.Text("Eve"), g.At(0, 0))
	require.Equal(t, grid.Number(77), g.At(0, 1))
}

func TestWrite_RejectsOversizedBlock(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	block := grid.New([][]grid.Value{{grid.Number(1), grid.Number(2)}})
	_, err := svc.Write(context.Background(), mustParse(t, "A1"), block)
	require.Error(t, err)
}

func TestClear_BlanksCells(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	ack, err := svc.Clear(context.Background(), mustParse(t, "B2:C3"))
	require.NoError(t, err)
	require.Equal(t, 4, ack.CellsWritten)

	g, err := svc.Read(context.Background(), mustParse(t, "A2:C3"))
	require.NoError(t, err)
	require.Equal(t, grid.Text("Ada"), g.At(0, 0))
	require.Equal(t, grid.Null(), g.At(0, 1))
	require.Equal(t, grid.Null(), g.At(1, 2))
}

func TestExtentAndSheets(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	ext, err := svc.Extent(context.Background(), "Sheet1")
	require.NoError(t, err)
	require.Equal(t, 3, ext.Rows)
	require.Equal(t, 3, ext.Cols)

	infos, err := svc.Sheets(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "Sheet1", infos[0].Name)
}

func TestExtent_UnknownSheet(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	svc := openService(t, s, buildWorkbook(t))

	_, err := svc.Extent(context.Background(), "Nope")
	require.Error(t, err)
}

func TestOpen_ReusesHandlePerPath(t *testing.T) {
	s := NewStore(0, 0, nil, nil)
	path := buildWorkbook(t)
	openService(t, s, path)
	openService(t, s, path)
	require.Equal(t, 1, s.Count())
}

func TestEvictExpired(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, nil, nil)
	now := time.Now()
	s.clock = func() time.Time { return now }

	openService(t, s, buildWorkbook(t))
	require.Equal(t, 1, s.Count())

	s.EvictExpired()
	require.Equal(t, 1, s.Count(), "fresh handle must survive")

	now = now.Add(2 * time.Minute)
	s.EvictExpired()
	require.Equal(t, 0, s.Count())
}

func TestCellValue(t *testing.T) {
	require.Equal(t, grid.Null(), cellValue(""))
	require.Equal(t, grid.Bool(true), cellValue("TRUE"))
	require.Equal(t, grid.Bool(false), cellValue("false"))
	require.Equal(t, grid.Number(3.5), cellValue("3.5"))
	require.Equal(t, grid.Number(0.5), cellValue("0.5"))
	require.Equal(t, grid.Text("007"), cellValue("007"), "identifier-like values stay text")
	require.Equal(t, grid.Text("hello"), cellValue("hello"))
}
