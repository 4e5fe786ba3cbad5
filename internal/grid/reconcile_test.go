package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFillPolicy(t *testing.T) {
	p, err := ParseFillPolicy("")
	require.NoError(t, err)
	require.Equal(t, FillNull, p)

	p, err = ParseFillPolicy("none")
	require.NoError(t, err)
	require.Equal(t, FillNone, p)

	p, err = ParseFillPolicy("ZERO")
	require.NoError(t, err)
	require.Equal(t, FillZero, p)

	_, err = ParseFillPolicy("maybe")
	require.Error(t, err)
}

func TestReconcile_ExactFitNoChange(t *testing.T) {
	g := New([][]Value{{Number(1), Number(2)}})
	out, warnings, err := Reconcile(g, Shape{Rows: 1, Cols: 2}, FillNull)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, g, out)
}

func TestReconcile_PadsShortRowToTargetWidth(t *testing.T) {
	// A 1x2 payload against a 1x4 target pads the trailing cells.
	g := New([][]Value{{Text("v1"), Text("v2")}})
	out, warnings, err := Reconcile(g, Shape{Rows: 1, Cols: 4}, FillNull)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, 4, out.Width())
	require.Equal(t, Null(), out.At(0, 2))
	require.Equal(t, Null(), out.At(0, 3))
}

func TestReconcile_FillVariants(t *testing.T) {
	g := New([][]Value{{Text("v")}})

	out, _, err := Reconcile(g, Shape{Rows: 1, Cols: 2}, FillEmpty)
	require.NoError(t, err)
	require.Equal(t, Text(""), out.At(0, 1))

	out, _, err = Reconcile(g, Shape{Rows: 1, Cols: 2}, FillZero)
	require.NoError(t, err)
	require.Equal(t, Number(0), out.At(0, 1))
}

func TestReconcile_FillNoneFailsOnSmallerData(t *testing.T) {
	g := New([][]Value{{Text("v")}})
	_, _, err := Reconcile(g, Shape{Rows: 2, Cols: 2}, FillNone)
	var dim *DimensionError
	require.ErrorAs(t, err, &dim)
	require.Equal(t, Shape{Rows: 1, Cols: 1}, dim.Got)
	require.Equal(t, Shape{Rows: 2, Cols: 2}, dim.Want)
}

func TestReconcile_LargerDataReturnsWholeGrid(t *testing.T) {
	// Oversized data is never truncated; the caller grows the range.
	g := New([][]Value{
		{Number(1), Number(2), Number(3)},
		{Number(4), Number(5), Number(6)},
	})
	out, warnings, err := Reconcile(g, Shape{Rows: 1, Cols: 2}, FillNone)
	require.NoError(t, err)
	require.Equal(t, 2, out.Height())
	require.Equal(t, 3, out.Width())
	require.Len(t, warnings, 1)
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	g := New([][]Value{{Number(1)}})
	_, _, err := Reconcile(g, Shape{Rows: 2, Cols: 2}, FillNull)
	require.NoError(t, err)
	require.Equal(t, 1, g.Height())
	require.Equal(t, 1, g.Width())
}

func TestHeaderMap_CaseInsensitiveLookup(t *testing.T) {
	h, err := NewHeaderMap([]string{"Name", "Age"})
	require.NoError(t, err)
	pos, ok := h.Lookup("aGe")
	require.True(t, ok)
	require.Equal(t, 1, pos)
	_, ok = h.Lookup("missing")
	require.False(t, ok)
}

func TestHeaderMap_BlankAndDuplicateNames(t *testing.T) {
	h, err := NewHeaderMap([]string{"a", " ", "b"})
	require.NoError(t, err)
	require.Equal(t, "Column_2", h.Name(1))

	_, err = NewHeaderMap([]string{"a", "A"})
	require.Error(t, err)
}

func TestHeaderMap_Append(t *testing.T) {
	h, err := NewHeaderMap([]string{"a"})
	require.NoError(t, err)
	require.NoError(t, h.Append("b"))
	require.Error(t, h.Append("A"))
	require.Equal(t, []string{"a", "b"}, h.Names())
}
