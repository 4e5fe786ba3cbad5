package sheetaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_SingleCell(t *testing.T) {
	spec, err := Parse("B5")
	require.NoError(t, err)
	require.Equal(t, RangeSpec{StartRow: 4, StartCol: 1, EndRow: 4, EndCol: 1}, spec)
	require.True(t, spec.Bounded())
	require.Equal(t, "B5", spec.Format())
}

func TestParse_Rectangle(t *testing.T) {
	spec, err := Parse("B2:D5")
	require.NoError(t, err)
	require.Equal(t, 1, spec.StartRow)
	require.Equal(t, 1, spec.StartCol)
	require.Equal(t, 4, spec.EndRow)
	require.Equal(t, 3, spec.EndCol)
	require.Equal(t, 4, spec.Height())
	require.Equal(t, 3, spec.Width())
}

func TestParse_OpenForms(t *testing.T) {
	cases := []struct {
		in      string
		bounded bool
	}{
		{"B:B", false},
		{"B2:B", false},
		{"2:1000", false},
		{"A1:C10", true},
	}
	for _, tc := range cases {
		spec, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.bounded, spec.Bounded(), tc.in)
	}
}

func TestParse_SheetQualifiers(t *testing.T) {
	spec, err := Parse("Sheet2!A1:B2")
	require.NoError(t, err)
	require.Equal(t, "Sheet2", spec.Sheet)

	spec, err = Parse("'My Sheet'!C3")
	require.NoError(t, err)
	require.Equal(t, "My Sheet", spec.Sheet)

	// Doubled quotes inside a quoted name unescape to one quote.
	spec, err = Parse("'It''s Data'!A1")
	require.NoError(t, err)
	require.Equal(t, "It's Data", spec.Sheet)
}

func TestParse_ReversedBoundsNormalize(t *testing.T) {
	spec, err := Parse("D5:B2")
	require.NoError(t, err)
	require.Equal(t, "B2:D5", spec.Format())
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", ":", "A1:B2:C3", "1A", "A0", "!!", "A:1"} {
		_, err := Parse(in)
		require.Error(t, err, in)
		var syn *SyntaxError
		require.ErrorAs(t, err, &syn, in)
	}
}

func TestResolve_ColumnAgainstExtent(t *testing.T) {
	spec, err := Parse("B:B")
	require.NoError(t, err)
	got := spec.Resolve(Extent{Rows: 100, Cols: 10})
	require.Equal(t, "B1:B100", got.Format())
}

func TestResolve_RowContinuation(t *testing.T) {
	spec, err := Parse("B2:B")
	require.NoError(t, err)
	got := spec.Resolve(Extent{Rows: 50, Cols: 4})
	require.Equal(t, "B2:B50", got.Format())
	require.Equal(t, 49, got.Height())
}

func TestResolve_SpansAtLeastOneCell(t *testing.T) {
	// Start beyond the used extent still yields a one-cell range.
	spec, err := Parse("B200:B")
	require.NoError(t, err)
	got := spec.Resolve(Extent{Rows: 50, Cols: 4})
	require.True(t, got.Bounded())
	require.Equal(t, 1, got.Height())
}

func TestFormat_PreservesOpenForms(t *testing.T) {
	for _, in := range []string{"B:B", "B2:B", "2:1000", "A1:C10", "B5"} {
		spec, err := Parse(in)
		require.NoError(t, err)
		reparsed, err := Parse(spec.Format())
		require.NoError(t, err)
		require.Equal(t, spec, reparsed, in)
	}
}

func TestFormat_QuotesSheetNames(t *testing.T) {
	spec, err := Parse("'Q1 Results'!A1:B2")
	require.NoError(t, err)
	require.Equal(t, "'Q1 Results'!A1:B2", spec.Format())
}

func TestExpandTo_GrowsNeverShrinks(t *testing.T) {
	spec, err := Parse("B2:C3")
	require.NoError(t, err)
	grown := spec.ExpandTo(5, 4)
	require.Equal(t, "B2:E6", grown.Format())
	same := spec.ExpandTo(1, 1)
	require.Equal(t, spec, same)
}

func TestColumnLetters_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		idx     int
		letters string
	}{
		{0, "A"}, {1, "B"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {701, "ZZ"}, {702, "AAA"},
	} {
		require.Equal(t, tc.letters, ColumnLetters(tc.idx))
		idx, err := ColumnIndex(tc.letters)
		require.NoError(t, err)
		require.Equal(t, tc.idx, idx)
	}
}

func TestCell(t *testing.T) {
	require.Equal(t, "A1", Cell(0, 0))
	require.Equal(t, "D10", Cell(9, 3))
}
