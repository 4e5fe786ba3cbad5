package header

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridwell/mcptab/internal/grid"
)

func gridOf(rows ...[]string) grid.Grid {
	return grid.FromStrings(rows)
}

func TestDetect_SkipsTitleAndEmptyPreamble(t *testing.T) {
	g := gridOf(
		[]string{"Quarterly Report", "", ""},
		[]string{"", "", ""},
		[]string{"Name", "Age", "Role"},
		[]string{"Ada", "36", "admin"},
		[]string{"Bob", "30", "dev"},
	)
	det, err := Detect(g, 5)
	require.NoError(t, err)
	require.Equal(t, 2, det.HeaderRow)
	require.Equal(t, 3, det.DataStart)
	require.Equal(t, []string{"Name", "Age", "Role"}, det.Headers.Names())
}

func TestDetect_TiesBreakTopmost(t *testing.T) {
	g := gridOf(
		[]string{"Name", "Age"},
		[]string{"Ada", "36"},
		[]string{"Bob", "30"},
	)
	det, err := Detect(g, 3)
	require.NoError(t, err)
	// Data rows score as well as the header row here; topmost wins.
	require.Equal(t, 0, det.HeaderRow)
}

func TestDetect_SingleCellRowsScoreZero(t *testing.T) {
	g := gridOf(
		[]string{"Banner", "", ""},
		[]string{"Only", "", ""},
	)
	_, err := Detect(g, 2)
	var det *DetectionError
	require.ErrorAs(t, err, &det)
	require.Len(t, det.Candidates, 2)
	for _, c := range det.Candidates {
		require.Zero(t, c.Score)
	}
}

func TestDetect_DuplicateLabelsLowerScore(t *testing.T) {
	g := gridOf(
		[]string{"x", "x", "x"},
		[]string{"Name", "Age", "Role"},
		[]string{"Ada", "36", "admin"},
	)
	det, err := Detect(g, 3)
	require.NoError(t, err)
	require.Equal(t, 1, det.HeaderRow)
}

func TestDetect_EmptyGrid(t *testing.T) {
	_, err := Detect(grid.Empty(), 5)
	require.Error(t, err)
}

func TestDetect_HeaderRowWithDuplicatesGetsSuffixes(t *testing.T) {
	g := gridOf(
		[]string{"Total", "Total", "Name"},
		[]string{"1", "2", "Ada"},
	)
	det, err := Detect(g, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Total", "Total_2", "Name"}, det.Headers.Names())
}

func TestDetect_BlankHeaderCellsGetPlaceholders(t *testing.T) {
	g := gridOf(
		[]string{"Name", "", "Role"},
		[]string{"Ada", "36", "admin"},
	)
	det, err := Detect(g, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Column_2", "Role"}, det.Headers.Names())
}

func TestDetect_ImperfectHeaderBeatsRicherDataBelow(t *testing.T) {
	// The data rows score higher than the header (4 unique cells vs 2),
	// but the topmost qualifying row is still the header.
	g := gridOf(
		[]string{"Report", "", "", ""},
		[]string{"Name", "", "Name", "Role"},
		[]string{"Ada", "36", "admin", "yes"},
		[]string{"Bob", "30", "dev", "no"},
	)
	det, err := Detect(g, 4)
	require.NoError(t, err)
	require.Equal(t, 1, det.HeaderRow)
	require.Equal(t, 2, det.DataStart)
	require.Equal(t, []string{"Name", "Column_2", "Name_3", "Role"}, det.Headers.Names())
}

func TestFromRow_ExplicitOverride(t *testing.T) {
	g := gridOf(
		[]string{"junk", "junk2"},
		[]string{"Name", "Age"},
		[]string{"Ada", "36"},
	)
	det, err := FromRow(g, 1)
	require.NoError(t, err)
	require.Equal(t, 1, det.HeaderRow)
	require.Equal(t, 2, det.DataStart)
	require.Equal(t, []string{"Name", "Age"}, det.Headers.Names())

	_, err = FromRow(g, 5)
	require.Error(t, err)
}
