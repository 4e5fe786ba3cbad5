package lookup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridwell/mcptab/internal/grid"
)

func fixture(t *testing.T) (*grid.HeaderMap, grid.Grid) {
	t.Helper()
	headers, err := grid.NewHeaderMap([]string{"Handle", "Status", "Notes"})
	require.NoError(t, err)
	rows := grid.FromStrings([][]string{
		{"@x1", "new", ""},
		{"@x2", "new", ""},
		{"@x3", "done", "ok"},
	})
	return headers, rows
}

func TestApply_MatchedAndSkippedEntriesAreIndependent(t *testing.T) {
	headers, rows := fixture(t)
	res, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries: []Entry{
			{Key: grid.Text("@x1"), Set: map[string]grid.Value{"Status": grid.Text("active")}},
			{Key: grid.Text("@nope"), Set: map[string]grid.Value{"Status": grid.Text("active")}},
		},
		OnMissing: MissingSkip,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.Equal(t, []string{"@nope"}, res.UnmatchedKeys)
	require.Empty(t, res.EntryErrors)
	require.Len(t, res.Mutations, 1)

	mut := res.Mutations[0]
	require.Equal(t, 0, mut.Row)
	require.Equal(t, 1, mut.Col)
	require.Equal(t, "Status", mut.Column)
	require.Equal(t, grid.Text("active"), mut.Value)
}

func TestApply_OnMissingFailRecordsErrorButContinues(t *testing.T) {
	headers, rows := fixture(t)
	res, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries: []Entry{
			{Key: grid.Text("@nope"), Set: map[string]grid.Value{"Status": grid.Text("x")}},
			{Key: grid.Text("@x2"), Set: map[string]grid.Value{"Status": grid.Text("active")}},
		},
		OnMissing: MissingFail,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.Len(t, res.EntryErrors, 1)
	var notFound *KeyNotFoundError
	require.ErrorAs(t, res.EntryErrors[0], &notFound)
	require.Len(t, res.Mutations, 1)
}

func TestApply_OnMissingFailAllAborts(t *testing.T) {
	headers, rows := fixture(t)
	_, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries: []Entry{
			{Key: grid.Text("@x1"), Set: map[string]grid.Value{"Status": grid.Text("active")}},
			{Key: grid.Text("@nope"), Set: map[string]grid.Value{"Status": grid.Text("x")}},
		},
		OnMissing: MissingFailAll,
	})
	var notFound *KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestApply_KeysMatchCaseInsensitively(t *testing.T) {
	headers, rows := fixture(t)
	res, err := Apply(headers, rows, Plan{
		KeyColumn: "handle",
		Entries: []Entry{
			{Key: grid.Text("  @X3 "), Set: map[string]grid.Value{"notes": grid.Text("revised")}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.Equal(t, 2, res.Mutations[0].Row)
	require.Equal(t, "Notes", res.Mutations[0].Column)
}

func TestApply_DuplicateKeyErrorsUnlessFirstMatch(t *testing.T) {
	headers, err := grid.NewHeaderMap([]string{"Handle", "Status"})
	require.NoError(t, err)
	rows := grid.FromStrings([][]string{
		{"@dup", "a"},
		{"@dup", "b"},
	})

	res, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries:   []Entry{{Key: grid.Text("@dup"), Set: map[string]grid.Value{"Status": grid.Text("x")}}},
	})
	require.NoError(t, err)
	require.Zero(t, res.Matched)
	var ambiguous *AmbiguousKeyError
	require.ErrorAs(t, res.EntryErrors[0], &ambiguous)
	require.Equal(t, []int{0, 1}, ambiguous.Rows)

	res, err = Apply(headers, rows, Plan{
		KeyColumn:   "Handle",
		Entries:     []Entry{{Key: grid.Text("@dup"), Set: map[string]grid.Value{"Status": grid.Text("x")}}},
		OnDuplicate: DuplicateFirstMatch,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.Equal(t, 0, res.Mutations[0].Row)
}

func TestApply_UnknownSetColumnsAreReportedNotWritten(t *testing.T) {
	headers, rows := fixture(t)
	res, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries: []Entry{
			{Key: grid.Text("@x1"), Set: map[string]grid.Value{
				"Status":  grid.Text("active"),
				"Unknown": grid.Text("n/a"),
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Mutations, 1)
	require.Equal(t, []string{"Unknown"}, res.IgnoredColumns)
}

func TestApply_MutationsFollowCanonicalColumnOrder(t *testing.T) {
	headers, rows := fixture(t)
	res, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries: []Entry{
			{Key: grid.Text("@x1"), Set: map[string]grid.Value{
				"Notes":  grid.Text("n"),
				"Status": grid.Text("s"),
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Mutations, 2)
	require.Equal(t, "Status", res.Mutations[0].Column)
	require.Equal(t, "Notes", res.Mutations[1].Column)
}

func TestApply_MissingKeyColumn(t *testing.T) {
	headers, rows := fixture(t)
	_, err := Apply(headers, rows, Plan{KeyColumn: "Id"})
	var keyCol *KeyColumnError
	require.ErrorAs(t, err, &keyCol)
}

func TestApply_OnlyNamedCellsMutate(t *testing.T) {
	headers, rows := fixture(t)
	res, err := Apply(headers, rows, Plan{
		KeyColumn: "Handle",
		Entries: []Entry{
			{Key: grid.Text("@x2"), Set: map[string]grid.Value{"Status": grid.Text("done")}},
		},
	})
	require.NoError(t, err)
	for _, mut := range res.Mutations {
		require.NotEqual(t, 0, mut.Col, "key column must never be rewritten")
	}
	require.Len(t, res.Mutations, 1)
}

func TestParsePolicies(t *testing.T) {
	p, err := ParseMissingPolicy("")
	require.NoError(t, err)
	require.Equal(t, MissingSkip, p)
	_, err = ParseMissingPolicy("explode")
	require.Error(t, err)

	d, err := ParseDuplicatePolicy("first_match")
	require.NoError(t, err)
	require.Equal(t, DuplicateFirstMatch, d)
	_, err = ParseDuplicatePolicy("last")
	require.Error(t, err)
}
