package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func headers(t *testing.T, names ...string) *HeaderMap {
	t.Helper()
	h, err := NewHeaderMap(names)
	require.NoError(t, err)
	return h
}

func TestNormalize_2D(t *testing.T) {
	g, err := Normalize([]any{
		[]any{"a", 1, true},
		[]any{"b", 2, false},
	}, NormalizeOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, g.Height())
	require.Equal(t, 3, g.Width())
	require.Equal(t, Text("a"), g.At(0, 0))
	require.Equal(t, Number(1), g.At(0, 1))
	require.Equal(t, Bool(true), g.At(0, 2))
}

func TestNormalize_RaggedRowsPadWithNull(t *testing.T) {
	g, err := Normalize([]any{
		[]any{"a", 1},
		[]any{"b"},
	}, NormalizeOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, g.Width())
	require.Equal(t, Null(), g.At(1, 1))
}

func TestNormalize_RowObjects(t *testing.T) {
	h := headers(t, "Name", "Age", "Role")
	g, err := Normalize([]any{
		map[string]any{"Age": 30, "Name": "Bob"},
	}, NormalizeOptions{Headers: h})
	require.NoError(t, err)
	require.Equal(t, 1, g.Height())
	require.Equal(t, 3, g.Width())
	require.Equal(t, Text("Bob"), g.At(0, 0))
	require.Equal(t, Number(30), g.At(0, 1))
	require.Equal(t, Null(), g.At(0, 2))
}

func TestNormalize_RowObjectKeysCaseInsensitive(t *testing.T) {
	h := headers(t, "Name", "Age")
	g, err := Normalize([]any{
		map[string]any{"name": "Ada", "AGE": 36},
	}, NormalizeOptions{Headers: h})
	require.NoError(t, err)
	require.Equal(t, Text("Ada"), g.At(0, 0))
	require.Equal(t, Number(36), g.At(0, 1))
}

func TestNormalize_UnknownKeyStrictVsPermissive(t *testing.T) {
	h := headers(t, "Name")
	_, err := Normalize([]any{
		map[string]any{"Name": "x", "Salary": 10},
	}, NormalizeOptions{Headers: h})
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)
	require.Equal(t, "Salary", alignErr.Key)

	g, err := Normalize([]any{
		map[string]any{"Name": "x", "Salary": 10},
	}, NormalizeOptions{Headers: h, Permissive: true})
	require.NoError(t, err)
	require.Equal(t, 1, g.Width())
}

func TestNormalize_RowObjectsRequireHeaders(t *testing.T) {
	_, err := Normalize([]any{map[string]any{"a": 1}}, NormalizeOptions{})
	require.Error(t, err)
}

func TestNormalize_1DOrientation(t *testing.T) {
	g, err := Normalize([]any{1, 2, 3}, NormalizeOptions{Orient: OrientRow})
	require.NoError(t, err)
	require.Equal(t, 1, g.Height())
	require.Equal(t, 3, g.Width())

	g, err = Normalize([]any{1, 2, 3}, NormalizeOptions{Orient: OrientColumn})
	require.NoError(t, err)
	require.Equal(t, 3, g.Height())
	require.Equal(t, 1, g.Width())
}

func TestNormalize_StructuredValuesBecomeCanonicalJSON(t *testing.T) {
	g, err := Normalize([]any{
		[]any{map[string]any{"b": 2, "a": 1}, []any{1, "x"}},
	}, NormalizeOptions{})
	require.NoError(t, err)
	// Map keys serialize sorted, so the encoding is deterministic.
	require.Equal(t, Text(`{"a":1,"b":2}`), g.At(0, 0))
	require.Equal(t, Text(`[1,"x"]`), g.At(0, 1))
}

func TestNormalize_NonScalarCellFails(t *testing.T) {
	_, err := Normalize([]any{
		[]any{"ok", func() {}},
	}, NormalizeOptions{})
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 0, ce.Row)
	require.Equal(t, 1, ce.Col)
}

func TestNormalize_NonScalarPositionFollowsOrientation(t *testing.T) {
	var ce *CoercionError

	_, err := Normalize([]any{"ok", func() {}}, NormalizeOptions{Orient: OrientColumn})
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 1, ce.Row)
	require.Equal(t, 0, ce.Col)

	_, err = Normalize([]any{"ok", func() {}}, NormalizeOptions{Orient: OrientRow})
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 0, ce.Row)
	require.Equal(t, 1, ce.Col)
}

func TestNormalize_EmptyInput(t *testing.T) {
	g, err := Normalize(nil, NormalizeOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, g.Height())
}

func TestCoerce_Scalars(t *testing.T) {
	v, err := Coerce(nil)
	require.NoError(t, err)
	require.True(t, v.IsNull())

	v, err = Coerce("s")
	require.NoError(t, err)
	require.Equal(t, KindText, v.Kind())

	v, err = Coerce(3)
	require.NoError(t, err)
	require.Equal(t, Number(3), v)

	v, err = Coerce(2.5)
	require.NoError(t, err)
	require.Equal(t, Number(2.5), v)

	v, err = Coerce(false)
	require.NoError(t, err)
	require.Equal(t, Bool(false), v)
}

func TestValue_IsEmpty(t *testing.T) {
	require.True(t, Null().IsEmpty())
	require.True(t, Text("").IsEmpty())
	require.False(t, Text("x").IsEmpty())
	require.False(t, Number(0).IsEmpty())
}

func TestFromStrings(t *testing.T) {
	g := FromStrings([][]string{{"a", ""}, {"", "b"}})
	require.Equal(t, Text("a"), g.At(0, 0))
	require.Equal(t, Null(), g.At(0, 1))
	require.Equal(t, Null(), g.At(1, 0))
}
