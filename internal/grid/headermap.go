package grid

import (
	"fmt"
	"strings"
)

// HeaderMap is an ordered sequence of column names with a case-insensitive
// lookup index. Insertion order defines the canonical column order; names
// must be unique under case folding.
type HeaderMap struct {
	names []string
	index map[string]int
}

// NewHeaderMap builds a HeaderMap from column names. Names are trimmed of
// surrounding whitespace; blank names receive a positional placeholder
// (Column_1, Column_2, ...). Duplicate names under case-insensitive
// comparison are rejected.
func NewHeaderMap(names []string) (*HeaderMap, error) {
	h := &HeaderMap{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		if err := h.Append(name); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Append adds a column at the end of the canonical order.
func (h *HeaderMap) Append(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("grid: empty column name")
	}
	key := strings.ToLower(name)
	if prev, ok := h.index[key]; ok {
		return fmt.Errorf("grid: duplicate column name %q (position %d)", name, prev)
	}
	h.index[key] = len(h.names)
	h.names = append(h.names, name)
	return nil
}

// Lookup returns the column position for a name, matching
// case-insensitively.
func (h *HeaderMap) Lookup(name string) (int, bool) {
	i, ok := h.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Name returns the canonical column name at position i.
func (h *HeaderMap) Name(i int) string { return h.names[i] }

// Names returns the columns in canonical order.
func (h *HeaderMap) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the column count.
func (h *HeaderMap) Len() int { return len(h.names) }
