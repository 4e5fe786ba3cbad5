package registry

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// WriteToolFilter hides mutating tools from discovery unless writes are
// explicitly enabled with MCPTAB_ENABLE_WRITES=true.
type WriteToolFilter struct {
	allowWrites bool
}

// NewWriteToolFilterFromEnv constructs a filter using MCPTAB_ENABLE_WRITES.
func NewWriteToolFilterFromEnv() *WriteToolFilter {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MCPTAB_ENABLE_WRITES")))
	allow := v == "1" || v == "true" || v == "yes"
	return &WriteToolFilter{allowWrites: allow}
}

// Enabled reports whether mutating tools are exposed.
func (f *WriteToolFilter) Enabled() bool { return f.allowWrites }

// FilterTools implements server tool filtering semantics. When writes are
// disabled, tools whose names mark them as mutating are excluded.
func (f *WriteToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if f.allowWrites {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		name := strings.ToLower(t.Name)
		if strings.HasPrefix(name, "update_") || strings.HasPrefix(name, "append_") || strings.HasPrefix(name, "clear_") {
			continue
		}
		out = append(out, t)
	}
	return out
}
