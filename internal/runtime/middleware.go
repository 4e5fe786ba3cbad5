package runtime

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Middleware bounds global concurrency and applies an operation timeout
// to every tool call via the Controller.
type Middleware struct {
	ctrl *Controller
}

// NewMiddleware constructs a Middleware bound to the provided Controller.
func NewMiddleware(ctrl *Controller) *Middleware {
	return &Middleware{ctrl: ctrl}
}

// ToolMiddleware implements mcp-go's tool handler middleware interface.
// It acquires a request slot with a bounded wait, applies a timeout, and
// guarantees release.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		acquireCtx := ctx
		if m.ctrl.limits.AcquireRequestTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, m.ctrl.limits.AcquireRequestTimeout)
			defer cancel()
		}

		if err := m.ctrl.AcquireRequest(acquireCtx); err != nil {
			msg := fmt.Sprintf("BUSY_RESOURCE: concurrent request limit reached (max=%d). Please retry shortly.", m.ctrl.limits.MaxConcurrentRequests)
			return mcp.NewToolResultError(msg), nil
		}
		defer m.ctrl.ReleaseRequest()

		callCtx := ctx
		cancel := func() {}
		if m.ctrl.limits.OperationTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, m.ctrl.limits.OperationTimeout)
		}
		defer cancel()

		res, err := next(callCtx, req)

		// Prefer a tool-level timeout error over a raw context error so
		// clients can self-correct.
		if err == context.DeadlineExceeded || (callCtx.Err() == context.DeadlineExceeded && err == nil && res == nil) {
			return mcp.NewToolResultError("TIMEOUT: operation exceeded configured time limit"), nil
		}

		return res, err
	}
}
