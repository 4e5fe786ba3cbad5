// Package runtime enforces concurrency and timing guardrails for tool
// calls: a global request cap, a workbook handle cap, and per-operation
// timeouts.
package runtime

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gridwell/mcptab/config"
)

// Limits captures the effective guardrails derived from configuration.
type Limits struct {
	MaxConcurrentRequests int
	MaxOpenWorkbooks      int
	MaxCellsPerOp         int
	PreviewRowLimit       int
	PageRows              int
	HeaderScanRows        int

	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// LimitsFromConfig fills unset values with defaults.
func LimitsFromConfig(c config.Limits) Limits {
	l := Limits{
		MaxConcurrentRequests: c.MaxConcurrentRequests,
		MaxOpenWorkbooks:      c.MaxOpenWorkbooks,
		MaxCellsPerOp:         c.MaxCellsPerOp,
		PreviewRowLimit:       c.PreviewRowLimit,
		PageRows:              c.PageRows,
		HeaderScanRows:        c.HeaderScanRows,
		OperationTimeout:      c.OperationTimeout,
		AcquireRequestTimeout: c.AcquireRequestTimeout,
	}
	if l.MaxConcurrentRequests <= 0 {
		l.MaxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if l.MaxOpenWorkbooks <= 0 {
		l.MaxOpenWorkbooks = config.DefaultMaxOpenWorkbooks
	}
	if l.MaxCellsPerOp <= 0 {
		l.MaxCellsPerOp = config.DefaultMaxCellsPerOp
	}
	if l.PreviewRowLimit <= 0 {
		l.PreviewRowLimit = config.DefaultPreviewRowLimit
	}
	if l.PageRows <= 0 {
		l.PageRows = config.DefaultPageRows
	}
	if l.HeaderScanRows <= 0 {
		l.HeaderScanRows = config.DefaultHeaderScanRows
	}
	if l.OperationTimeout <= 0 {
		l.OperationTimeout = config.DefaultOperationTimeout
	}
	if l.AcquireRequestTimeout <= 0 {
		l.AcquireRequestTimeout = config.DefaultAcquireRequestTimeout
	}
	return l
}

// Controller coordinates weighted semaphores for request and workbook
// capacity.
type Controller struct {
	limits            Limits
	requestSemaphore  *semaphore.Weighted
	workbookSemaphore *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:            limits,
		requestSemaphore:  semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		workbookSemaphore: semaphore.NewWeighted(int64(limits.MaxOpenWorkbooks)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireWorkbook reserves an open workbook slot.
func (c *Controller) AcquireWorkbook(ctx context.Context) error {
	return c.workbookSemaphore.Acquire(ctx, 1)
}

// ReleaseWorkbook frees an open workbook slot.
func (c *Controller) ReleaseWorkbook() {
	c.workbookSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
