// Package config loads server configuration from layered sources:
// built-in defaults, an optional YAML file, and MCPTAB_* environment
// variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults for runtime limits and guardrails. Conservative; override via
// config file or environment.
const (
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenWorkbooks      = 4
	DefaultMaxCellsPerOp         = 10_000
	DefaultPreviewRowLimit       = 10
	DefaultPageRows              = 500
	DefaultHeaderScanRows        = 5

	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	DefaultWorkbookIdleTTL       = 10 * time.Minute
	DefaultWorkbookCleanupPeriod = time.Minute
)

// Limits captures concurrency, payload, and timing guardrails.
type Limits struct {
	MaxConcurrentRequests int           `koanf:"max_concurrent_requests"`
	MaxOpenWorkbooks      int           `koanf:"max_open_workbooks"`
	MaxCellsPerOp         int           `koanf:"max_cells_per_op"`
	PreviewRowLimit       int           `koanf:"preview_row_limit"`
	PageRows              int           `koanf:"page_rows"`
	HeaderScanRows        int           `koanf:"header_scan_rows"`
	OperationTimeout      time.Duration `koanf:"operation_timeout"`
	AcquireRequestTimeout time.Duration `koanf:"acquire_request_timeout"`
}

// Store configures the local workbook backend.
type Store struct {
	AllowedDirs   []string      `koanf:"allowed_dirs"`
	IdleTTL       time.Duration `koanf:"idle_ttl"`
	CleanupPeriod time.Duration `koanf:"cleanup_period"`
}

// Config is the root configuration document.
type Config struct {
	Limits Limits `koanf:"limits"`
	Store  Store  `koanf:"store"`
}

func defaults() map[string]any {
	return map[string]any{
		"limits.max_concurrent_requests": DefaultMaxConcurrentRequests,
		"limits.max_open_workbooks":      DefaultMaxOpenWorkbooks,
		"limits.max_cells_per_op":        DefaultMaxCellsPerOp,
		"limits.preview_row_limit":       DefaultPreviewRowLimit,
		"limits.page_rows":               DefaultPageRows,
		"limits.header_scan_rows":        DefaultHeaderScanRows,
		"limits.operation_timeout":       DefaultOperationTimeout,
		"limits.acquire_request_timeout": DefaultAcquireRequestTimeout,
		"store.idle_ttl":                 DefaultWorkbookIdleTTL,
		"store.cleanup_period":           DefaultWorkbookCleanupPeriod,
	}
}

// Load builds the configuration. path may be empty to skip the file layer.
// Environment variables use the MCPTAB_ prefix with underscores doubling
// as section separators, e.g. MCPTAB_LIMITS__MAX_CELLS_PER_OP=5000 or
// MCPTAB_STORE__ALLOWED_DIRS=/data/sheets:/tmp/sheets.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("MCPTAB_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "MCPTAB_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Path-list values arrive as a single separator-joined string from env.
	if len(cfg.Store.AllowedDirs) == 1 && strings.ContainsRune(cfg.Store.AllowedDirs[0], os.PathListSeparator) {
		cfg.Store.AllowedDirs = filepath.SplitList(cfg.Store.AllowedDirs[0])
	}

	return &cfg, nil
}
