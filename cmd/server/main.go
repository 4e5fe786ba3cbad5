package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gridwell/mcptab/config"
	"github.com/gridwell/mcptab/internal/backend"
	"github.com/gridwell/mcptab/internal/backend/local"
	"github.com/gridwell/mcptab/internal/datatable"
	"github.com/gridwell/mcptab/internal/registry"
	"github.com/gridwell/mcptab/internal/runtime"
	"github.com/gridwell/mcptab/internal/security"
	"github.com/gridwell/mcptab/internal/telemetry"
	"github.com/gridwell/mcptab/pkg/sheeturi"
	"github.com/gridwell/mcptab/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		configPath      string
		useStdio        bool
		shutdownTimeout time.Duration
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional; env overrides)")
	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	// Local .env is a convenience for development; absence is not an error.
	_ = godotenv.Load()

	logger := zlog.With().Str("service", "mcptab-server").Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("config: failed to load")
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// Allow-list roots come from config, with MCPTAB_ALLOWED_DIRS as the
	// env fallback. Deny-by-default on an empty list.
	var secMgr *security.Manager
	if len(cfg.Store.AllowedDirs) > 0 {
		secMgr, err = security.NewManager(cfg.Store.AllowedDirs, nil)
	} else {
		secMgr, err = security.NewManagerFromEnv()
	}
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize allow-list")
		fmt.Fprintln(os.Stderr, "invalid security configuration; set MCPTAB_ALLOWED_DIRS")
		os.Exit(1)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list configuration")
		fmt.Fprintln(os.Stderr, "no allowed directories configured; set MCPTAB_ALLOWED_DIRS")
		os.Exit(1)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	limits := runtime.LimitsFromConfig(cfg.Limits)
	controller := runtime.NewController(limits)
	middleware := runtime.NewMiddleware(controller)

	store := local.NewStore(cfg.Store.IdleTTL, cfg.Store.CleanupPeriod, controller, secMgr)
	store.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("store shutdown incomplete")
		}
	}()

	// Google-backed services are routed here once a client is configured;
	// only the local workbook backend ships today.
	router := backend.NewRouter()
	router.Register(sheeturi.KindLocal, store)

	tables := &datatable.Tables{Limits: controller.LimitsSnapshot(), Router: router}
	reg := registry.New()
	writeFilter := registry.NewWriteToolFilterFromEnv()

	srv := server.NewMCPServer(
		"MCP Spreadsheet Table Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(telemetry.BuildHooks(logger)),
		server.WithToolHandlerMiddleware(middleware.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool { return writeFilter.FilterTools(ctx, tools) }),
	)

	registry.RegisterTableTools(srv, reg, tables)

	logger.Info().
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_workbooks", limits.MaxOpenWorkbooks).
		Int("max_cells_per_op", limits.MaxCellsPerOp).
		Int("model_context_size", reg.ModelContextSize("gpt-4o")).
		Bool("writes_enabled", writeFilter.Enabled()).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		if err := server.ServeStdio(srv); err != nil {
			// Use stderr for transport errors so clients don't misinterpret output
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
	os.Exit(2)
}
