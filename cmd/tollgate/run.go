package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/audit"
	"tollgate-hq/tollgate/pkg/audit/recorder"
	"tollgate-hq/tollgate/pkg/audit/retention"
	"tollgate-hq/tollgate/pkg/audit/storage"
	"tollgate-hq/tollgate/pkg/cli"
	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/engine"
	"tollgate-hq/tollgate/pkg/policy/manager"
	"tollgate-hq/tollgate/pkg/server"
	"tollgate-hq/tollgate/pkg/state"
)

var runFlags struct {
	listen   string
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the payment-gated server",
	Long: `Start the mock payment-gated HTTP server.

Every configured route is evaluated against the loaded policies on
each request. Priced routes answer 402 with an invoice until the
client presents an X-Payment header; denied requests answer 403
with the matched rule. Decisions land in the audit trail.

Examples:
  # Start with the default config file
  tollgate run

  # Override listen address and config path
  tollgate run --config prod.yaml --listen :9090

  # Check config and policies without serving
  tollgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listen, "listen", "l", "", "listen address (overrides config)")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "load config and policies, then exit")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if runFlags.listen != "" {
		cfg.Server.ListenAddress = runFlags.listen
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	loader := manager.NewLoader(nil, manager.LoaderConfig{AllowInvalid: cfg.Policy.AllowInvalid})
	mgr := manager.New(loader, cfg.Policy.Path, logger)
	if err := mgr.Load(); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load policies from %s: %w", cfg.Policy.Path, err))
	}

	snap := mgr.Current()
	logger.Info("policies loaded",
		"path", cfg.Policy.Path,
		"policies", snap.Set.Len(),
		"warnings", snap.Report.WarningCount())

	if runFlags.dryRun {
		fmt.Printf("Configuration and %d policies OK\n", snap.Set.Len())
		return nil
	}

	registry := prometheus.NewRegistry()
	store := state.NewMemoryStore()
	eng := engine.New(store, engine.WithMetrics(engine.NewMetricsFor(registry)))

	auditStore, err := newAuditStorage(cfg.Audit)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer auditStore.Close()

	rec := recorder.New(auditStore, &recorder.Config{
		Enabled:      true,
		BufferSize:   cfg.Audit.BufferSize,
		WriteTimeout: 5 * time.Second,
	})
	defer rec.Close()

	ctx := cli.SetupSignalHandler()

	pruner := retention.NewPruner(auditStore, &retention.Config{
		RetentionDays: cfg.Audit.RetentionDays,
		PruneSchedule: cfg.Audit.PruneSchedule,
	})
	scheduler := retention.NewScheduler(pruner)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start retention scheduler: %w", err))
	}
	defer scheduler.Stop()

	if cfg.Policy.Watch {
		go func() {
			if err := mgr.Watch(ctx); err != nil {
				logger.Error("policy watcher stopped", "error", err)
			}
		}()
		defer mgr.Close()
	}

	srv, err := server.New(server.Options{
		Config:   cfg,
		Manager:  mgr,
		Engine:   eng,
		Store:    store,
		Recorder: rec,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Start blocks until ctx is cancelled and shuts down gracefully.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func newAuditStorage(cfg config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := storage.NewSQLiteStorage(storage.DefaultSQLiteConfig(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		return s, nil
	default:
		return storage.NewMemoryStorage(), nil
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
