package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prasetyo/artifex/internal/config"
	"github.com/prasetyo/artifex/internal/logger"
	"github.com/prasetyo/artifex/internal/observability"
	"github.com/prasetyo/artifex/internal/tracing"
	"github.com/prasetyo/artifex/pkg/action"
	"github.com/prasetyo/artifex/pkg/coordinator"
	"github.com/prasetyo/artifex/pkg/debugserver"
	"github.com/prasetyo/artifex/pkg/pipeline"
	"github.com/prasetyo/artifex/pkg/reporter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator service",
	Long: `Run the coordinator service in the foreground. Actions posted to the
debug server's /actions endpoint are scheduled and executed; /stats,
/debug, /metrics, and /ws/stats expose the scheduling state.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	log := appLogger.GetZerolog()

	if err := tracing.InitOpenTelemetry("artifex"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OpenTelemetry, continuing without tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(ctx)
	}()

	observability.EnsureRegistered()
	if cfg.DataDir != "" {
		if err := observability.InitAuditLogger(filepath.Join(cfg.DataDir, "audit.log")); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize audit logger")
		}
	}

	coord := coordinator.New(coordinator.Options{Logger: log})

	p, err := pipeline.New(coord, pipeline.Options{
		MaxInFlight: cfg.Pipeline.MaxInFlight,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	registerDefaultRunners(p, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	var debugSrv *debugserver.Server
	if cfg.DebugServer.Enabled {
		debugSrv, err = debugserver.NewServer(debugserver.ServerOptions{
			Host: cfg.DebugServer.Host,
			Port: cfg.DebugServer.Port,
		}, coord, log)
		if err != nil {
			return fmt.Errorf("failed to create debug server: %w", err)
		}
		debugSrv.AttachDispatcher(p)

		go func() {
			if err := debugSrv.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	var rep *reporter.Reporter
	if cfg.Reporter.Enabled {
		rep, err = reporter.New(coord, reporter.Options{
			Schedule: cfg.Reporter.Schedule,
			Logger:   log,
		})
		if err != nil {
			return fmt.Errorf("failed to create reporter: %w", err)
		}
		rep.Start()
	}

	currentLevel := cfg.Logging.Level
	watcher, err := config.NewWatcher(loader, func(next *config.Config) {
		if logLevel == "" && next.Logging.Level != currentLevel {
			logger.SetLevel(next.Logging.Level)
			currentLevel = next.Logging.Level
			log.Info().Str("level", next.Logging.Level).Msg("Log level reloaded")
		}
		observability.RecordConfigAudit(ctx, "reload", "config-watcher", nil)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable")
	} else if err := watcher.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
	} else {
		defer watcher.Stop()
	}

	log.Info().
		Str("version", version).
		Bool("debugServer", cfg.DebugServer.Enabled).
		Bool("reporter", cfg.Reporter.Enabled).
		Msg("Artifex coordinator service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("Debug server failed")
	}

	if rep != nil {
		rep.Stop()
	}
	if debugSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Debug server shutdown error")
		}
	}

	// Let queued operations drain before exiting.
	if !coord.WaitForIdle(10 * time.Second) {
		log.Warn().Msg("Timed out waiting for in-flight operations")
	}

	return nil
}

// registerDefaultRunners wires logging runners for every action kind. Real
// executors are injected by embedding applications; the standalone service
// acknowledges and records each action.
func registerDefaultRunners(p *pipeline.Pipeline, log zerolog.Logger) {
	for _, kind := range []action.Kind{
		action.KindFile,
		action.KindShell,
		action.KindStart,
		action.KindBuild,
		action.KindSchemaOp,
		action.KindUnknown,
	} {
		k := kind
		p.Register(k, func(ctx context.Context, desc action.Descriptor) error {
			log.Info().
				Str("operationId", desc.OperationID).
				Str("kind", k.String()).
				Str("resource", desc.ResourceKey).
				Msg("Action executed")
			return nil
		})
	}
}
