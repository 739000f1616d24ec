package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pulse-go/internal/config"
	logger "pulse-go/internal/logging"
	"pulse-go/internal/repository"
	"pulse-go/internal/router"
	"pulse-go/internal/services"
	"pulse-go/internal/telemetry"
)

const usage = `Usage: pulse-go [run|trends|serve] [flags]

Commands:
  run     process ECG exports, metric trends, nudges and charts (default)
  trends  only export the per-metric trend files and weekly nudges
  serve   run once, serve the API and re-run when inputs change

Flags:
`

// watchQuiet is how long the input directories must stay quiet before a
// change triggers a new run.
const watchQuiet = 2 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pulse-go:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	flags := config.Flags("pulse-go")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, v, err := config.Load(".", flags)
	if err != nil {
		return err
	}

	// Initialize Logger
	log, err := logger.Init(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := telemetry.New()
	store := repository.NewRunStore()
	runner := services.NewRunner(cfg, log, m, store)

	switch command {
	case "run":
		snap, err := runner.Run(ctx)
		if err != nil {
			log.Error("Run failed", zap.Error(err))
			return err
		}
		log.Info("Run complete",
			zap.Int("rows", snap.Diagnostics.Rows),
			zap.Int("alerts", snap.Diagnostics.Alerts),
			zap.Int("failures", len(snap.Diagnostics.Failures)),
			zap.String("output", cfg.Output.Dir))
		return nil
	case "trends":
		table, err := runner.RunTrends()
		if err != nil {
			log.Error("Trend export failed", zap.Error(err))
			return err
		}
		log.Info("Trends complete", zap.Int("weeks", len(table.Weeks)))
		return nil
	case "serve":
		return serve(ctx, log, v, runner, store, m)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, log *zap.Logger, v *viper.Viper, runner *services.Runner, store *repository.RunStore, m *telemetry.Metrics) error {
	cfg := runner.Config()

	// A failed first run still serves the API; it answers 503 until a run lands.
	if _, err := runner.Run(ctx); err != nil {
		log.Error("Initial run failed", zap.Error(err))
	}

	config.Watch(v, log, func(next *config.Config) {
		runner.SetConfig(next)
		log.Info("Runner configuration updated; server settings apply after restart")
	})

	watcher := services.NewWatcher(log, watchQuiet, func(ctx context.Context) {
		if _, err := runner.Run(ctx); err != nil {
			if errors.Is(err, services.ErrRunInProgress) {
				log.Debug("Input changed during a run, skipping")
				return
			}
			log.Error("Triggered run failed", zap.Error(err))
		}
	}, cfg.Input.ECGDir, cfg.Input.HealthDir)
	if err := watcher.Start(ctx); err != nil {
		log.Warn("Input watcher disabled", zap.Error(err))
	}

	// Setup router, passing the logger to it
	r := router.Setup(log, router.Deps{
		Store:      store,
		Runner:     runner,
		Metrics:    m,
		Dashboards: func() []config.DashboardConfig { return runner.Config().Dashboards },
		RateLimit:  cfg.Server.RateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening on http://localhost" + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Failed to run Gin server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
