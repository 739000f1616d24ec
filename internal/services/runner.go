// Package services holds the long-lived pieces behind the CLI commands: the
// full run, the alert notifier and the input watcher.
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"pulse-go/internal/charts"
	"pulse-go/internal/config"
	"pulse-go/internal/export"
	"pulse-go/internal/nudges"
	"pulse-go/internal/pipeline"
	"pulse-go/internal/repository"
	"pulse-go/internal/telemetry"
	"pulse-go/internal/trends"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Runner executes full runs and publishes them to the store.
type Runner struct {
	log      *zap.Logger
	metrics  *telemetry.Metrics
	store    *repository.RunStore
	notifier *AlertNotifier

	cfgMu sync.RWMutex
	cfg   *config.Config

	running sync.Mutex
}

// NewRunner returns a Runner. metrics may be nil.
func NewRunner(cfg *config.Config, log *zap.Logger, m *telemetry.Metrics, store *repository.RunStore) *Runner {
	return &Runner{
		log:      log,
		metrics:  m,
		store:    store,
		notifier: NewAlertNotifier(log),
		cfg:      cfg,
	}
}

// SetConfig swaps the configuration used by later runs.
func (r *Runner) SetConfig(cfg *config.Config) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.cfg = cfg
}

// Config returns the configuration the next run will use.
func (r *Runner) Config() *config.Config {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.cfg
}

// Run executes the ECG pipeline, the trend exporters, the nudges and the
// charts, writes every artifact and publishes the snapshot. Only one run is
// active at a time.
func (r *Runner) Run(ctx context.Context) (*repository.Snapshot, error) {
	if !r.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.running.Unlock()

	cfg := r.Config()
	out := cfg.Output.Dir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	p, err := pipeline.New(pipeline.OptionsFromConfig(cfg.ECG), r.log, r.metrics)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	res, err := p.Run(ctx, cfg.Input.ECGDir)
	if err != nil {
		return nil, err
	}

	if _, err := export.WriteFeatures(out, res.Rows); err != nil {
		return nil, err
	}
	diag := res.Diagnostics()
	if _, err := export.WriteDiagnostics(out, diag); err != nil {
		return nil, err
	}
	r.notifier.Notify(res.RunID, res.Rows, res.Thresholds)

	table, err := r.runTrends(cfg)
	if err != nil {
		return nil, err
	}

	docs := charts.Build(res.Rows, table, cfg.ECG.SamplingRate)
	if _, err := charts.Write(out, docs); err != nil {
		return nil, err
	}

	snap := &repository.Snapshot{Diagnostics: diag, Rows: res.Rows, Nudges: table, Charts: docs}
	r.store.Put(snap)
	r.log.Info("Run published", zap.String("run_id", res.RunID), zap.String("output", out))
	return snap, nil
}

// RunTrends only runs the metric exporters and the weekly nudges.
func (r *Runner) RunTrends() (nudges.Table, error) {
	if !r.running.TryLock() {
		return nudges.Table{}, ErrRunInProgress
	}
	defer r.running.Unlock()
	return r.runTrends(r.Config())
}

func (r *Runner) runTrends(cfg *config.Config) (nudges.Table, error) {
	if _, err := os.Stat(cfg.Input.HealthDir); errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("Health export directory not found, skipping trends", zap.String("dir", cfg.Input.HealthDir))
		return nudges.Table{}, nil
	}

	catalog, err := trends.LoadCatalog(cfg.Trends.Catalog)
	if err != nil {
		return nudges.Table{}, err
	}
	exporter, err := trends.NewExporter(catalog, cfg.Trends.Window, cfg.Trends.MinPeriods, cfg.Trends.Timezone, r.log)
	if err != nil {
		return nudges.Table{}, err
	}
	series, err := exporter.Build(cfg.Input.HealthDir)
	if err != nil {
		return nudges.Table{}, err
	}
	paths, err := trends.Write(cfg.Output.Dir, series)
	if err != nil {
		return nudges.Table{}, err
	}

	table := nudges.Build(series)
	if _, err := nudges.Write(cfg.Output.Dir, table); err != nil {
		return nudges.Table{}, err
	}
	r.log.Info("Trend exports written", zap.Int("files", len(paths)), zap.Int("weeks", len(table.Weeks)))
	return table, nil
}
