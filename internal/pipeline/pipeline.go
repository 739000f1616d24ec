// Package pipeline runs a directory of ECG exports through loading,
// conditioning, beat detection, interval analysis and classification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pulse-go/internal/anomaly"
	"pulse-go/internal/config"
	"pulse-go/internal/ecg"
	"pulse-go/internal/metrics"
	"pulse-go/internal/models"
	"pulse-go/internal/telemetry"
)

// Options are the explicit tunables of a run.
type Options struct {
	SamplingRate   float64
	LowCut         float64
	HighCut        float64
	FilterOrder    int
	PeakThreshold  float64
	Bounds         metrics.Bounds
	ExcludedLabels []string
	HeaderLines    int
	Timezone       string
	Enrich         bool
	Workers        int
	Anomaly        anomaly.Options
}

// OptionsFromConfig maps the ecg config section onto run options.
func OptionsFromConfig(c config.ECGConfig) Options {
	return Options{
		SamplingRate:   c.SamplingRate,
		LowCut:         c.LowCut,
		HighCut:        c.HighCut,
		FilterOrder:    c.FilterOrder,
		PeakThreshold:  c.PeakThreshold,
		Bounds:         metrics.Bounds{Min: c.MinRR, Max: c.MaxRR},
		ExcludedLabels: c.ExcludedLabels,
		HeaderLines:    c.HeaderLines,
		Timezone:       c.Timezone,
		Enrich:         c.Enrich,
		Workers:        c.Workers,
		Anomaly: anomaly.Options{
			BaselineLabel: c.BaselineLabel,
			MinRecords:    c.MinBaselineRecords,
			Multiplier:    c.ThresholdMultiplier,
			Fallback: models.Thresholds{
				RMSSD: c.Fallback.RMSSD,
				PNN50: c.Fallback.PNN50,
				SDNN:  c.Fallback.SDNN,
			},
		},
	}
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []models.FeatureRow
	Failures   []models.Failure
	Skipped    []string
	Thresholds models.Thresholds
}

// Alerts counts rows labelled HRV Alert.
func (r *Result) Alerts() int {
	n := 0
	for _, row := range r.Rows {
		if row.Alert == models.LabelAlert {
			n++
		}
	}
	return n
}

// Diagnostics summarizes the run. Empty lists encode as [] rather than null.
func (r *Result) Diagnostics() models.Diagnostics {
	d := models.Diagnostics{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Rows:       len(r.Rows),
		Alerts:     r.Alerts(),
		Thresholds: r.Thresholds,
		Failures:   r.Failures,
		Skipped:    r.Skipped,
	}
	if d.Failures == nil {
		d.Failures = []models.Failure{}
	}
	if d.Skipped == nil {
		d.Skipped = []string{}
	}
	return d
}

// Pipeline holds the stages built once per configuration.
type Pipeline struct {
	opts        Options
	loader      *ecg.Loader
	conditioner *ecg.Conditioner
	detector    ecg.BeatDetector
	classifier  *anomaly.Classifier
	log         *zap.Logger
	metrics     *telemetry.Metrics
}

// New validates opts and prepares every stage. m may be nil.
func New(opts Options, log *zap.Logger, m *telemetry.Metrics) (*Pipeline, error) {
	loader, err := ecg.NewLoader(opts.HeaderLines, opts.Timezone)
	if err != nil {
		return nil, err
	}
	conditioner, err := ecg.NewConditioner(ecg.ConditionerOptions{
		SamplingRate:   opts.SamplingRate,
		LowCut:         opts.LowCut,
		HighCut:        opts.HighCut,
		Order:          opts.FilterOrder,
		ExcludedLabels: opts.ExcludedLabels,
	})
	if err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		opts:        opts,
		loader:      loader,
		conditioner: conditioner,
		detector:    ecg.BeatDetector{Threshold: opts.PeakThreshold},
		classifier:  anomaly.New(opts.Anomaly),
		log:         log,
		metrics:     m,
	}, nil
}

// outcome is the per-file slot written by exactly one worker.
type outcome struct {
	row     *models.FeatureRow
	failure *models.Failure
	skipped bool
}

// Run processes every export in dir. Individual records never fail the run;
// only an unreadable directory or a cancelled context returns an error. On
// cancellation the partial result is returned alongside ctx.Err().
func (p *Pipeline) Run(ctx context.Context, dir string) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := p.log.With(zap.String("run_id", res.RunID))

	files, err := ecg.ListFiles(dir)
	if err != nil {
		p.metrics.RunFinished(0, 0, err)
		return nil, err
	}
	log.Info("Starting ECG run", zap.String("dir", dir), zap.Int("files", len(files)), zap.Int("workers", p.opts.Workers))

	slots := make([]outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		i, path := i, path
		g.Go(func() error {
			slots[i] = p.process(log, path)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range slots {
		switch {
		case o.row != nil:
			res.Rows = append(res.Rows, *o.row)
		case o.failure != nil:
			res.Failures = append(res.Failures, *o.failure)
		case o.skipped:
			res.Skipped = append(res.Skipped, fileSource(files[i]))
		}
	}

	// Barrier: thresholds need every row.
	res.Thresholds = p.classifier.Classify(res.Rows)
	res.FinishedAt = time.Now()

	if err := ctx.Err(); err != nil {
		p.metrics.RunFinished(res.FinishedAt.Sub(res.StartedAt), 0, err)
		return res, fmt.Errorf("run %s cancelled: %w", res.RunID, err)
	}

	p.metrics.RunFinished(res.FinishedAt.Sub(res.StartedAt), res.Alerts(), nil)
	log.Info("ECG run finished",
		zap.Int("rows", len(res.Rows)),
		zap.Int("failures", len(res.Failures)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("alerts", res.Alerts()),
		zap.String("threshold_source", res.Thresholds.Source),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

// process takes one file from load to enrichment.
func (p *Pipeline) process(log *zap.Logger, path string) outcome {
	source := fileSource(path)
	fail := func(stage string, err error) outcome {
		log.Warn("Dropping ECG record", zap.String("source", source), zap.String("stage", stage), zap.Error(err))
		p.metrics.RecordOutcome(stage, "failed")
		return outcome{failure: &models.Failure{Source: source, Stage: stage, Reason: err.Error()}}
	}

	rec, err := p.loader.LoadFile(path)
	if err != nil {
		return fail(models.StageLoad, err)
	}
	cr, err := p.conditioner.Condition(rec)
	if errors.Is(err, ecg.ErrExcluded) {
		log.Debug("Skipping excluded recording", zap.String("source", source), zap.String("classification", rec.Classification))
		p.metrics.RecordOutcome(models.StageCondition, "skipped")
		return outcome{skipped: true}
	}
	if err != nil {
		return fail(models.StageCondition, err)
	}

	peaks := p.detector.Detect(cr)
	analysis := metrics.Analyze(peaks, p.opts.SamplingRate, p.opts.Bounds)

	row := &models.FeatureRow{
		Source:            rec.Source,
		Patient:           rec.PatientID,
		RecordedAt:        rec.RecordedAt,
		Classification:    rec.Classification,
		Stats:             analysis.Stats,
		FilteredSamples:   cr.FilteredSamples,
		Peaks:             peaks,
		Intervals:         analysis.Intervals,
		FilteredIntervals: analysis.Filtered,
	}

	if p.opts.Enrich {
		hrv, err := metrics.ExtractTimeDomain(cr.FilteredSamples, p.opts.SamplingRate, p.opts.Bounds)
		if err != nil {
			log.Warn("Time-domain enrichment failed, keeping record", zap.String("source", source), zap.Error(err))
			p.metrics.RecordOutcome(models.StageEnrich, "failed")
		} else {
			row.Enrichment = hrv
		}
	}

	log.Debug("Processed ECG record", zap.String("source", source), zap.Int("peaks", len(peaks)))
	p.metrics.RecordOutcome(models.StageAnalyze, "ok")
	return outcome{row: row}
}

func fileSource(path string) string {
	return filepath.Base(path)
}
