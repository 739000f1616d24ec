package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"pulse-go/internal/config"
	"pulse-go/internal/ecg/ecgtest"
	"pulse-go/internal/export"
	"pulse-go/internal/models"
	"pulse-go/internal/telemetry"
)

func testOptions() Options {
	opts := OptionsFromConfig(config.Default().ECG)
	opts.Workers = 4
	opts.Timezone = "America/Chicago"
	return opts
}

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p, err := New(opts, zaptest.NewLogger(t), telemetry.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func cohortDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ecgtest.Cohort(t, dir)
	ecgtest.Write(t, dir, "ecg_2024-02-27.csv", ecgtest.Export{
		Patient:        "Jane Doe",
		RecordedAt:     "sometime in February",
		Classification: "Sinus Rhythm",
		Samples:        []float64{1, 2, 3},
	})
	ecgtest.Write(t, dir, "ecg_2024-02-28.csv", ecgtest.Export{
		Patient:        "Jane Doe",
		RecordedAt:     "2024-02-28 08:00:00 -0600",
		Classification: "Sinus Rhythm",
		Samples:        make([]float64, 20),
	})
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not an export"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunLabelsCohort(t *testing.T) {
	t.Parallel()
	dir := cohortDir(t)

	res, err := newPipeline(t, testOptions()).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Rows) != 6 {
		t.Fatalf("rows=%d want 6", len(res.Rows))
	}
	for i, row := range res.Rows {
		want := models.LabelStable
		if i == 5 {
			want = models.LabelAlert
		}
		if row.Alert != want {
			t.Errorf("%s: label=%s want %s (stats %+v, thresholds %+v)", row.Source, row.Alert, want, row.Stats, res.Thresholds)
		}
		if row.Classification == "Poor Recording" {
			t.Errorf("%s: poor recording reached the features table", row.Source)
		}
		if len(row.FilteredSamples) == 0 || len(row.Peaks) != 30 {
			t.Errorf("%s: filtered=%d peaks=%d", row.Source, len(row.FilteredSamples), len(row.Peaks))
		}
		if row.Enrichment == nil {
			t.Errorf("%s: enrichment missing", row.Source)
		}
	}
	if res.Rows[5].Stats.RMSSD < 2.5*res.Rows[0].Stats.RMSSD {
		t.Errorf("outlier RMSSD=%v cohort RMSSD=%v", res.Rows[5].Stats.RMSSD, res.Rows[0].Stats.RMSSD)
	}

	if res.Thresholds.Source != "baseline" || res.Thresholds.BaselineSize != 6 {
		t.Errorf("thresholds=%+v", res.Thresholds)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"ecg_2024-03-07.csv"}) {
		t.Errorf("skipped=%v", res.Skipped)
	}

	stages := map[string]string{}
	for _, f := range res.Failures {
		stages[f.Source] = f.Stage
	}
	want := map[string]string{
		"ecg_2024-02-27.csv": models.StageLoad,
		"ecg_2024-02-28.csv": models.StageCondition,
	}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("failures=%+v", res.Failures)
	}
	if res.RunID == "" || res.Alerts() != 1 {
		t.Errorf("run id=%q alerts=%d", res.RunID, res.Alerts())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	dir := cohortDir(t)

	write := func(workers int) []byte {
		opts := testOptions()
		opts.Workers = workers
		res, err := newPipeline(t, opts).Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		path, err := export.WriteFeatures(t.TempDir(), res.Rows)
		if err != nil {
			t.Fatalf("WriteFeatures: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first, second := write(1), write(8)
	if !bytes.Equal(first, second) {
		t.Fatal("features table differs between runs")
	}
}

func TestRunWithoutEnrichment(t *testing.T) {
	t.Parallel()
	opts := testOptions()
	opts.Enrich = false
	res, err := newPipeline(t, opts).Run(context.Background(), cohortDir(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, row := range res.Rows {
		if row.Enrichment != nil {
			t.Fatalf("%s: enrichment present with enrich disabled", row.Source)
		}
	}
}

func TestRunSmallCohortFallsBack(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.csv"} {
		ecgtest.Write(t, dir, name, ecgtest.Export{
			Patient:        "Jane Doe",
			RecordedAt:     "2024-03-01 08:15:30 -0600",
			Classification: "Sinus Rhythm",
			Samples:        ecgtest.Alternating(410, 10, 20),
		})
	}
	res, err := newPipeline(t, testOptions()).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Thresholds.Source != "fallback" || res.Thresholds.RMSSD != 150 {
		t.Fatalf("thresholds=%+v", res.Thresholds)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newPipeline(t, testOptions()).Run(ctx, cohortDir(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if res == nil || len(res.Rows) != 0 {
		t.Fatalf("result=%+v", res)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	t.Parallel()
	if _, err := newPipeline(t, testOptions()).Run(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRejectsBadFilter(t *testing.T) {
	t.Parallel()
	opts := testOptions()
	opts.HighCut = 400
	if _, err := New(opts, zaptest.NewLogger(t), nil); err == nil {
		t.Fatal("expected filter design error")
	}
}
