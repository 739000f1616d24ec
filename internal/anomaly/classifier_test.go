package anomaly

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"pulse-go/internal/models"
)

func row(class string, rmssd, pnn50, sdnn float64) models.FeatureRow {
	return models.FeatureRow{
		Classification: class,
		Stats:          models.VariabilityStats{RMSSD: rmssd, PNN50: pnn50, SDNN: sdnn},
	}
}

func TestThresholdsFromBaseline(t *testing.T) {
	t.Parallel()
	rmssd := []float64{20, 22, 24, 26, 28}
	rows := make([]models.FeatureRow, 0, len(rmssd)+1)
	for _, v := range rmssd {
		rows = append(rows, row("Sinus Rhythm", v, 1, 30))
	}
	rows = append(rows, row("Atrial Fibrillation", 500, 90, 400))

	got := New(DefaultOptions()).Thresholds(rows)

	mean, std := stat.MeanStdDev(rmssd, nil)
	if math.Abs(got.RMSSD-(mean+2*std)) > 1e-9 {
		t.Fatalf("RMSSD threshold=%v want %v", got.RMSSD, mean+2*std)
	}
	if got.PNN50 != 1 || got.SDNN != 30 {
		t.Fatalf("constant metrics must have zero spread, got %+v", got)
	}
	if got.Source != SourceBaseline || got.BaselineSize != 5 {
		t.Fatalf("source=%s size=%d", got.Source, got.BaselineSize)
	}
}

func TestThresholdsFallback(t *testing.T) {
	t.Parallel()
	rows := []models.FeatureRow{
		row("Sinus Rhythm", 20, 1, 30),
		row("Sinus Rhythm", 22, 1, 31),
		row("Sinus Rhythm", 24, 1, 32),
		row("Sinus Rhythm", 26, 1, 33),
		row("Atrial Fibrillation", 200, 80, 120),
	}
	got := New(DefaultOptions()).Thresholds(rows)
	if got.RMSSD != 150 || got.PNN50 != 70 || got.SDNN != 100 {
		t.Fatalf("fallback thresholds=%+v", got)
	}
	if got.Source != SourceFallback || got.BaselineSize != 4 {
		t.Fatalf("source=%s size=%d", got.Source, got.BaselineSize)
	}
}

func TestThresholdsSkipUndefined(t *testing.T) {
	t.Parallel()
	nan := math.NaN()
	rows := []models.FeatureRow{
		row("Sinus Rhythm", 20, nan, 30),
		row("Sinus Rhythm", 20, nan, 30),
		row("Sinus Rhythm", 20, nan, 30),
		row("Sinus Rhythm", nan, nan, nan),
		row("Sinus Rhythm", 20, 5, 30),
	}
	got := New(DefaultOptions()).Thresholds(rows)
	if got.RMSSD != 20 || got.SDNN != 30 {
		t.Fatalf("thresholds=%+v", got)
	}
	if got.PNN50 != 70 {
		t.Fatalf("PNN50 with a single defined value must fall back, got %v", got.PNN50)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()
	limits := models.Thresholds{RMSSD: 50, PNN50: 20, SDNN: 60}
	tests := []struct {
		name  string
		stats models.VariabilityStats
		want  models.AnomalyLabel
	}{
		{name: "below", stats: models.VariabilityStats{RMSSD: 10, PNN50: 1, SDNN: 10}, want: models.LabelStable},
		{name: "equal is stable", stats: models.VariabilityStats{RMSSD: 50, PNN50: 20, SDNN: 60}, want: models.LabelStable},
		{name: "rmssd over", stats: models.VariabilityStats{RMSSD: 50.1, PNN50: 1, SDNN: 10}, want: models.LabelAlert},
		{name: "pnn50 over", stats: models.VariabilityStats{RMSSD: 10, PNN50: 21, SDNN: 10}, want: models.LabelAlert},
		{name: "sdnn over", stats: models.VariabilityStats{RMSSD: 10, PNN50: 1, SDNN: 61}, want: models.LabelAlert},
		{name: "undefined", stats: models.UndefinedStats(), want: models.LabelStable},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Label(tc.stats, limits); got != tc.want {
				t.Fatalf("Label(%+v)=%s want %s", tc.stats, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	rows := []models.FeatureRow{
		row("Sinus Rhythm", 20, 1, 30),
		row("Sinus Rhythm", 200, 1, 30),
	}
	New(DefaultOptions()).Classify(rows)
	if rows[0].Alert != models.LabelStable || rows[1].Alert != models.LabelAlert {
		t.Fatalf("labels=%s,%s", rows[0].Alert, rows[1].Alert)
	}
}
