// Package anomaly labels records against per-batch HRV control limits.
package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pulse-go/internal/models"
)

// Threshold sources reported in diagnostics.
const (
	SourceBaseline = "baseline"
	SourceFallback = "fallback"
)

// Options configures the control-limit detector.
type Options struct {
	BaselineLabel string
	MinRecords    int
	Multiplier    float64
	Fallback      models.Thresholds
}

// DefaultOptions mirrors the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		BaselineLabel: "Sinus Rhythm",
		MinRecords:    5,
		Multiplier:    2,
		Fallback:      models.Thresholds{RMSSD: 150, PNN50: 70, SDNN: 100},
	}
}

// Classifier computes thresholds once per batch and labels every row.
type Classifier struct {
	opts Options
}

// New returns a Classifier for opts.
func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Thresholds derives mean + k*std limits from the baseline cohort. With too
// few baseline records the fixed fallback limits are returned. A metric with
// fewer than two defined baseline values also falls back individually.
func (c *Classifier) Thresholds(rows []models.FeatureRow) models.Thresholds {
	var rmssd, pnn50, sdnn []float64
	baseline := 0
	for _, r := range rows {
		if r.Classification != c.opts.BaselineLabel {
			continue
		}
		baseline++
		rmssd = appendDefined(rmssd, r.Stats.RMSSD)
		pnn50 = appendDefined(pnn50, r.Stats.PNN50)
		sdnn = appendDefined(sdnn, r.Stats.SDNN)
	}

	fb := c.opts.Fallback
	if baseline < c.opts.MinRecords {
		return models.Thresholds{
			RMSSD: fb.RMSSD, PNN50: fb.PNN50, SDNN: fb.SDNN,
			Source: SourceFallback, BaselineSize: baseline,
		}
	}
	return models.Thresholds{
		RMSSD:        c.limit(rmssd, fb.RMSSD),
		PNN50:        c.limit(pnn50, fb.PNN50),
		SDNN:         c.limit(sdnn, fb.SDNN),
		Source:       SourceBaseline,
		BaselineSize: baseline,
	}
}

func (c *Classifier) limit(values []float64, fallback float64) float64 {
	if len(values) < 2 {
		return fallback
	}
	mean, std := stat.MeanStdDev(values, nil)
	return mean + c.opts.Multiplier*std
}

// Label returns Alert when any statistic strictly exceeds its limit.
// Undefined statistics never trigger an alert.
func Label(s models.VariabilityStats, t models.Thresholds) models.AnomalyLabel {
	if s.RMSSD > t.RMSSD || s.PNN50 > t.PNN50 || s.SDNN > t.SDNN {
		return models.LabelAlert
	}
	return models.LabelStable
}

// Classify computes the batch thresholds and sets Alert on every row.
func (c *Classifier) Classify(rows []models.FeatureRow) models.Thresholds {
	t := c.Thresholds(rows)
	for i := range rows {
		rows[i].Alert = Label(rows[i].Stats, t)
	}
	return t
}

func appendDefined(dst []float64, v float64) []float64 {
	if math.IsNaN(v) {
		return dst
	}
	return append(dst, v)
}
