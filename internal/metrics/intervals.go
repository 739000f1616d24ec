// Package metrics derives heart-rate variability statistics from beat
// positions.
package metrics

import (
	"pulse-go/internal/models"
)

// Bounds is the physiologically plausible RR interval range in ms.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether rr lies inside the closed range.
func (b Bounds) Contains(rr float64) bool {
	return rr >= b.Min && rr <= b.Max
}

// RRIntervals converts ascending peak indices into successive intervals in
// milliseconds. Fewer than two peaks yield an empty slice.
func RRIntervals(peaks []int, fs float64) []float64 {
	if len(peaks) < 2 {
		return []float64{}
	}
	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = float64(peaks[i]-peaks[i-1]) / fs * 1000
	}
	return rr
}

// FilterOutliers keeps the intervals inside b, preserving order.
func FilterOutliers(rr []float64, b Bounds) []float64 {
	out := make([]float64, 0, len(rr))
	for _, v := range rr {
		if b.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Analysis is the interval-level result for one record.
type Analysis struct {
	Intervals []float64
	Filtered  []float64
	Stats     models.VariabilityStats
}

// Analyze runs the interval chain on detected peaks: raw intervals, range
// filtering, then every statistic over the filtered intervals.
func Analyze(peaks []int, fs float64, b Bounds) Analysis {
	rr := RRIntervals(peaks, fs)
	filtered := FilterOutliers(rr, b)
	return Analysis{
		Intervals: rr,
		Filtered:  filtered,
		Stats:     Compute(filtered),
	}
}

// Compute returns the variability statistics of already-filtered intervals.
func Compute(rr []float64) models.VariabilityStats {
	lf, hf := FrequencyPower(rr)
	return models.VariabilityStats{
		SDNN:    SDNN(rr),
		RMSSD:   RMSSD(rr),
		PNN50:   PNN50(rr),
		LFPower: lf,
		HFPower: hf,
	}
}

func diffs(rr []float64) []float64 {
	if len(rr) < 2 {
		return nil
	}
	d := make([]float64, len(rr)-1)
	for i := 1; i < len(rr); i++ {
		d[i-1] = rr[i] - rr[i-1]
	}
	return d
}
