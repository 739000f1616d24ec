package models

import (
	"math"
	"time"
)

// AnomalyLabel is the per-record outcome of the HRV control-limit check.
type AnomalyLabel string

const (
	LabelStable AnomalyLabel = "Stable"
	LabelAlert  AnomalyLabel = "HRV Alert"
)

// Record is one parsed ECG export file.
type Record struct {
	Source         string    `json:"source"`
	PatientID      string    `json:"patient"`
	RecordedAt     time.Time `json:"recordedDate"`
	Classification string    `json:"classification"`
	RawSamples     []float64 `json:"-"`
}

// ConditionedRecord carries the band-passed signal next to the raw one.
// len(FilteredSamples) == len(RawSamples).
type ConditionedRecord struct {
	Record
	FilteredSamples []float64 `json:"-"`
}

// VariabilityStats holds the HRV statistics of one record. NaN marks a
// statistic that could not be computed from the available intervals.
type VariabilityStats struct {
	SDNN    float64
	RMSSD   float64
	PNN50   float64
	LFPower float64
	HFPower float64
}

// UndefinedStats returns a VariabilityStats with every field undefined.
func UndefinedStats() VariabilityStats {
	nan := math.NaN()
	return VariabilityStats{SDNN: nan, RMSSD: nan, PNN50: nan, LFPower: nan, HFPower: nan}
}

// TimeDomainHRV is the optional enrichment computed from a normalized signal
// with a refractory-aware peak detector.
type TimeDomainHRV struct {
	PeakCount int
	MeanNN    float64
	MedianNN  float64
	SDNN      float64
	SDSD      float64
	RMSSD     float64
	CVNN      float64
	CVSD      float64
	PNN20     float64
	PNN50     float64
	MinNN     float64
	MaxNN     float64
	IQRNN     float64
	MadNN     float64
	MeanHR    float64
}

// Thresholds are the per-batch control limits used to label records.
type Thresholds struct {
	RMSSD        float64 `json:"rmssd"`
	PNN50        float64 `json:"pnn50"`
	SDNN         float64 `json:"sdnn"`
	Source       string  `json:"source"`
	BaselineSize int     `json:"baselineSize"`
}

// FeatureRow is one line of the enriched ECG feature table.
type FeatureRow struct {
	Source            string
	Patient           string
	RecordedAt        time.Time
	Classification    string
	Stats             VariabilityStats
	Alert             AnomalyLabel
	Enrichment        *TimeDomainHRV
	FilteredSamples   []float64
	Peaks             []int
	Intervals         []float64
	FilteredIntervals []float64
}

// Pipeline stages a record can fail in.
const (
	StageLoad      = "load"
	StageCondition = "condition"
	StageAnalyze   = "analyze"
	StageEnrich    = "enrich"
)

// Failure explains why a record was dropped from the batch.
type Failure struct {
	Source string `json:"source"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Diagnostics summarizes a run for operators. RunID and the timestamps are
// the only fields that differ between runs over the same input.
type Diagnostics struct {
	RunID      string     `json:"runId"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Rows       int        `json:"rows"`
	Alerts     int        `json:"alerts"`
	Thresholds Thresholds `json:"thresholds"`
	Failures   []Failure  `json:"failures"`
	Skipped    []string   `json:"skipped"`
}
