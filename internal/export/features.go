package export

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pulse-go/internal/models"
)

// RecordedDateLayout is how recording dates are written.
const RecordedDateLayout = "2006-01-02 15:04:05-07:00"

var featureColumns = []string{
	"source", "patient", "recorded_date", "classification",
	"sdnn", "rmssd", "pnn50", "lf_power", "hf_power", "hrv_alert",
}

// enrichmentColumns follow the base statistics in the features table.
var enrichmentColumns = []struct {
	name  string
	value func(*models.TimeDomainHRV) float64
}{
	{"hrv_peak_count", func(h *models.TimeDomainHRV) float64 { return float64(h.PeakCount) }},
	{"hrv_mean_nn", func(h *models.TimeDomainHRV) float64 { return h.MeanNN }},
	{"hrv_median_nn", func(h *models.TimeDomainHRV) float64 { return h.MedianNN }},
	{"hrv_sdnn", func(h *models.TimeDomainHRV) float64 { return h.SDNN }},
	{"hrv_sdsd", func(h *models.TimeDomainHRV) float64 { return h.SDSD }},
	{"hrv_rmssd", func(h *models.TimeDomainHRV) float64 { return h.RMSSD }},
	{"hrv_cvnn", func(h *models.TimeDomainHRV) float64 { return h.CVNN }},
	{"hrv_cvsd", func(h *models.TimeDomainHRV) float64 { return h.CVSD }},
	{"hrv_pnn20", func(h *models.TimeDomainHRV) float64 { return h.PNN20 }},
	{"hrv_pnn50", func(h *models.TimeDomainHRV) float64 { return h.PNN50 }},
	{"hrv_min_nn", func(h *models.TimeDomainHRV) float64 { return h.MinNN }},
	{"hrv_max_nn", func(h *models.TimeDomainHRV) float64 { return h.MaxNN }},
	{"hrv_iqr_nn", func(h *models.TimeDomainHRV) float64 { return h.IQRNN }},
	{"hrv_mad_nn", func(h *models.TimeDomainHRV) float64 { return h.MadNN }},
	{"hrv_mean_hr", func(h *models.TimeDomainHRV) float64 { return h.MeanHR }},
}

var arrayColumns = []string{"r_peaks", "rr_intervals", "rr_intervals_filtered", "filtered_ecg"}

// FeatureHeader returns the column names of the features table.
func FeatureHeader() []string {
	header := append([]string(nil), featureColumns...)
	for _, c := range enrichmentColumns {
		header = append(header, c.name)
	}
	return append(header, arrayColumns...)
}

// FeatureRecord renders one row in FeatureHeader order.
func FeatureRecord(r models.FeatureRow) []string {
	s := r.Stats
	rec := []string{
		r.Source,
		r.Patient,
		r.RecordedAt.Format(RecordedDateLayout),
		r.Classification,
		FormatFloat(s.SDNN),
		FormatFloat(s.RMSSD),
		FormatFloat(s.PNN50),
		FormatFloat(s.LFPower),
		FormatFloat(s.HFPower),
		string(r.Alert),
	}
	for _, c := range enrichmentColumns {
		if r.Enrichment == nil {
			rec = append(rec, "")
			continue
		}
		rec = append(rec, FormatFloat(c.value(r.Enrichment)))
	}
	return append(rec,
		intArray(r.Peaks),
		floatArray(r.Intervals),
		floatArray(r.FilteredIntervals),
		floatArray(r.FilteredSamples),
	)
}

// WriteFeatures writes the features table into dir.
func WriteFeatures(dir string, rows []models.FeatureRow) (string, error) {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = FeatureRecord(r)
	}
	path := filepath.Join(dir, FeaturesFile)
	return path, WriteCSV(path, FeatureHeader(), records)
}

func intArray(v []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(x))
	}
	b.WriteByte(']')
	return b.String()
}

func floatArray(v []float64) string {
	if v == nil {
		v = []float64{}
	}
	// Arrays never hold NaN, so Marshal cannot fail.
	data, _ := json.Marshal(v)
	return string(data)
}

// FeatureView is the JSON shape of a feature row. Undefined statistics are
// null.
type FeatureView struct {
	Source         string      `json:"source"`
	Patient        string      `json:"patient"`
	RecordedDate   time.Time   `json:"recordedDate"`
	Classification string      `json:"classification"`
	SDNN           *float64    `json:"sdnn"`
	RMSSD          *float64    `json:"rmssd"`
	PNN50          *float64    `json:"pnn50"`
	LFPower        *float64    `json:"lfPower"`
	HFPower        *float64    `json:"hfPower"`
	HRVAlert       string      `json:"hrvAlert"`
	Enrichment     EnrichView  `json:"enrichment,omitempty"`
	Arrays         *ArraysView `json:"arrays,omitempty"`
}

// EnrichView maps enrichment column names to nullable values.
type EnrichView map[string]*float64

// ArraysView carries the intermediate arrays of one row.
type ArraysView struct {
	RPeaks              []int     `json:"rPeaks"`
	RRIntervals         []float64 `json:"rrIntervals"`
	RRIntervalsFiltered []float64 `json:"rrIntervalsFiltered"`
	FilteredECG         []float64 `json:"filteredEcg"`
}

// NewFeatureView converts a row for the API. Arrays are included on request
// since the filtered signal dominates the payload.
func NewFeatureView(r models.FeatureRow, withArrays bool) FeatureView {
	v := FeatureView{
		Source:         r.Source,
		Patient:        r.Patient,
		RecordedDate:   r.RecordedAt,
		Classification: r.Classification,
		SDNN:           Nullable(r.Stats.SDNN),
		RMSSD:          Nullable(r.Stats.RMSSD),
		PNN50:          Nullable(r.Stats.PNN50),
		LFPower:        Nullable(r.Stats.LFPower),
		HFPower:        Nullable(r.Stats.HFPower),
		HRVAlert:       string(r.Alert),
	}
	if r.Enrichment != nil {
		v.Enrichment = make(EnrichView, len(enrichmentColumns))
		for _, c := range enrichmentColumns {
			v.Enrichment[c.name] = Nullable(c.value(r.Enrichment))
		}
	}
	if withArrays {
		v.Arrays = &ArraysView{
			RPeaks:              r.Peaks,
			RRIntervals:         r.Intervals,
			RRIntervalsFiltered: r.FilteredIntervals,
			FilteredECG:         r.FilteredSamples,
		}
	}
	return v
}
