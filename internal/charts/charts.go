// Package charts builds ECharts option documents for the dashboard.
package charts

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"pulse-go/internal/export"
	"pulse-go/internal/models"
	"pulse-go/internal/nudges"
)

// Chart names, also the file stems under the charts directory.
const (
	HRVTrendName     = "hrv_trend"
	ECGStripName     = "ecg_strip"
	WeeklyTrendsName = "weekly_trends"
)

// Names lists every chart in the order they are written.
var Names = []string{HRVTrendName, ECGStripName, WeeklyTrendsName}

// stripSeconds is the length of the ECG strip preview.
const stripSeconds = 10

// HRVTrend plots the per-record HRV statistics over recording time. Alerted
// records are marked on the RMSSD series.
func HRVTrend(rows []models.FeatureRow) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "HRV Over Time",
			Subtitle: "per ECG recording",
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  "ms / %",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	metrics := []struct {
		name  string
		value func(models.VariabilityStats) float64
	}{
		{"RMSSD", func(s models.VariabilityStats) float64 { return s.RMSSD }},
		{"SDNN", func(s models.VariabilityStats) float64 { return s.SDNN }},
		{"pNN50", func(s models.VariabilityStats) float64 { return s.PNN50 }},
	}
	for i, m := range metrics {
		items := make([]opts.LineData, 0, len(rows))
		for _, r := range rows {
			v := m.value(r.Stats)
			if math.IsNaN(v) {
				continue
			}
			items = append(items, opts.LineData{Value: []interface{}{r.RecordedAt, v}})
		}

		seriesOpts := []charts.SeriesOpts{charts.WithLineStyleOpts(opts.LineStyle{Width: 2})}
		if i == 0 {
			for _, r := range rows {
				if r.Alert == models.LabelAlert && !math.IsNaN(r.Stats.RMSSD) {
					seriesOpts = append(seriesOpts, charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
						Name:       string(models.LabelAlert),
						Coordinate: []interface{}{r.RecordedAt, r.Stats.RMSSD},
					}))
				}
			}
		}
		line.AddSeries(m.name, items).SetSeriesOptions(seriesOpts...)
	}
	return line
}

// ECGStrip plots the first seconds of a conditioned recording with its
// detected R-peaks marked.
func ECGStrip(row models.FeatureRow, fs float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Filtered ECG with R-peaks",
			Subtitle: fmt.Sprintf("%s (%s)", row.Source, row.Classification),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "s"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Scale: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	n := min(len(row.FilteredSamples), int(stripSeconds*fs))
	items := make([]opts.LineData, n)
	for i := 0; i < n; i++ {
		items[i] = opts.LineData{Value: []interface{}{float64(i) / fs, row.FilteredSamples[i]}}
	}

	seriesOpts := []charts.SeriesOpts{charts.WithLineStyleOpts(opts.LineStyle{Width: 1})}
	for _, p := range row.Peaks {
		if p >= n {
			break
		}
		seriesOpts = append(seriesOpts, charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
			Name:       "R",
			Coordinate: []interface{}{float64(p) / fs, row.FilteredSamples[p]},
		}))
	}
	line.AddSeries("Filtered ECG", items).SetSeriesOptions(seriesOpts...)
	return line
}

// WeeklyTrends plots the weekly mean z-score of each labelled metric.
func WeeklyTrends(t nudges.Table) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Weekly Health Trends",
			Subtitle: "mean z-score per week",
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "z"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	for _, label := range t.Labels {
		items := make([]opts.LineData, 0, len(t.Weeks))
		for _, w := range t.Weeks {
			z := w.Scores[label]
			if math.IsNaN(z) {
				continue
			}
			items = append(items, opts.LineData{Value: []interface{}{w.Start, z}})
		}
		line.AddSeries(label, items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	}
	return line
}

// Build returns every chart document by name. The ECG strip shows the
// first alerted record, falling back to the first record.
func Build(rows []models.FeatureRow, table nudges.Table, fs float64) map[string]map[string]interface{} {
	docs := map[string]map[string]interface{}{
		HRVTrendName:     HRVTrend(rows).JSON(),
		WeeklyTrendsName: WeeklyTrends(table).JSON(),
	}
	if len(rows) > 0 {
		strip := rows[0]
		for _, r := range rows {
			if r.Alert == models.LabelAlert {
				strip = r
				break
			}
		}
		docs[ECGStripName] = ECGStrip(strip, fs).JSON()
	}
	return docs
}

// Write stores each document as charts/<name>.json under dir.
func Write(dir string, docs map[string]map[string]interface{}) ([]string, error) {
	var paths []string
	for _, name := range Names {
		doc, ok := docs[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, export.ChartsDir, name+".json")
		if err := export.WriteJSON(path, doc); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
