// Package nudges rolls trend z-scores up into weeks and attaches a short
// rule-based summary and nudge to each week.
package nudges

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pulse-go/internal/export"
	"pulse-go/internal/trends"
	"pulse-go/internal/utils"
)

// Threshold is the |z| a weekly mean must reach to be called out.
const Threshold = 1.0

const (
	steadySummary = "All tracked metrics within your usual range."
	steadyNudge   = "Keep up your current routine."
)

// Week is one row of the nudge table. Scores holds the mean z-score per
// metric label; NaN when the metric had no defined z-score that week.
type Week struct {
	Start   time.Time          `json:"week"`
	Scores  map[string]float64 `json:"-"`
	Summary string             `json:"trendSummary"`
	Nudge   string             `json:"nudge"`
}

// Table is the weekly nudge table.
type Table struct {
	Labels []string
	Weeks  []Week
}

// Build groups every labelled series by ISO week (Monday start).
func Build(series []trends.Series) Table {
	var labelled []trends.Series
	for _, s := range series {
		if s.Label != "" {
			labelled = append(labelled, s)
		}
	}

	type acc struct{ sum, n float64 }
	weeks := make(map[time.Time]map[string]*acc)
	for _, s := range labelled {
		for _, p := range s.Points {
			w := utils.WeekStart(p.Time)
			if weeks[w] == nil {
				weeks[w] = make(map[string]*acc)
			}
			a := weeks[w][s.Label]
			if a == nil {
				a = &acc{}
				weeks[w][s.Label] = a
			}
			if !math.IsNaN(p.ZScore) {
				a.sum += p.ZScore
				a.n++
			}
		}
	}

	t := Table{Labels: make([]string, len(labelled))}
	for i, s := range labelled {
		t.Labels[i] = s.Label
	}
	for start, byLabel := range weeks {
		w := Week{Start: start, Scores: make(map[string]float64, len(labelled))}
		for _, s := range labelled {
			w.Scores[s.Label] = math.NaN()
			if a := byLabel[s.Label]; a != nil && a.n > 0 {
				w.Scores[s.Label] = a.sum / a.n
			}
		}
		w.Summary, w.Nudge = describe(w.Scores, labelled)
		t.Weeks = append(t.Weeks, w)
	}
	sort.Slice(t.Weeks, func(i, j int) bool { return t.Weeks[i].Start.Before(t.Weeks[j].Start) })
	return t
}

// describe turns the out-of-range metrics of a week into text, in catalog
// order.
func describe(scores map[string]float64, series []trends.Series) (string, string) {
	var summary, nudge []string
	for _, s := range series {
		z := scores[s.Label]
		if math.IsNaN(z) || math.Abs(z) < Threshold {
			continue
		}
		direction, advice := "above", s.Advice.High
		if z < 0 {
			direction, advice = "below", s.Advice.Low
		}
		summary = append(summary, fmt.Sprintf("%s %s usual (z=%+.1f)", s.Label, direction, z))
		if advice != "" {
			nudge = append(nudge, advice)
		}
	}
	if len(summary) == 0 {
		return steadySummary, steadyNudge
	}
	if len(nudge) == 0 {
		nudge = append(nudge, steadyNudge)
	}
	return strings.Join(summary, "; "), strings.Join(nudge, " ")
}

// Lookup returns the week starting at start.
func (t Table) Lookup(start time.Time) (Week, bool) {
	for _, w := range t.Weeks {
		if w.Start.Equal(start) {
			return w, true
		}
	}
	return Week{}, false
}

// Write stores the table as weekly_nudges.csv in dir.
func Write(dir string, t Table) (string, error) {
	header := append([]string{"week"}, t.Labels...)
	header = append(header, "TrendSummary", "Nudge")

	records := make([][]string, len(t.Weeks))
	for i, w := range t.Weeks {
		rec := []string{w.Start.Format(time.DateOnly)}
		for _, l := range t.Labels {
			rec = append(rec, export.FormatFloat(w.Scores[l]))
		}
		records[i] = append(rec, w.Summary, w.Nudge)
	}
	path := filepath.Join(dir, export.NudgesFile)
	return path, export.WriteCSV(path, header, records)
}
