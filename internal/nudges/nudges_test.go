package nudges

import (
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"pulse-go/internal/trends"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func testSeries() []trends.Series {
	nan := math.NaN()
	return []trends.Series{
		{
			Label:  "HRV",
			Advice: trends.Advice{High: "Keep it up.", Low: "Rest more."},
			Points: []trends.TrendPoint{
				{Time: day(4), ZScore: nan},
				{Time: day(5), ZScore: -1.5},
				{Time: day(6), ZScore: -1.1},
				{Time: day(11), ZScore: 0.2},
			},
		},
		{
			Label:  "Sleep",
			Advice: trends.Advice{High: "Long nights.", Low: "Go to bed earlier."},
			Points: []trends.TrendPoint{
				{Time: day(3), ZScore: 1.2},
				{Time: day(12), ZScore: 0.4},
			},
		},
		{Key: "VO2Max", Points: []trends.TrendPoint{{Time: day(4), ZScore: 5}}},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	table := Build(testSeries())

	if strings.Join(table.Labels, ",") != "HRV,Sleep" {
		t.Fatalf("labels=%v", table.Labels)
	}
	// March 3 2024 is a Sunday, so it belongs to the week of Feb 26.
	wantWeeks := []time.Time{time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), day(4), day(11)}
	if len(table.Weeks) != len(wantWeeks) {
		t.Fatalf("weeks=%d want %d", len(table.Weeks), len(wantWeeks))
	}
	for i, w := range table.Weeks {
		if !w.Start.Equal(wantWeeks[i]) {
			t.Fatalf("week %d starts %v want %v", i, w.Start, wantWeeks[i])
		}
	}

	w := table.Weeks[1]
	if math.Abs(w.Scores["HRV"]+1.3) > 1e-9 || !math.IsNaN(w.Scores["Sleep"]) {
		t.Fatalf("scores=%v", w.Scores)
	}
	if w.Summary != "HRV below usual (z=-1.3)" || w.Nudge != "Rest more." {
		t.Fatalf("summary=%q nudge=%q", w.Summary, w.Nudge)
	}
	if table.Weeks[0].Summary != "Sleep above usual (z=+1.2)" {
		t.Fatalf("first week summary=%q", table.Weeks[0].Summary)
	}
	if table.Weeks[2].Summary != steadySummary || table.Weeks[2].Nudge != steadyNudge {
		t.Fatalf("steady week=%+v", table.Weeks[2])
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	table := Build(testSeries())
	if _, ok := table.Lookup(day(4)); !ok {
		t.Fatal("week of March 4 not found")
	}
	if _, ok := table.Lookup(day(18)); ok {
		t.Fatal("unexpected week of March 18")
	}
}

func TestWrite(t *testing.T) {
	t.Parallel()
	path, err := Write(t.TempDir(), Build(testSeries()))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "week,HRV,Sleep,TrendSummary,Nudge" {
		t.Fatalf("header=%q", lines[0])
	}
	if lines[2] != "2024-03-04,-1.3,,HRV below usual (z=-1.3),Rest more." {
		t.Fatalf("row=%q", lines[2])
	}
}
