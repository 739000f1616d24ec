package utils

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"2024-03-01 10:00:00 -0600": want,
		"2024-03-01T10:00:00-06:00": want,
		"2024-03-01 16:00:00":       want,
		"2024-03-01T16:00:00":       want,
		"2024-03-01 16:00":          want,
		" 1709308800000000000 ":     want,
		"2024-03-01":                time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, exp := range cases {
		got, err := ParseTimestamp(in, chicago)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", in, err)
			continue
		}
		if !got.Equal(exp) || got.Location() != chicago {
			t.Errorf("ParseTimestamp(%q)=%v, want %v in %v", in, got, exp, chicago)
		}
	}

	for _, in := range []string{"", "yesterday", "03/01/2024"} {
		if _, err := ParseTimestamp(in, chicago); err == nil {
			t.Errorf("ParseTimestamp(%q) succeeded", in)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	t.Parallel()
	cases := map[string]float64{
		"0.25":    0.25,
		"0,25":    0.25,
		` "-1.5"`: -1.5,
		"12":      12,
	}
	for in, want := range cases {
		got, err := ParseDecimal(in)
		if err != nil || got != want {
			t.Errorf("ParseDecimal(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseDecimal("1,2,3"); err == nil {
		t.Error("ParseDecimal accepted two separators")
	}
}

func TestValidators(t *testing.T) {
	t.Parallel()
	for key, want := range map[string]bool{
		"RestingHeartRate": true,
		"VO2_max":          true,
		"9lives":           false,
		"../etc":           false,
		"":                 false,
	} {
		if got := IsValidMetricKey(key); got != want {
			t.Errorf("IsValidMetricKey(%q)=%v", key, got)
		}
	}
	for name, want := range map[string]bool{
		"hrv.csv":     true,
		"hrv.json":    false,
		"sub/hrv.csv": false,
		"../hrv.csv":  false,
		"":            false,
	} {
		if got := IsValidOutputName(name); got != want {
			t.Errorf("IsValidOutputName(%q)=%v", name, got)
		}
	}
}

func TestWeeks(t *testing.T) {
	t.Parallel()
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	if got, ok := ParseWeek("2024-03-04"); !ok || !got.Equal(monday) {
		t.Errorf("ParseWeek(monday)=%v,%v", got, ok)
	}
	for _, s := range []string{"2024-03-05", "2024-3-4", "week 10"} {
		if _, ok := ParseWeek(s); ok {
			t.Errorf("ParseWeek(%q) accepted", s)
		}
	}

	chicago, _ := time.LoadLocation("America/Chicago")
	for _, in := range []time.Time{
		monday,
		time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 22, 0, 0, 0, chicago),
	} {
		if got := WeekStart(in); !got.Equal(monday) {
			t.Errorf("WeekStart(%v)=%v", in, got)
		}
	}
}
