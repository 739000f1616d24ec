package utils

import (
	"path/filepath"
	"regexp"
	"time"
)

var metricKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// IsValidMetricKey checks that a catalog key is safe to use as a file name.
func IsValidMetricKey(key string) bool {
	return metricKeyPattern.MatchString(key)
}

// IsValidOutputName checks that a configured output file stays inside the
// output directory.
func IsValidOutputName(name string) bool {
	return name != "" && filepath.Base(name) == name && filepath.Ext(name) == ".csv"
}

// ParseWeek parses a week query value (YYYY-MM-DD) and checks it is a Monday.
func ParseWeek(s string) (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil || t.Weekday() != time.Monday {
		return time.Time{}, false
	}
	return t, true
}

// WeekStart returns the Monday starting the week of t, at midnight UTC.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
