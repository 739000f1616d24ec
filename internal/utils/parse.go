package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // display timezone must resolve on hosts without zoneinfo
)

// timestampLayouts are tried in order; the first two carry zone information.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an export timestamp into loc. Values without zone
// information are taken as UTC. A bare integer is read as epoch nanoseconds.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(0, ns).In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseDecimal accepts both decimal dot and decimal comma, with optional
// surrounding quotes.
func ParseDecimal(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}
