package trends

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"pulse-go/internal/utils"
)

// Sample is one row of a health metric export.
type Sample struct {
	Start time.Time
	End   time.Time
	Value string
}

// exportFile is an open CSV export with its header indexed by column name.
type exportFile struct {
	path string
	f    *os.File
	r    *csv.Reader
	cols map[string]int
}

func openExport(path string, required ...string) (*exportFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			f.Close()
			return nil, fmt.Errorf("%s: missing column %q", path, c)
		}
	}
	return &exportFile{path: path, f: f, r: r, cols: cols}, nil
}

// each calls fn for every data row until EOF.
func (e *exportFile) each(fn func(rec []string)) error {
	defer e.f.Close()
	for {
		rec, err := e.r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", e.path, err)
		}
		fn(rec)
	}
}

var requiredColumns = []string{"startDate", "endDate", "value"}

// ReadSamples parses a metric export with startDate, endDate and value
// columns. Rows with unparseable timestamps are dropped and counted.
func ReadSamples(path string, loc *time.Location) ([]Sample, int, error) {
	ef, err := openExport(path, requiredColumns...)
	if err != nil {
		return nil, 0, err
	}
	iStart, iEnd, iValue := ef.cols["startDate"], ef.cols["endDate"], ef.cols["value"]
	width := max(iStart, iEnd, iValue) + 1

	var samples []Sample
	dropped := 0
	err = ef.each(func(rec []string) {
		if len(rec) < width {
			dropped++
			return
		}
		start, errStart := utils.ParseTimestamp(rec[iStart], loc)
		end, errEnd := utils.ParseTimestamp(rec[iEnd], loc)
		if errStart != nil || errEnd != nil {
			dropped++
			return
		}
		samples = append(samples, Sample{Start: start, End: end, Value: strings.TrimSpace(rec[iValue])})
	})
	if err != nil {
		return nil, 0, err
	}
	return samples, dropped, nil
}

// ReadColumns parses a wide export with a timestamp column and numeric value
// columns, returning the points of each column. Rows with an unparseable
// timestamp are dropped and counted; a missing or non-numeric cell only
// leaves that column without a point.
func ReadColumns(path, timestamp string, columns []string, loc *time.Location) (map[string][]Point, int, error) {
	ef, err := openExport(path, append([]string{timestamp}, columns...)...)
	if err != nil {
		return nil, 0, err
	}
	iTime := ef.cols[timestamp]

	out := make(map[string][]Point, len(columns))
	dropped := 0
	err = ef.each(func(rec []string) {
		if len(rec) <= iTime {
			dropped++
			return
		}
		ts, err := utils.ParseTimestamp(rec[iTime], loc)
		if err != nil {
			dropped++
			return
		}
		for _, c := range columns {
			i := ef.cols[c]
			if i >= len(rec) {
				continue
			}
			if v, ok := parseValue(rec[i]); ok {
				out[c] = append(out[c], Point{Time: ts, Value: v})
			}
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return out, dropped, nil
}

// parseValue reads a numeric cell. Empty, non-numeric and non-finite cells
// are missing values.
func parseValue(s string) (float64, bool) {
	v, err := utils.ParseDecimal(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
