package trends

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"pulse-go/internal/export"
)

// Series is one exported trend.
type Series struct {
	Key    string
	Label  string
	Output string
	Advice Advice
	// Daily is false for per-sample series.
	Daily  bool
	Points []TrendPoint
}

// Exporter builds and writes every series of a catalog.
type Exporter struct {
	Catalog    *Catalog
	Window     int
	MinPeriods int
	Location   *time.Location
	log        *zap.Logger
}

// NewExporter returns an Exporter using the given rolling window.
func NewExporter(catalog *Catalog, window, minPeriods int, timezone string, log *zap.Logger) (*Exporter, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	return &Exporter{Catalog: catalog, Window: window, MinPeriods: minPeriods, Location: loc, log: log}, nil
}

// Build reads every catalog metric from dir. A missing export is logged and
// skipped so one absent metric never blocks the others.
func (e *Exporter) Build(dir string) ([]Series, error) {
	var out []Series
	for _, m := range e.Catalog.Metrics {
		samples, err := e.read(dir, m.Key)
		if errors.Is(err, fs.ErrNotExist) {
			e.log.Warn("Metric export not found, skipping", zap.String("metric", m.Key))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Series{
			Key:    m.Key,
			Label:  m.Label,
			Output: m.Output,
			Advice: m.Advice,
			Daily:  m.Aggregate != AggNone,
			Points: Rolling(Daily(numericPoints(samples), m.Aggregate), e.Window, e.MinPeriods),
		})
	}

	for _, t := range e.Catalog.Tables {
		series, err := e.buildTable(dir, t)
		if errors.Is(err, fs.ErrNotExist) {
			e.log.Warn("Table export not found, skipping", zap.String("metric", t.Key))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, series...)
	}

	if s := e.Catalog.Sleep; s != nil {
		samples, err := e.read(dir, s.Key)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.log.Warn("Sleep export not found, skipping", zap.String("metric", s.Key))
		case err != nil:
			return nil, err
		default:
			out = append(out, Series{
				Key:    s.Key,
				Label:  s.Label,
				Output: s.Output,
				Advice: s.Advice,
				Daily:  true,
				Points: Rolling(NightlySleep(samples, s.Stages), e.Window, e.MinPeriods),
			})
		}
	}
	return out, nil
}

// buildTable turns each column of a wide export into its own daily series.
func (e *Exporter) buildTable(dir string, t TableSpec) ([]Series, error) {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Column
	}
	points, dropped, err := ReadColumns(filepath.Join(dir, t.Key+".csv"), t.TimestampColumn(), names, e.Location)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		e.log.Warn("Dropped unparseable metric rows", zap.String("metric", t.Key), zap.Int("rows", dropped))
	}

	out := make([]Series, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, Series{
			Key:    t.Key + "." + c.Column,
			Label:  c.Label,
			Output: c.Output,
			Advice: c.Advice,
			Daily:  c.Aggregate != AggNone,
			Points: Rolling(Daily(points[c.Column], c.Aggregate), e.Window, e.MinPeriods),
		})
	}
	return out, nil
}

func (e *Exporter) read(dir, key string) ([]Sample, error) {
	samples, dropped, err := ReadSamples(filepath.Join(dir, key+".csv"), e.Location)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		e.log.Warn("Dropped unparseable metric rows", zap.String("metric", key), zap.Int("rows", dropped))
	}
	return samples, nil
}

// numericPoints keeps samples with a finite numeric value, stamped at their
// end. A NaN sample would otherwise turn its whole day and the following
// rolling windows undefined.
func numericPoints(samples []Sample) []Point {
	points := make([]Point, 0, len(samples))
	for _, s := range samples {
		v, ok := parseValue(s.Value)
		if !ok {
			continue
		}
		points = append(points, Point{Time: s.End, Value: v})
	}
	return points
}

// NightlySleep sums asleep minutes per end date. In-bed and awake intervals
// are ignored.
func NightlySleep(samples []Sample, stages []string) []Point {
	points := make([]Point, 0, len(samples))
	for _, s := range samples {
		if !slices.Contains(stages, s.Value) {
			continue
		}
		points = append(points, Point{Time: s.End, Value: s.End.Sub(s.Start).Minutes()})
	}
	return Daily(points, AggSum)
}

var trendHeader = []string{"timestamp", "value", "rolling_mean", "rolling_std", "zscore"}

// Write stores each series as <output> in dir and returns the paths written.
func Write(dir string, series []Series) ([]string, error) {
	paths := make([]string, 0, len(series))
	for _, s := range series {
		layout := time.DateTime
		if s.Daily {
			layout = time.DateOnly
		}
		records := make([][]string, len(s.Points))
		for i, p := range s.Points {
			records[i] = []string{
				p.Time.Format(layout),
				export.FormatFloat(p.Value),
				export.FormatFloat(p.RollingMean),
				export.FormatFloat(p.RollingStd),
				export.FormatFloat(p.ZScore),
			}
		}
		path := filepath.Join(dir, s.Output)
		if err := export.WriteCSV(path, trendHeader, records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
