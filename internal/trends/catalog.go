// Package trends converts per-metric health exports into daily series with
// rolling statistics and z-scores.
package trends

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pulse-go/internal/utils"
)

// Aggregation selects how samples of one day are combined.
type Aggregation string

const (
	AggNone  Aggregation = "none" // keep every sample
	AggSum   Aggregation = "sum"
	AggCount Aggregation = "count"
	AggMean  Aggregation = "mean"
	AggMax   Aggregation = "max"
)

func (a Aggregation) valid() bool {
	switch a {
	case AggNone, AggSum, AggCount, AggMean, AggMax:
		return true
	}
	return false
}

// Advice is the nudge text shown when a metric runs high or low for a week.
type Advice struct {
	High string `yaml:"high"`
	Low  string `yaml:"low"`
}

// MetricSpec describes one numeric health metric export.
type MetricSpec struct {
	Key       string      `yaml:"key"`
	Output    string      `yaml:"output"`
	Aggregate Aggregation `yaml:"aggregate"`
	// Label names the metric in the weekly nudge table; empty keeps it out.
	Label  string `yaml:"label,omitempty"`
	Advice Advice `yaml:"advice,omitempty"`
}

// SleepSpec describes the categorical sleep analysis export.
type SleepSpec struct {
	Key    string   `yaml:"key"`
	Output string   `yaml:"output"`
	Label  string   `yaml:"label,omitempty"`
	Stages []string `yaml:"stages"`
	Advice Advice   `yaml:"advice,omitempty"`
}

// DefaultTimestampColumn is the time column of a table export when the
// catalog names none.
const DefaultTimestampColumn = "timestamp"

// TableSpec describes a wide export: one timestamp column and several
// numeric columns, each exported as its own daily series.
type TableSpec struct {
	Key       string       `yaml:"key"`
	Timestamp string       `yaml:"timestamp,omitempty"`
	Columns   []ColumnSpec `yaml:"columns"`
}

// ColumnSpec is one numeric column of a table export.
type ColumnSpec struct {
	Column    string      `yaml:"column"`
	Output    string      `yaml:"output"`
	Aggregate Aggregation `yaml:"aggregate"`
	Label     string      `yaml:"label,omitempty"`
	Advice    Advice      `yaml:"advice,omitempty"`
}

// TimestampColumn returns the configured time column or the default.
func (t TableSpec) TimestampColumn() string {
	if t.Timestamp == "" {
		return DefaultTimestampColumn
	}
	return t.Timestamp
}

// Catalog lists every metric the trend exporters handle.
type Catalog struct {
	Metrics []MetricSpec `yaml:"metrics"`
	Tables  []TableSpec  `yaml:"tables,omitempty"`
	Sleep   *SleepSpec   `yaml:"sleep,omitempty"`
}

// LoadCatalog reads and validates the metric catalog YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metric catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metric catalog YAML: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks keys, output names and aggregations.
func (c *Catalog) Validate() error {
	outputs := make(map[string]string)
	claim := func(key, output string) error {
		if !utils.IsValidMetricKey(key) {
			return fmt.Errorf("catalog: invalid metric key %q", key)
		}
		if !utils.IsValidOutputName(output) {
			return fmt.Errorf("catalog: %s: invalid output name %q", key, output)
		}
		if other, ok := outputs[output]; ok {
			return fmt.Errorf("catalog: %s and %s both write %s", other, key, output)
		}
		outputs[output] = key
		return nil
	}

	for _, m := range c.Metrics {
		if err := claim(m.Key, m.Output); err != nil {
			return err
		}
		if !m.Aggregate.valid() {
			return fmt.Errorf("catalog: %s: unknown aggregate %q", m.Key, m.Aggregate)
		}
	}
	for _, t := range c.Tables {
		if len(t.Columns) == 0 {
			return fmt.Errorf("catalog: %s: no columns listed", t.Key)
		}
		seen := make(map[string]bool, len(t.Columns))
		for _, col := range t.Columns {
			switch {
			case col.Column == "" || col.Column == t.TimestampColumn():
				return fmt.Errorf("catalog: %s: invalid column %q", t.Key, col.Column)
			case seen[col.Column]:
				return fmt.Errorf("catalog: %s: column %q listed twice", t.Key, col.Column)
			case !col.Aggregate.valid():
				return fmt.Errorf("catalog: %s.%s: unknown aggregate %q", t.Key, col.Column, col.Aggregate)
			}
			seen[col.Column] = true
			if err := claim(t.Key, col.Output); err != nil {
				return err
			}
		}
	}
	if c.Sleep != nil {
		if err := claim(c.Sleep.Key, c.Sleep.Output); err != nil {
			return err
		}
		if len(c.Sleep.Stages) == 0 {
			return fmt.Errorf("catalog: %s: no asleep stages listed", c.Sleep.Key)
		}
	}
	return nil
}
