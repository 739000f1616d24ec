package ecg

import (
	"errors"
	"fmt"

	"pulse-go/internal/models"
	"pulse-go/internal/signal"
)

// ErrExcluded is returned by Condition for a record the exclusion policy drops.
var ErrExcluded = errors.New("recording excluded by classification")

// ExclusionPolicy decides which device classifications are dropped before
// filtering. The device itself flags those recordings as unreliable.
type ExclusionPolicy struct {
	labels map[string]struct{}
}

// NewExclusionPolicy builds a policy from classification labels.
func NewExclusionPolicy(labels []string) ExclusionPolicy {
	p := ExclusionPolicy{labels: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		p.labels[l] = struct{}{}
	}
	return p
}

// Excludes reports whether the record must not be conditioned.
func (p ExclusionPolicy) Excludes(rec models.Record) bool {
	_, ok := p.labels[rec.Classification]
	return ok
}

// Conditioner band-passes raw samples with a zero-phase filter.
type Conditioner struct {
	Policy ExclusionPolicy
	filter *signal.SOSFilter
}

// ConditionerOptions configures the band-pass filter.
type ConditionerOptions struct {
	SamplingRate   float64
	LowCut         float64
	HighCut        float64
	Order          int
	ExcludedLabels []string
}

// NewConditioner designs the band-pass filter once for the whole batch.
func NewConditioner(opts ConditionerOptions) (*Conditioner, error) {
	f, err := signal.BandPass(opts.Order, opts.LowCut, opts.HighCut, opts.SamplingRate)
	if err != nil {
		return nil, fmt.Errorf("designing band-pass filter: %w", err)
	}
	return &Conditioner{Policy: NewExclusionPolicy(opts.ExcludedLabels), filter: f}, nil
}

// Condition filters one record. Excluded records yield ErrExcluded and are
// never filtered.
func (c *Conditioner) Condition(rec models.Record) (models.ConditionedRecord, error) {
	if c.Policy.Excludes(rec) {
		return models.ConditionedRecord{}, fmt.Errorf("%s: %w", rec.Classification, ErrExcluded)
	}
	filtered, err := c.filter.FiltFilt(rec.RawSamples)
	if err != nil {
		return models.ConditionedRecord{}, err
	}
	return models.ConditionedRecord{Record: rec, FilteredSamples: filtered}, nil
}
