// Package repository keeps the artifacts of the latest run for the API.
package repository

import (
	"sync"
	"time"

	"pulse-go/internal/models"
	"pulse-go/internal/nudges"
)

// Snapshot is everything one full run produced.
type Snapshot struct {
	Diagnostics models.Diagnostics
	Rows        []models.FeatureRow
	Nudges      nudges.Table
	Charts      map[string]map[string]interface{}
}

// RunStore holds the latest snapshot. Readers never see a partial run.
type RunStore struct {
	mu     sync.RWMutex
	latest *Snapshot
}

// NewRunStore returns an empty store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// Put replaces the latest snapshot.
func (s *RunStore) Put(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap
}

// Latest returns the latest snapshot, or false before the first run.
func (s *RunStore) Latest() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Feature returns the row of one source file.
func (s *RunStore) Feature(source string) (models.FeatureRow, bool) {
	snap, ok := s.Latest()
	if !ok {
		return models.FeatureRow{}, false
	}
	for _, r := range snap.Rows {
		if r.Source == source {
			return r, true
		}
	}
	return models.FeatureRow{}, false
}

// Chart returns a chart document by name.
func (s *RunStore) Chart(name string) (map[string]interface{}, bool) {
	snap, ok := s.Latest()
	if !ok {
		return nil, false
	}
	doc, ok := snap.Charts[name]
	return doc, ok
}

// Week returns the nudge row of the week starting at start.
func (s *RunStore) Week(start time.Time) (nudges.Week, bool) {
	snap, ok := s.Latest()
	if !ok {
		return nudges.Week{}, false
	}
	return snap.Nudges.Lookup(start)
}
