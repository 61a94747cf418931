// Package store holds external condition series (weather, tariff rates) in
// memory, indexed by series ID. Series are fully materialized and sorted
// before a run starts; the timestep loop only performs lookups.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
)

// Store holds condition series samples, keyed by series ID and sorted by time.
type Store struct {
	mu     sync.RWMutex
	series map[model.SeriesID][]model.Sample
}

func New() *Store {
	return &Store{
		series: make(map[model.SeriesID][]model.Sample),
	}
}

// Add appends samples to a series, then re-sorts it by timestamp.
func (s *Store) Add(id model.SeriesID, samples []model.Sample) {
	if len(samples) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.series[id] = append(s.series[id], samples...)
	sort.Slice(s.series[id], func(i, j int) bool {
		return s.series[id][i].Time.Before(s.series[id][j].Time)
	})
}

// IDs returns all series IDs currently held, sorted.
func (s *Store) IDs() []model.SeriesID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]model.SeriesID, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of samples held for a series.
func (s *Store) Len(id model.SeriesID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[id])
}

// Range returns the time range covered by a series.
func (s *Store) Range(id model.SeriesID) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.series[id]
	if len(samples) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: samples[0].Time,
		End:   samples[len(samples)-1].Time,
	}, true
}

// At returns the series value at the given instant using nearest-boundary
// lookup: the most recent sample at or before t. Returns false if the series
// is empty or t precedes its first sample.
func (s *Store) At(id model.SeriesID, t time.Time) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.series[id]
	if len(samples) == 0 {
		return 0, false
	}

	// First sample strictly after t; the one before it is our answer.
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].Time.After(t)
	})
	if idx == 0 {
		return 0, false
	}
	return samples[idx-1].Value, true
}

// InRange returns samples between start (inclusive) and end (exclusive).
func (s *Store) InRange(id model.SeriesID, start, end time.Time) []model.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.series[id]
	if len(all) == 0 {
		return nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Time.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Time.Before(end)
	})
	if startIdx >= endIdx {
		return nil
	}

	out := make([]model.Sample, endIdx-startIdx)
	copy(out, all[startIdx:endIdx])
	return out
}
