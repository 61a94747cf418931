package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func hourly(values ...float64) []model.Sample {
	samples := make([]model.Sample, len(values))
	for i, v := range values {
		samples[i] = model.Sample{Time: t0.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return samples
}

func TestStore_AtNearestBoundary(t *testing.T) {
	s := New()
	s.Add("weather.outdoor_temp_c", hourly(0, 1, 2, 3))

	// Exactly on a sample
	v, ok := s.At("weather.outdoor_temp_c", t0.Add(2*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	// Between samples: most recent at-or-before wins
	v, ok = s.At("weather.outdoor_temp_c", t0.Add(2*time.Hour+30*time.Minute))
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	// After the last sample it extends
	v, ok = s.At("weather.outdoor_temp_c", t0.Add(48*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestStore_AtBeforeFirstSample(t *testing.T) {
	s := New()
	s.Add("weather.outdoor_temp_c", hourly(5))

	_, ok := s.At("weather.outdoor_temp_c", t0.Add(-time.Minute))
	assert.False(t, ok)
}

func TestStore_AtUnknownSeries(t *testing.T) {
	s := New()
	_, ok := s.At("tariff.mains", t0)
	assert.False(t, ok)
}

func TestStore_AddSortsOutOfOrderSamples(t *testing.T) {
	s := New()
	s.Add("tariff.mains", []model.Sample{
		{Time: t0.Add(2 * time.Hour), Value: 0.30},
		{Time: t0, Value: 0.10},
		{Time: t0.Add(time.Hour), Value: 0.20},
	})

	tr, ok := s.Range("tariff.mains")
	require.True(t, ok)
	assert.Equal(t, t0, tr.Start)
	assert.Equal(t, t0.Add(2*time.Hour), tr.End)

	v, ok := s.At("tariff.mains", t0.Add(90*time.Minute))
	require.True(t, ok)
	assert.Equal(t, 0.20, v)
}

func TestStore_InRangeHalfOpen(t *testing.T) {
	s := New()
	s.Add("weather.solar_w_m2", hourly(0, 100, 200, 300))

	got := s.InRange("weather.solar_w_m2", t0.Add(time.Hour), t0.Add(3*time.Hour))
	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].Value)
	assert.Equal(t, 200.0, got[1].Value)
}

func TestStore_RangeCovers(t *testing.T) {
	s := New()
	s.Add("weather.outdoor_temp_c", hourly(0, 0, 0))

	tr, ok := s.Range("weather.outdoor_temp_c")
	require.True(t, ok)
	assert.True(t, tr.Covers(model.TimeRange{Start: t0, End: t0.Add(2 * time.Hour)}))
	assert.False(t, tr.Covers(model.TimeRange{Start: t0, End: t0.Add(3 * time.Hour)}))
}
