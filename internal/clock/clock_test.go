package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/store"
)

// 2025-01-01 is a Wednesday.
var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newClock(t *testing.T, steps int) *Clock {
	t.Helper()
	c, err := New(Config{
		Start:        start,
		Steps:        steps,
		StepDuration: time.Hour,
		Holidays:     map[string]bool{"2025-01-01": true},
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Steps: 10, StepDuration: time.Hour})
	assert.Error(t, err)

	_, err = New(Config{Start: start, Steps: 0, StepDuration: time.Hour})
	assert.Error(t, err)

	_, err = New(Config{Start: start, Steps: 10})
	assert.Error(t, err)
}

func TestClock_Sequence(t *testing.T) {
	c := newClock(t, 48)
	assert.Equal(t, 48, c.Len())

	ts := c.At(0)
	assert.Equal(t, 0, ts.Index)
	assert.Equal(t, start, ts.Time)
	assert.Equal(t, time.Hour, ts.Duration)
	assert.Equal(t, 1.0, ts.Hours())

	ts = c.At(30)
	assert.Equal(t, start.Add(30*time.Hour), ts.Time)
}

func TestClock_Restartable(t *testing.T) {
	c := newClock(t, 24)
	first := make([]Timestep, c.Len())
	for i := 0; i < c.Len(); i++ {
		first[i] = c.At(i)
	}
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, first[i], c.At(i))
	}
}

func TestClock_CalendarMetadata(t *testing.T) {
	c := newClock(t, 96)

	assert.Equal(t, time.Wednesday, c.At(0).Weekday)
	assert.True(t, c.At(0).Holiday)
	assert.True(t, c.At(23).Holiday)

	// Jan 2nd: ordinary Thursday
	assert.Equal(t, time.Thursday, c.At(24).Weekday)
	assert.False(t, c.At(24).Holiday)

	// Jan 4th: Saturday
	assert.Equal(t, time.Saturday, c.At(72).Weekday)
}

func TestClock_Horizon(t *testing.T) {
	c := newClock(t, 24)
	h := c.Horizon()
	assert.Equal(t, start, h.Start)
	assert.Equal(t, start.Add(23*time.Hour), h.End)
}

func seriesSamples(from time.Time, hours int) []model.Sample {
	samples := make([]model.Sample, hours)
	for i := range samples {
		samples[i] = model.Sample{Time: from.Add(time.Duration(i) * time.Hour), Value: float64(i)}
	}
	return samples
}

func TestAlign_FullCover(t *testing.T) {
	c := newClock(t, 24)
	st := store.New()
	st.Add(model.SeriesOutdoorTemp, seriesSamples(start, 24))

	assert.NoError(t, c.Align(st, []model.SeriesID{model.SeriesOutdoorTemp}))
}

func TestAlign_MissingSeries(t *testing.T) {
	c := newClock(t, 24)
	st := store.New()

	err := c.Align(st, []model.SeriesID{model.SeriesOutdoorTemp})
	require.Error(t, err)
	var ae *AlignmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, model.SeriesOutdoorTemp, ae.Series)
	assert.True(t, ae.Missing)
}

func TestAlign_SeriesStartsTooLate(t *testing.T) {
	c := newClock(t, 24)
	st := store.New()
	st.Add(model.SeriesOutdoorTemp, seriesSamples(start.Add(2*time.Hour), 24))

	err := c.Align(st, []model.SeriesID{model.SeriesOutdoorTemp})
	require.Error(t, err)
	var ae *AlignmentError
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.Missing)
}

func TestAlign_SeriesEndsTooEarly(t *testing.T) {
	c := newClock(t, 48)
	st := store.New()
	st.Add(model.SeriesOutdoorTemp, seriesSamples(start, 24))

	err := c.Align(st, []model.SeriesID{model.SeriesOutdoorTemp})
	assert.Error(t, err)
}

func TestAlign_LastBoundarySlack(t *testing.T) {
	// A series whose last sample sits one step before the horizon end is
	// still usable through nearest-boundary lookup.
	c := newClock(t, 24)
	st := store.New()
	st.Add(model.SeriesOutdoorTemp, seriesSamples(start, 23))

	assert.NoError(t, c.Align(st, []model.SeriesID{model.SeriesOutdoorTemp}))
}
