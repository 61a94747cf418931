// Package clock produces the ordered timestep sequence for a run and checks
// that every required condition series covers the simulated horizon before
// the first timestep executes.
package clock

import (
	"fmt"
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/store"
)

// Config describes the simulated horizon.
type Config struct {
	Start        time.Time
	Steps        int
	StepDuration time.Duration
	Holidays     map[string]bool // "2006-01-02" dates
}

// Timestep is one descriptor of the sequence. Weekday and Holiday carry the
// calendar metadata schedule controls look up.
type Timestep struct {
	Index    int
	Time     time.Time
	Duration time.Duration
	Weekday  time.Weekday
	Holiday  bool
}

// Hours is the step duration in hours; energy bookkeeping works in Wh.
func (ts Timestep) Hours() float64 { return ts.Duration.Hours() }

// Clock is a finite, restartable timestep sequence. Descriptors are computed
// on demand; iterating twice yields identical sequences.
type Clock struct {
	cfg Config
}

func New(cfg Config) (*Clock, error) {
	if cfg.Start.IsZero() {
		return nil, fmt.Errorf("clock: start instant is required")
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("clock: steps must be positive, got %d", cfg.Steps)
	}
	if cfg.StepDuration <= 0 {
		return nil, fmt.Errorf("clock: step duration must be positive, got %s", cfg.StepDuration)
	}
	return &Clock{cfg: cfg}, nil
}

// Len is the number of timesteps in the horizon.
func (c *Clock) Len() int { return c.cfg.Steps }

// At returns the i-th timestep descriptor.
func (c *Clock) At(i int) Timestep {
	t := c.cfg.Start.Add(time.Duration(i) * c.cfg.StepDuration)
	return Timestep{
		Index:    i,
		Time:     t,
		Duration: c.cfg.StepDuration,
		Weekday:  t.Weekday(),
		Holiday:  c.cfg.Holidays[t.Format("2006-01-02")],
	}
}

// Horizon is the closed time range the run covers, from the first timestep
// to the start of the last one.
func (c *Clock) Horizon() model.TimeRange {
	return model.TimeRange{
		Start: c.cfg.Start,
		End:   c.cfg.Start.Add(time.Duration(c.cfg.Steps-1) * c.cfg.StepDuration),
	}
}

// AlignmentError reports a condition series that does not cover the horizon.
// It is always raised before the first timestep runs.
type AlignmentError struct {
	Series  model.SeriesID
	Horizon model.TimeRange
	Cover   model.TimeRange
	Missing bool
}

func (e *AlignmentError) Error() string {
	if e.Missing {
		return fmt.Sprintf("series %s: no data loaded for horizon %s .. %s",
			e.Series, e.Horizon.Start.Format(time.RFC3339), e.Horizon.End.Format(time.RFC3339))
	}
	return fmt.Sprintf("series %s covers %s .. %s but the horizon needs %s .. %s",
		e.Series,
		e.Cover.Start.Format(time.RFC3339), e.Cover.End.Format(time.RFC3339),
		e.Horizon.Start.Format(time.RFC3339), e.Horizon.End.Format(time.RFC3339))
}

// Align verifies that every required series covers the full horizon.
// Nearest-boundary lookup extends a series forward past its last sample, so
// coverage requires the first sample at or before the horizon start and the
// last sample no earlier than one step behind the horizon end.
func (c *Clock) Align(st *store.Store, required []model.SeriesID) error {
	horizon := c.Horizon()
	for _, id := range required {
		cover, ok := st.Range(id)
		if !ok {
			return &AlignmentError{Series: id, Horizon: horizon, Missing: true}
		}
		if cover.Start.After(horizon.Start) || cover.End.Before(horizon.End.Add(-c.cfg.StepDuration)) {
			return &AlignmentError{Series: id, Horizon: horizon, Cover: cover}
		}
	}
	return nil
}
