package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interval(index int, t time.Time, demandWh, fuelWh, cost float64, converged bool) Interval {
	return Interval{
		Index:           index,
		Time:            t,
		DurationMinutes: 60,
		OutdoorTempC:    5,
		Zones: []ZoneInterval{
			{Zone: "living", TempC: 21, SetpointC: 21, DemandWh: demandWh, DeliveredWh: demandWh, InComfort: true},
		},
		Supplies: []SupplyInterval{
			{Supply: "mains_gas", Fuel: "gas", FuelWh: fuelWh, Rate: 0.07, Cost: cost},
		},
		SolverIterations: 2,
		Converged:        converged,
	}
}

func TestAggregator_SummaryFoldsIntervals(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator("run-1")
	for i := 0; i < 4; i++ {
		agg.Add(interval(i, start.Add(time.Duration(i)*time.Hour), 1500, 1700, 0.119, true))
	}

	s := agg.Summary()
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 4, s.Steps)
	assert.Equal(t, start, s.Start)
	assert.Equal(t, start.Add(3*time.Hour), s.End)
	assert.InDelta(t, 6.0, s.SpaceDemandKWh, 1e-9)
	assert.InDelta(t, 6.0, s.SpaceDeliveredKWh, 1e-9)

	require.Len(t, s.Supplies, 1)
	assert.Equal(t, "gas", s.Supplies[0].Fuel)
	assert.InDelta(t, 6.8, s.Supplies[0].FuelKWh, 1e-9)
	assert.InDelta(t, 0.476, s.TotalCost, 1e-9)
}

func TestAggregator_SubHorizonSumsMatchCumulative(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator("run-2")
	demands := []float64{800, 1200, 0, 400, 2000, 900}
	for i, d := range demands {
		agg.Add(interval(i, start.Add(time.Duration(i)*time.Hour), d, d*1.1, d*1.1*0.07/1000, true))
	}

	var fromIntervals float64
	for _, iv := range agg.Intervals() {
		for _, z := range iv.Zones {
			fromIntervals += z.DemandWh
		}
	}
	assert.InDelta(t, fromIntervals/1000, agg.Summary().SpaceDemandKWh, 1e-9)

	var fuel, cost float64
	for _, iv := range agg.Intervals() {
		for _, sp := range iv.Supplies {
			fuel += sp.FuelWh
			cost += sp.Cost + sp.StandingCost
		}
	}
	s := agg.Summary()
	assert.InDelta(t, fuel/1000, s.Supplies[0].FuelKWh, 1e-9)
	assert.InDelta(t, cost, s.TotalCost, 1e-9)
}

func TestAggregator_PeakDemand(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator("run-3")
	agg.Add(interval(0, start, 500, 550, 0.04, true))
	agg.Add(interval(1, start.Add(time.Hour), 2400, 2600, 0.18, true))
	agg.Add(interval(2, start.Add(2*time.Hour), 900, 1000, 0.07, true))

	s := agg.Summary()
	assert.InDelta(t, 2400, s.PeakDemandW, 1e-9)
	assert.Equal(t, start.Add(time.Hour), s.PeakDemandAt)
}

func TestAggregator_CountsConvergenceWarnings(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator("run-4")
	agg.Add(interval(0, start, 500, 550, 0.04, true))
	agg.Add(interval(1, start.Add(time.Hour), 500, 550, 0.04, false))
	agg.Add(interval(2, start.Add(2*time.Hour), 500, 550, 0.04, false))

	assert.Equal(t, 2, agg.Summary().ConvergenceWarnings)
}

func TestAggregator_ComfortHours(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator("run-5")
	iv := interval(0, start, 500, 550, 0.04, true)
	iv.Zones[0].InComfort = false
	agg.Add(iv)
	agg.Add(interval(1, start.Add(time.Hour), 500, 550, 0.04, true))

	assert.InDelta(t, 1.0, agg.Summary().ZoneHoursOutsideComfort, 1e-9)
}

func TestAggregator_MergesSuppliesByName(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	agg := NewAggregator("run-6")
	iv := interval(0, start, 500, 550, 0.04, true)
	iv.Supplies = append(iv.Supplies, SupplyInterval{Supply: "grid", Fuel: "electricity", FuelWh: 300, Cost: 0.09})
	agg.Add(iv)
	agg.Add(interval(1, start.Add(time.Hour), 500, 550, 0.04, true))

	s := agg.Summary()
	require.Len(t, s.Supplies, 2)
	assert.Equal(t, "mains_gas", s.Supplies[0].Supply)
	assert.InDelta(t, 1.1, s.Supplies[0].FuelKWh, 1e-9)
	assert.Equal(t, "grid", s.Supplies[1].Supply)
	assert.InDelta(t, 0.3, s.Supplies[1].FuelKWh, 1e-9)
}
