// Package results accumulates committed timestep output into typed
// per-interval records and folds them into a run summary. Every field has
// one declared type; output assembly projects this model without ever
// re-deriving a value, so all output formats agree by construction.
package results

import (
	"time"
)

// ZoneInterval is one zone's share of a timestep record.
type ZoneInterval struct {
	Zone        string  `json:"zone" yaml:"zone"`
	TempC       float64 `json:"temp_c" yaml:"temp_c"`
	SetpointC   float64 `json:"setpoint_c" yaml:"setpoint_c"`
	CallForHeat bool    `json:"call_for_heat" yaml:"call_for_heat"`
	DemandWh    float64 `json:"demand_wh" yaml:"demand_wh"`
	DeliveredWh float64 `json:"delivered_wh" yaml:"delivered_wh"`
	SolarGainWh float64 `json:"solar_gain_wh" yaml:"solar_gain_wh"`
	InComfort   bool    `json:"in_comfort" yaml:"in_comfort"`
}

// HotWaterInterval is one cylinder's share of a timestep record.
type HotWaterInterval struct {
	Cylinder    string  `json:"cylinder" yaml:"cylinder"`
	StoreTempC  float64 `json:"store_temp_c" yaml:"store_temp_c"`
	DemandWh    float64 `json:"demand_wh" yaml:"demand_wh"`
	DeliveredWh float64 `json:"delivered_wh" yaml:"delivered_wh"`
	DrawWh      float64 `json:"draw_wh" yaml:"draw_wh"`
	LossWh      float64 `json:"loss_wh" yaml:"loss_wh"`
}

// SupplyInterval is one metering account's share of a timestep record.
type SupplyInterval struct {
	Supply       string  `json:"supply" yaml:"supply"`
	Fuel         string  `json:"fuel" yaml:"fuel"`
	FuelWh       float64 `json:"fuel_wh" yaml:"fuel_wh"`
	Rate         float64 `json:"rate" yaml:"rate"`
	Cost         float64 `json:"cost" yaml:"cost"`
	StandingCost float64 `json:"standing_cost" yaml:"standing_cost"`
	// MeterWh is the cumulative metered energy at commit time.
	MeterWh float64 `json:"meter_wh" yaml:"meter_wh"`
}

// Interval is the flat, fully-typed record of one committed timestep.
type Interval struct {
	Index           int                `json:"index" yaml:"index"`
	Time            time.Time          `json:"time" yaml:"time"`
	DurationMinutes int                `json:"duration_minutes" yaml:"duration_minutes"`
	OutdoorTempC    float64            `json:"outdoor_temp_c" yaml:"outdoor_temp_c"`
	SolarWPerM2     float64            `json:"solar_w_m2" yaml:"solar_w_m2"`
	Zones           []ZoneInterval     `json:"zones" yaml:"zones"`
	HotWater        []HotWaterInterval `json:"hot_water,omitempty" yaml:"hot_water,omitempty"`
	Supplies        []SupplyInterval   `json:"supplies" yaml:"supplies"`

	SolverIterations int     `json:"solver_iterations" yaml:"solver_iterations"`
	SolverResidual   float64 `json:"solver_residual" yaml:"solver_residual"`
	Converged        bool    `json:"converged" yaml:"converged"`
}

// DemandWh is the total requested energy of the interval, all end uses.
func (iv Interval) DemandWh() float64 {
	var total float64
	for _, z := range iv.Zones {
		total += z.DemandWh
	}
	for _, hw := range iv.HotWater {
		total += hw.DemandWh
	}
	return total
}

// FuelTotal is one supply's cumulative fuel and cost.
type FuelTotal struct {
	Supply  string  `json:"supply" yaml:"supply"`
	Fuel    string  `json:"fuel" yaml:"fuel"`
	FuelKWh float64 `json:"fuel_kwh" yaml:"fuel_kwh"`
	Cost    float64 `json:"cost" yaml:"cost"`
}

// Summary is the cumulative output of a run. It is built purely by folding
// interval records, so any sub-horizon sum of intervals matches the summary
// over that sub-horizon.
type Summary struct {
	RunID string    `json:"run_id" yaml:"run_id"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Steps int       `json:"steps" yaml:"steps"`

	SpaceDemandKWh    float64 `json:"space_demand_kwh" yaml:"space_demand_kwh"`
	SpaceDeliveredKWh float64 `json:"space_delivered_kwh" yaml:"space_delivered_kwh"`
	WaterDemandKWh    float64 `json:"water_demand_kwh" yaml:"water_demand_kwh"`
	WaterDeliveredKWh float64 `json:"water_delivered_kwh" yaml:"water_delivered_kwh"`

	Supplies  []FuelTotal `json:"supplies" yaml:"supplies"`
	TotalCost float64     `json:"total_cost" yaml:"total_cost"`

	PeakDemandW  float64   `json:"peak_demand_w" yaml:"peak_demand_w"`
	PeakDemandAt time.Time `json:"peak_demand_at" yaml:"peak_demand_at"`

	ZoneHoursOutsideComfort float64 `json:"zone_hours_outside_comfort" yaml:"zone_hours_outside_comfort"`
	ConvergenceWarnings     int     `json:"convergence_warnings" yaml:"convergence_warnings"`
}

// Aggregator consumes committed intervals. It is single-writer: only the
// orchestrator's commit stage feeds it, in timestep order.
type Aggregator struct {
	runID     string
	intervals []Interval

	supplyIdx map[string]int
	totals    []FuelTotal
	summary   Summary
}

func NewAggregator(runID string) *Aggregator {
	return &Aggregator{
		runID:     runID,
		supplyIdx: make(map[string]int),
	}
}

// Add folds one committed interval into the aggregate.
func (a *Aggregator) Add(iv Interval) {
	a.intervals = append(a.intervals, iv)

	s := &a.summary
	s.Steps++
	if s.Steps == 1 {
		s.Start = iv.Time
	}
	s.End = iv.Time

	hours := float64(iv.DurationMinutes) / 60
	for _, z := range iv.Zones {
		s.SpaceDemandKWh += z.DemandWh / 1000
		s.SpaceDeliveredKWh += z.DeliveredWh / 1000
		if !z.InComfort {
			s.ZoneHoursOutsideComfort += hours
		}
	}
	for _, hw := range iv.HotWater {
		s.WaterDemandKWh += hw.DemandWh / 1000
		s.WaterDeliveredKWh += hw.DeliveredWh / 1000
	}
	for _, sp := range iv.Supplies {
		idx, ok := a.supplyIdx[sp.Supply]
		if !ok {
			idx = len(a.totals)
			a.supplyIdx[sp.Supply] = idx
			a.totals = append(a.totals, FuelTotal{Supply: sp.Supply, Fuel: sp.Fuel})
		}
		a.totals[idx].FuelKWh += sp.FuelWh / 1000
		a.totals[idx].Cost += sp.Cost + sp.StandingCost
		s.TotalCost += sp.Cost + sp.StandingCost
	}

	if hours > 0 {
		if demandW := iv.DemandWh() / hours; demandW > s.PeakDemandW {
			s.PeakDemandW = demandW
			s.PeakDemandAt = iv.Time
		}
	}
	if !iv.Converged {
		s.ConvergenceWarnings++
	}
}

// Intervals returns the committed interval records in order.
func (a *Aggregator) Intervals() []Interval { return a.intervals }

// Summary returns the cumulative summary of everything added so far. It may
// be inspected mid-run for diagnostics; the final summary exists once the
// last interval is added.
func (a *Aggregator) Summary() Summary {
	s := a.summary
	s.RunID = a.runID
	s.Supplies = make([]FuelTotal, len(a.totals))
	copy(s.Supplies, a.totals)
	return s
}
