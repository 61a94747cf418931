// Package engine runs the timestep loop: it snapshots conditions, evaluates
// controls, computes demands, resolves supply against demand through the
// convergence solver and commits the step atomically. All mutable run state
// lives in one State value owned by the loop; component models are pure.
package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/clock"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/components"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/registry"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/results"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/solver"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/store"
)

// conservationToleranceWh bounds the per-zone energy balance residual.
const conservationToleranceWh = 1e-6

// Callback receives run events as they are committed.
type Callback interface {
	OnInterval(iv results.Interval)
	OnWarning(w solver.Warning)
	OnSummary(s results.Summary)
}

// Options parameterize a run.
type Options struct {
	Solver solver.Config
	// Strict escalates convergence warnings to fatal errors.
	Strict bool
	// Callback receives committed intervals and the final summary. Nil is
	// allowed.
	Callback Callback
	// RunID overrides the generated run identifier; used for reproducible
	// output in tests.
	RunID string
}

// State is the complete mutable state of a run at a committed timestep
// boundary. The loop is its single writer; a step either commits a fully
// new State or leaves the previous one untouched.
type State struct {
	ZoneTempC []float64
	Controls  []components.ControlState
	Cylinders []components.CylinderState

	// MeterWh and CostAccrued index by supply.
	MeterWh     []float64
	CostAccrued []float64
	chargedDay  string
}

// Engine drives one scenario over one clock horizon.
type Engine struct {
	graph *registry.Graph
	clk   *clock.Clock
	store *store.Store
	opts  Options

	controls  []components.Control
	zones     []components.Zone
	sources   []components.HeatSource
	cylinders []components.Cylinder

	controlOrder []int
	needSolar    bool

	// Consumers per source, dispatch order: cylinders first, then zones.
	sourceCyls  [][]int
	sourceZones [][]int
}

// New wires the component models for a resolved graph and verifies that the
// loaded condition series cover the clock horizon. Alignment problems are
// reported here, before any timestep runs.
func New(graph *registry.Graph, clk *clock.Clock, st *store.Store, opts Options) (*Engine, error) {
	if err := clk.Align(st, graph.RequiredSeries()); err != nil {
		return nil, err
	}

	e := &Engine{
		graph:       graph,
		clk:         clk,
		store:       st,
		opts:        opts,
		sourceCyls:  make([][]int, len(graph.Sources())),
		sourceZones: make([][]int, len(graph.Sources())),
	}

	for _, def := range graph.Controls() {
		ctrl, err := components.NewControl(def)
		if err != nil {
			return nil, err
		}
		e.controls = append(e.controls, ctrl)
	}
	for _, def := range graph.Sources() {
		src, err := components.NewSource(def)
		if err != nil {
			return nil, err
		}
		e.sources = append(e.sources, src)
	}
	for i, def := range graph.Zones() {
		e.zones = append(e.zones, components.NewZone(def))
		if def.SolarApertureM2 > 0 {
			e.needSolar = true
		}
		if def.Heated() {
			s := def.Source.Index()
			e.sourceZones[s] = append(e.sourceZones[s], i)
		}
	}
	for i, def := range graph.HotWater() {
		e.cylinders = append(e.cylinders, components.NewCylinder(def))
		s := def.Source.Index()
		e.sourceCyls[s] = append(e.sourceCyls[s], i)
	}

	for _, h := range graph.Order() {
		if h.Kind() == model.KindControl {
			e.controlOrder = append(e.controlOrder, h.Index())
		}
	}
	return e, nil
}

// InitialState builds the state at the start of the horizon.
func (e *Engine) InitialState() *State {
	s := &State{
		ZoneTempC:   make([]float64, len(e.zones)),
		Controls:    make([]components.ControlState, len(e.controls)),
		Cylinders:   make([]components.CylinderState, len(e.cylinders)),
		MeterWh:     make([]float64, len(e.graph.Supplies())),
		CostAccrued: make([]float64, len(e.graph.Supplies())),
	}
	for i, def := range e.graph.Zones() {
		s.ZoneTempC[i] = def.InitialTempC
	}
	for i, c := range e.cylinders {
		s.Cylinders[i] = c.InitialState()
	}
	return s
}

// Run executes every timestep of the horizon in order. Cancellation is
// honored between timesteps; a cancelled run returns the context error with
// all previously committed intervals intact in the returned summary's
// aggregator. Convergence failures produce warnings (fatal in strict mode);
// invariant violations are always fatal.
func (e *Engine) Run(ctx context.Context) (results.Summary, []solver.Warning, error) {
	runID := e.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	agg := results.NewAggregator(runID)

	var warnings []solver.Warning
	state := e.InitialState()

	for i := 0; i < e.clk.Len(); i++ {
		select {
		case <-ctx.Done():
			return agg.Summary(), warnings, ctx.Err()
		default:
		}

		ts := e.clk.At(i)
		iv, next, warn, err := e.step(ts, state)
		if err != nil {
			return agg.Summary(), warnings, err
		}
		if warn != nil {
			if e.opts.Strict {
				return agg.Summary(), warnings, &ConvergenceError{
					Step:       warn.Step,
					Residual:   warn.Residual,
					Iterations: warn.Iterations,
				}
			}
			warnings = append(warnings, *warn)
			if e.opts.Callback != nil {
				e.opts.Callback.OnWarning(*warn)
			}
		}

		state = next
		agg.Add(iv)
		if e.opts.Callback != nil {
			e.opts.Callback.OnInterval(iv)
		}
	}

	summary := agg.Summary()
	if e.opts.Callback != nil {
		e.opts.Callback.OnSummary(summary)
	}
	return summary, warnings, nil
}

// dispatchResult is the outcome of one supply resolution pass.
type dispatchResult struct {
	zoneDeliveredWh []float64
	cylDeliveredWh  []float64
	sourceFuelWh    []float64
	sourceStates    []components.SourceState
}

// step executes one timestep against the previous committed state and
// returns the interval record plus the next state. On any error the previous
// state remains the last committed one.
func (e *Engine) step(ts clock.Timestep, prev *State) (results.Interval, *State, *solver.Warning, error) {
	outdoor, ok := e.store.At(model.SeriesOutdoorTemp, ts.Time)
	if len(e.zones) > 0 && !ok {
		return results.Interval{}, nil, nil, &InvariantError{
			Step: ts.Index, Component: "store",
			Detail: "outdoor temperature lookup failed inside an aligned horizon",
		}
	}
	var solarWm2 float64
	if e.needSolar {
		solarWm2, ok = e.store.At(model.SeriesSolarIrradiance, ts.Time)
		if !ok {
			return results.Interval{}, nil, nil, &InvariantError{
				Step: ts.Index, Component: "store",
				Detail: "solar irradiance lookup failed inside an aligned horizon",
			}
		}
	}
	cond := components.ZoneConditions{
		OutdoorTempC:  outdoor,
		SolarWPerM2:   solarWm2,
		DurationHours: ts.Hours(),
	}

	// Stage 2: controls, in dependency order. Sensed zone temperatures come
	// from the previous committed state; upstream outputs from this step.
	ctrlOut := make([]components.ControlOutput, len(e.controls))
	ctrlState := make([]components.ControlState, len(e.controls))
	for _, ci := range e.controlOrder {
		def := e.graph.Controls()[ci]
		in := components.ControlInput{
			Time:    ts.Time,
			Weekday: ts.Weekday,
			Holiday: ts.Holiday,
		}
		if def.SensesZone.Valid() {
			in.ZoneTempC = prev.ZoneTempC[def.SensesZone.Index()]
		}
		if def.Input.Valid() {
			in.Upstream = ctrlOut[def.Input.Index()]
			in.HasUpstream = true
		}
		ctrlOut[ci], ctrlState[ci] = e.controls[ci].Evaluate(in, prev.Controls[ci])
	}

	// Stage 3: demands, from the previous committed state.
	zoneDemandWh := make([]float64, len(e.zones))
	zoneSetpoint := make([]float64, len(e.zones))
	zoneCall := make([]bool, len(e.zones))
	for i, def := range e.graph.Zones() {
		if !def.Heated() {
			continue
		}
		out := ctrlOut[def.Control.Index()]
		zoneSetpoint[i] = out.SetpointC
		zoneCall[i] = out.Demand
		if out.Demand {
			zoneDemandWh[i] = e.zones[i].RequiredHeatWh(prev.ZoneTempC[i], out.SetpointC, cond)
		}
	}

	cylDemand := make([]components.CylinderResult, len(e.cylinders))
	for i, c := range e.cylinders {
		cylDemand[i] = c.Demand(prev.Cylinders[i], ts.Time, ts.Duration)
	}

	// Stage 4: resolve supply against demand. The solved vector is the
	// end-of-step zone temperatures; heat pump performance reads them as the
	// sink temperature, which closes the loop the solver iterates over.
	dispatch := func(x []float64) dispatchResult {
		d := dispatchResult{
			zoneDeliveredWh: make([]float64, len(e.zones)),
			cylDeliveredWh:  make([]float64, len(e.cylinders)),
			sourceFuelWh:    make([]float64, len(e.sources)),
			sourceStates:    make([]components.SourceState, len(e.sources)),
		}
		for si, src := range e.sources {
			remaining := src.CapacityWh(ts.Hours())
			st := components.SourceState{}
			for _, ci := range e.sourceCyls[si] {
				res, next := src.Deliver(components.SourceInput{
					DemandWh:      cylDemand[ci].DemandWh,
					AvailableWh:   remaining,
					SinkTempC:     prev.Cylinders[ci].TempC,
					OutdoorTempC:  outdoor,
					DurationHours: ts.Hours(),
				}, st)
				st = next
				remaining -= res.DeliveredWh
				d.cylDeliveredWh[ci] = res.DeliveredWh
				d.sourceFuelWh[si] += res.FuelWh
			}
			for _, zi := range e.sourceZones[si] {
				res, next := src.Deliver(components.SourceInput{
					DemandWh:      zoneDemandWh[zi],
					AvailableWh:   remaining,
					SinkTempC:     x[zi],
					OutdoorTempC:  outdoor,
					DurationHours: ts.Hours(),
				}, st)
				st = next
				remaining -= res.DeliveredWh
				d.zoneDeliveredWh[zi] = res.DeliveredWh
				d.sourceFuelWh[si] += res.FuelWh
			}
			d.sourceStates[si] = st
		}
		return d
	}

	advance := func(x []float64) []float64 {
		d := dispatch(x)
		next := make([]float64, len(e.zones))
		for i, z := range e.zones {
			next[i] = z.NextTemp(prev.ZoneTempC[i], d.zoneDeliveredWh[i], cond)
		}
		return next
	}

	res := solver.Solve(prev.ZoneTempC, advance, solver.MaxAbsDiff, e.opts.Solver)
	var warn *solver.Warning
	if !res.Converged {
		warn = &solver.Warning{Step: ts.Index, Residual: res.Residual, Iterations: res.Iterations}
	}

	// Stage 5: final evaluation at the solved temperatures, then invariants.
	final := dispatch(res.X)
	nextTemps := make([]float64, len(e.zones))
	for i, z := range e.zones {
		delivered := final.zoneDeliveredWh[i]
		if delivered < 0 {
			return results.Interval{}, nil, warn, &InvariantError{
				Step: ts.Index, Component: e.graph.Zones()[i].Name,
				Detail: fmt.Sprintf("negative delivered energy %g Wh", delivered),
			}
		}
		nextTemps[i] = z.NextTemp(prev.ZoneTempC[i], delivered, cond)

		gain := delivered + z.SolarGainWh(cond) - z.LossWh(prev.ZoneTempC[i], cond)
		stored := e.graph.Zones()[i].HeatCapacityWhK * (nextTemps[i] - prev.ZoneTempC[i])
		if math.Abs(stored-gain) > conservationToleranceWh {
			return results.Interval{}, nil, warn, &InvariantError{
				Step: ts.Index, Component: e.graph.Zones()[i].Name,
				Detail: fmt.Sprintf("energy balance residual %g Wh", stored-gain),
			}
		}
	}
	for i, d := range final.cylDeliveredWh {
		if d < 0 {
			return results.Interval{}, nil, warn, &InvariantError{
				Step: ts.Index, Component: e.graph.HotWater()[i].Name,
				Detail: fmt.Sprintf("negative delivered energy %g Wh", d),
			}
		}
	}

	// Stage 6: metering, costing and atomic commit.
	next := &State{
		ZoneTempC:   nextTemps,
		Controls:    ctrlState,
		Cylinders:   make([]components.CylinderState, len(e.cylinders)),
		MeterWh:     append([]float64(nil), prev.MeterWh...),
		CostAccrued: append([]float64(nil), prev.CostAccrued...),
		chargedDay:  prev.chargedDay,
	}
	for i, c := range e.cylinders {
		next.Cylinders[i] = c.Advance(prev.Cylinders[i], cylDemand[i], final.cylDeliveredWh[i])
	}

	supplyFuelWh := make([]float64, len(e.graph.Supplies()))
	for si, def := range e.graph.Sources() {
		supplyFuelWh[def.Supply.Index()] += final.sourceFuelWh[si]
	}

	day := ts.Time.Format("2006-01-02")
	supplies := make([]results.SupplyInterval, len(e.graph.Supplies()))
	for i, def := range e.graph.Supplies() {
		var rate float64
		if def.Tariff != "" {
			rate, _ = e.store.At(def.Tariff, ts.Time)
		}
		cost := supplyFuelWh[i] / 1000 * rate

		var standing float64
		if day != prev.chargedDay {
			standing = def.StandingChargeDay
		}

		next.MeterWh[i] += supplyFuelWh[i]
		next.CostAccrued[i] += cost + standing
		supplies[i] = results.SupplyInterval{
			Supply:       def.Name,
			Fuel:         def.Fuel,
			FuelWh:       supplyFuelWh[i],
			Rate:         rate,
			Cost:         cost,
			StandingCost: standing,
			MeterWh:      next.MeterWh[i],
		}
	}
	next.chargedDay = day

	iv := results.Interval{
		Index:            ts.Index,
		Time:             ts.Time,
		DurationMinutes:  int(ts.Duration.Minutes()),
		OutdoorTempC:     outdoor,
		SolarWPerM2:      solarWm2,
		Supplies:         supplies,
		SolverIterations: res.Iterations,
		SolverResidual:   res.Residual,
		Converged:        res.Converged,
	}
	for i, def := range e.graph.Zones() {
		iv.Zones = append(iv.Zones, results.ZoneInterval{
			Zone:        def.Name,
			TempC:       nextTemps[i],
			SetpointC:   zoneSetpoint[i],
			CallForHeat: zoneCall[i],
			DemandWh:    zoneDemandWh[i],
			DeliveredWh: final.zoneDeliveredWh[i],
			SolarGainWh: e.zones[i].SolarGainWh(cond),
			InComfort:   e.zones[i].InComfortBand(nextTemps[i]),
		})
	}
	for i, def := range e.graph.HotWater() {
		iv.HotWater = append(iv.HotWater, results.HotWaterInterval{
			Cylinder:    def.Name,
			StoreTempC:  next.Cylinders[i].TempC,
			DemandWh:    cylDemand[i].DemandWh,
			DeliveredWh: final.cylDeliveredWh[i],
			DrawWh:      cylDemand[i].DrawWh,
			LossWh:      cylDemand[i].LossWh,
		})
	}

	return iv, next, warn, nil
}
