package components

import (
	"fmt"
	"math"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/registry"
)

// SourceInput is one delivery request to a heat source.
type SourceInput struct {
	// DemandWh is the energy requested this step.
	DemandWh float64
	// AvailableWh caps what the dispatcher allows this source to deliver to
	// this consumer; it reflects capacity already spent on other consumers.
	AvailableWh float64
	// SinkTempC is the temperature of whatever the source heats into (zone
	// air, cylinder water). Heat pump performance depends on it.
	SinkTempC float64
	// OutdoorTempC is the source-side temperature for heat pumps.
	OutdoorTempC float64
	// DurationHours is the step length.
	DurationHours float64
}

// SourceResult is one delivery outcome.
type SourceResult struct {
	// DeliveredWh is the heat actually supplied, never exceeding the demand
	// or the available capacity.
	DeliveredWh float64
	// FuelWh is the metered input energy drawn from the supply.
	FuelWh float64
}

// SourceState carries a source's per-step operating state.
type SourceState struct {
	// LoadRatio is the part-load ratio of the last delivery, 0..1.
	LoadRatio float64
	// OutputWh is the total heat delivered in the current step.
	OutputWh float64
}

// HeatSource delivers heat against a demand. Implementations are pure:
// identical inputs and state produce identical results.
type HeatSource interface {
	// CapacityWh is the maximum deliverable energy for one step.
	CapacityWh(durationHours float64) float64
	Deliver(in SourceInput, st SourceState) (SourceResult, SourceState)
}

// NewSource builds the model for a resolved heat source definition.
func NewSource(def registry.SourceDef) (HeatSource, error) {
	switch def.Type {
	case registry.SourceBoiler:
		return boiler{def: def}, nil
	case registry.SourceHeatPump:
		return heatPump{def: def}, nil
	case registry.SourceDirectElectric:
		return directElectric{def: def}, nil
	default:
		return nil, fmt.Errorf("heat source %s: unsupported type %s", def.Name, def.Type)
	}
}

func capWh(ratedW, durationHours float64) float64 {
	return ratedW * durationHours
}

func deliverable(in SourceInput, capacityWh float64) float64 {
	d := math.Min(in.DemandWh, capacityWh)
	return math.Min(d, in.AvailableWh)
}

// boiler burns fuel at a gross efficiency with a mild part-load penalty:
// effective efficiency falls by up to 10% toward zero load.
type boiler struct {
	def registry.SourceDef
}

func (b boiler) CapacityWh(durationHours float64) float64 {
	return capWh(b.def.RatedOutputW, durationHours)
}

func (b boiler) Deliver(in SourceInput, st SourceState) (SourceResult, SourceState) {
	capacity := b.CapacityWh(in.DurationHours)
	delivered := deliverable(in, capacity)
	if delivered <= 0 {
		return SourceResult{}, SourceState{OutputWh: st.OutputWh}
	}

	plr := delivered / capacity
	eff := b.def.Efficiency * (1 - 0.1*(1-plr))
	return SourceResult{
			DeliveredWh: delivered,
			FuelWh:      delivered / eff,
		}, SourceState{
			LoadRatio: plr,
			OutputWh:  st.OutputWh + delivered,
		}
}

// heatPump models COP as linear in the temperature lift from the outdoor
// source to the emitter flow (sink temperature plus the emitter delta).
// Delivered heat therefore depends on the zone temperature, which is the
// mutual dependency the convergence engine resolves.
type heatPump struct {
	def registry.SourceDef
}

func (h heatPump) CapacityWh(durationHours float64) float64 {
	return capWh(h.def.RatedOutputW, durationHours)
}

// COP at the given sink/source temperatures, clamped to [1, COPBase].
func (h heatPump) cop(sinkC, outdoorC float64) float64 {
	lift := (sinkC + h.def.EmitterDTC) - outdoorC
	if lift < 0 {
		lift = 0
	}
	cop := h.def.COPBase - h.def.COPPerKLift*lift
	if cop < 1 {
		return 1
	}
	return cop
}

func (h heatPump) Deliver(in SourceInput, st SourceState) (SourceResult, SourceState) {
	capacity := h.CapacityWh(in.DurationHours)
	delivered := deliverable(in, capacity)
	if delivered <= 0 {
		return SourceResult{}, SourceState{OutputWh: st.OutputWh}
	}

	cop := h.cop(in.SinkTempC, in.OutdoorTempC)
	return SourceResult{
			DeliveredWh: delivered,
			FuelWh:      delivered / cop,
		}, SourceState{
			LoadRatio: delivered / capacity,
			OutputWh:  st.OutputWh + delivered,
		}
}

// directElectric converts metered electricity to heat one-to-one.
type directElectric struct {
	def registry.SourceDef
}

func (d directElectric) CapacityWh(durationHours float64) float64 {
	return capWh(d.def.RatedOutputW, durationHours)
}

func (d directElectric) Deliver(in SourceInput, st SourceState) (SourceResult, SourceState) {
	capacity := d.CapacityWh(in.DurationHours)
	delivered := deliverable(in, capacity)
	if delivered <= 0 {
		return SourceResult{}, SourceState{OutputWh: st.OutputWh}
	}
	return SourceResult{
			DeliveredWh: delivered,
			FuelWh:      delivered,
		}, SourceState{
			LoadRatio: delivered / capacity,
			OutputWh:  st.OutputWh + delivered,
		}
}
