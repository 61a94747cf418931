package components

import (
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/registry"
)

// WhPerLitreKelvin is the volumetric heat capacity of water.
const WhPerLitreKelvin = 1.163

// ambientC is the assumed temperature of the space around the cylinder,
// used for standing loss.
const ambientC = 18.0

// CylinderState is a cylinder's stored-water temperature.
type CylinderState struct {
	TempC float64
}

// CylinderResult is one step's hot-water bookkeeping.
type CylinderResult struct {
	// DemandWh is the reheat energy requested from the heat source: draw-off
	// replacement plus standing loss plus any recovery toward delivery
	// temperature.
	DemandWh float64
	// DrawWh is the useful energy leaving in tapped water.
	DrawWh float64
	// LossWh is the standing loss over the step.
	LossWh float64
}

// Cylinder models a stored hot-water vessel: scheduled draw-offs replace hot
// water with cold feed, standing losses leak to the surrounding space, and a
// heat source reheats the store toward its delivery temperature.
type Cylinder struct {
	def registry.HotWaterDef
}

func NewCylinder(def registry.HotWaterDef) Cylinder {
	return Cylinder{def: def}
}

// InitialState starts the store at delivery temperature.
func (c Cylinder) InitialState() CylinderState {
	return CylinderState{TempC: c.def.DeliveryC}
}

// storeWhPerK is the store's heat capacity.
func (c Cylinder) storeWhPerK() float64 {
	return WhPerLitreKelvin * c.def.VolumeL
}

// DrawLitres is the scheduled draw volume for the step [start, start+step).
// A draw-off fires at the top of its hour, so it fires exactly once per day
// whatever the step duration; steps longer than an hour collect every draw
// whose hour they cover.
func (c Cylinder) DrawLitres(start time.Time, step time.Duration) float64 {
	h := start.Truncate(time.Hour)
	if h.Before(start) {
		h = h.Add(time.Hour)
	}

	var litres float64
	for end := start.Add(step); h.Before(end); h = h.Add(time.Hour) {
		for _, d := range c.def.DrawOffs {
			if d.Hour == h.Hour() {
				litres += d.Litres
			}
		}
	}
	return litres
}

// Demand computes the step's reheat demand from the previous committed
// cylinder state.
func (c Cylinder) Demand(st CylinderState, start time.Time, step time.Duration) CylinderResult {
	litres := c.DrawLitres(start, step)
	drawWh := WhPerLitreKelvin * litres * (c.def.DeliveryC - c.def.ColdFeedC)

	lossWh := c.def.StandingLossWK * (st.TempC - ambientC) * step.Hours()
	if lossWh < 0 {
		lossWh = 0
	}

	// Recovery of any deficit left from earlier shortfalls.
	recoveryWh := c.storeWhPerK() * (c.def.DeliveryC - st.TempC)
	if recoveryWh < 0 {
		recoveryWh = 0
	}

	return CylinderResult{
		DemandWh: drawWh + lossWh + recoveryWh,
		DrawWh:   drawWh,
		LossWh:   lossWh,
	}
}

// Advance applies the delivered reheat energy and returns the new state.
// Undelivered demand shows up as a store temperature deficit carried into
// the next step's demand.
func (c Cylinder) Advance(st CylinderState, res CylinderResult, deliveredWh float64) CylinderState {
	shortfallWh := res.DemandWh - deliveredWh
	next := c.def.DeliveryC - shortfallWh/c.storeWhPerK()
	if next < c.def.ColdFeedC {
		next = c.def.ColdFeedC
	}
	if next > c.def.DeliveryC {
		next = c.def.DeliveryC
	}
	return CylinderState{TempC: next}
}
