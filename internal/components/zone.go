package components

import (
	"github.com/brian-jones-mt/epb-home-energy-model/internal/registry"
)

// ZoneConditions are the external conditions a zone model sees for one step.
type ZoneConditions struct {
	OutdoorTempC  float64
	SolarWPerM2   float64
	DurationHours float64
}

// Zone is the lumped-capacitance envelope model: one thermal mass per zone,
// fabric loss proportional to the indoor/outdoor difference and solar gain
// through a fixed aperture.
type Zone struct {
	def registry.ZoneDef
}

func NewZone(def registry.ZoneDef) Zone {
	return Zone{def: def}
}

// SolarGainWh is the solar gain collected over the step.
func (z Zone) SolarGainWh(cond ZoneConditions) float64 {
	return z.def.SolarApertureM2 * cond.SolarWPerM2 * cond.DurationHours
}

// LossWh is the fabric heat loss over the step at the given indoor
// temperature. Negative when outdoors is warmer.
func (z Zone) LossWh(indoorC float64, cond ZoneConditions) float64 {
	return z.def.HeatLossWK * (indoorC - cond.OutdoorTempC) * cond.DurationHours
}

// RequiredHeatWh is the energy needed to end the step at the setpoint: the
// capacity term to lift the mass plus the fabric loss over the step, less
// solar gain. Clamped at zero; the model never demands cooling. Delivering
// exactly this much makes NextTemp land on the setpoint.
func (z Zone) RequiredHeatWh(prevC, setpointC float64, cond ZoneConditions) float64 {
	lift := z.def.HeatCapacityWhK * (setpointC - prevC)
	req := lift + z.LossWh(prevC, cond) - z.SolarGainWh(cond)
	if req < 0 {
		return 0
	}
	return req
}

// NextTemp advances the zone temperature given the heat actually delivered.
// Energy balance over the step: C·(T' − T) = delivered + solar − loss(T).
func (z Zone) NextTemp(prevC, deliveredWh float64, cond ZoneConditions) float64 {
	net := deliveredWh + z.SolarGainWh(cond) - z.LossWh(prevC, cond)
	return prevC + net/z.def.HeatCapacityWhK
}

// InComfortBand reports whether a temperature lies inside the configured
// comfort band.
func (z Zone) InComfortBand(tempC float64) bool {
	return tempC >= z.def.ComfortMinC && tempC <= z.def.ComfortMaxC
}
