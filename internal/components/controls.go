// Package components holds the physical collaborator models the orchestrator
// drives: controls, zone envelopes, heat sources and hot-water cylinders.
// Every model is a pure function over explicit input and state values; the
// orchestrator owns all state and passes it in and out.
package components

import (
	"fmt"
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/registry"
)

// ControlInput is everything a control may read: the current time, the
// sensed zone temperature from the previous committed state, and the output
// of its upstream control when one is wired.
type ControlInput struct {
	Time        time.Time
	Weekday     time.Weekday
	Holiday     bool
	ZoneTempC   float64
	Upstream    ControlOutput
	HasUpstream bool
}

// ControlOutput is a control's decision for one timestep.
type ControlOutput struct {
	SetpointC float64
	// Demand reports whether the control calls for heat at all. A schedule
	// outside its blocks and a latched-off thermostat both report false.
	Demand bool
}

// ControlState carries a control's persistent state between timesteps
// (currently just the thermostat latch). It lives in the simulation state,
// never inside the model.
type ControlState struct {
	Active bool
}

// Control evaluates one control for one timestep.
type Control interface {
	Evaluate(in ControlInput, st ControlState) (ControlOutput, ControlState)
}

// NewControl builds the model for a resolved control definition.
func NewControl(def registry.ControlDef) (Control, error) {
	switch def.Type {
	case registry.ControlSetpoint:
		return fixedSetpoint{setpointC: def.SetpointC}, nil
	case registry.ControlSchedule:
		return schedule{def: def}, nil
	case registry.ControlThermostat:
		return thermostat{def: def}, nil
	default:
		return nil, fmt.Errorf("control %s: unsupported type %s", def.Name, def.Type)
	}
}

// fixedSetpoint always calls for heat toward one setpoint.
type fixedSetpoint struct {
	setpointC float64
}

func (c fixedSetpoint) Evaluate(ControlInput, ControlState) (ControlOutput, ControlState) {
	return ControlOutput{SetpointC: c.setpointC, Demand: true}, ControlState{}
}

// schedule returns the setpoint of the day program block covering the
// current hour. Holiday programs win over weekend programs; outside any
// block the schedule does not call for heat.
type schedule struct {
	def registry.ControlDef
}

func (c schedule) Evaluate(in ControlInput, st ControlState) (ControlOutput, ControlState) {
	blocks := c.def.Weekday
	switch {
	case in.Holiday && len(c.def.Holiday) > 0:
		blocks = c.def.Holiday
	case (in.Weekday == time.Saturday || in.Weekday == time.Sunday) && len(c.def.Weekend) > 0:
		blocks = c.def.Weekend
	}

	hour := in.Time.Hour()
	for _, blk := range blocks {
		if hour >= blk.StartHour && hour < blk.EndHour {
			return ControlOutput{SetpointC: blk.SetpointC, Demand: true}, st
		}
	}
	return ControlOutput{}, st
}

// thermostat latches heating on when the sensed temperature falls below
// setpoint - band and off once it exceeds setpoint + band. The latch is the
// only piece of control state in the system.
type thermostat struct {
	def registry.ControlDef
}

func (c thermostat) Evaluate(in ControlInput, st ControlState) (ControlOutput, ControlState) {
	setpoint := c.def.SetpointC
	if in.HasUpstream {
		if !in.Upstream.Demand {
			// Upstream schedule is off: drop to setback, or fully off when
			// no setback is configured.
			if c.def.SetbackC <= 0 {
				return ControlOutput{}, ControlState{Active: false}
			}
			setpoint = c.def.SetbackC
		} else {
			setpoint = in.Upstream.SetpointC
		}
	}

	band := c.def.BandC
	active := st.Active
	if in.ZoneTempC < setpoint-band {
		active = true
	} else if in.ZoneTempC > setpoint+band {
		active = false
	}

	out := ControlOutput{SetpointC: setpoint, Demand: active}
	return out, ControlState{Active: active}
}
