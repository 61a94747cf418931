// Package registry turns the named component definitions of a scenario
// document into a validated, typed handle graph with a deterministic
// evaluation order. Names are resolved exactly once, here; everything
// downstream works with handles.
//
// Validation is exhaustive: Build collects every violation it can find and
// reports them together, so one configuration pass surfaces all problems.
package registry

import (
	"fmt"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/config"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
)

// ControlType discriminates control definitions.
type ControlType int

const (
	ControlUnknown ControlType = iota
	ControlSchedule
	ControlThermostat
	ControlSetpoint
)

func (t ControlType) String() string {
	switch t {
	case ControlSchedule:
		return "schedule"
	case ControlThermostat:
		return "thermostat"
	case ControlSetpoint:
		return "setpoint"
	default:
		return "unknown"
	}
}

func parseControlType(s string) (ControlType, bool) {
	switch s {
	case "schedule":
		return ControlSchedule, true
	case "thermostat":
		return ControlThermostat, true
	case "setpoint":
		return ControlSetpoint, true
	default:
		return ControlUnknown, false
	}
}

// SourceType discriminates heat source definitions.
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceBoiler
	SourceHeatPump
	SourceDirectElectric
)

func (t SourceType) String() string {
	switch t {
	case SourceBoiler:
		return "boiler"
	case SourceHeatPump:
		return "heat_pump"
	case SourceDirectElectric:
		return "direct_electric"
	default:
		return "unknown"
	}
}

func parseSourceType(s string) (SourceType, bool) {
	switch s {
	case "boiler":
		return SourceBoiler, true
	case "heat_pump":
		return SourceHeatPump, true
	case "direct_electric":
		return SourceDirectElectric, true
	default:
		return SourceUnknown, false
	}
}

// Block is one resolved setpoint block of a day program.
type Block struct {
	StartHour int
	EndHour   int
	SetpointC float64
}

// DrawOff is one resolved hot-water draw.
type DrawOff struct {
	Hour   int
	Litres float64
}

// ZoneDef is a resolved thermal zone. Control and Source are invalid handles
// for an unheated (free-running) zone.
type ZoneDef struct {
	Name            string
	HeatLossWK      float64
	HeatCapacityWhK float64
	SolarApertureM2 float64
	InitialTempC    float64
	ComfortMinC     float64
	ComfortMaxC     float64
	Control         model.Handle
	Source          model.Handle
}

// Heated reports whether the zone is served by a control/source pair.
func (z ZoneDef) Heated() bool { return z.Source.Valid() }

// ControlDef is a resolved control.
type ControlDef struct {
	Name      string
	Type      ControlType
	SetpointC float64
	BandC     float64
	SetbackC  float64

	// SensesZone is the zone whose temperature a thermostat reads. This is a
	// deliberate back-reference: the zone/control sensing pair is resolved at
	// runtime through the previous committed state, so it is not a definition
	// cycle.
	SensesZone model.Handle

	// Input is an upstream control supplying the setpoint. Input edges must
	// be acyclic; they define the control evaluation order.
	Input model.Handle

	Weekday []Block
	Weekend []Block
	Holiday []Block
}

// SourceDef is a resolved heat source.
type SourceDef struct {
	Name         string
	Type         SourceType
	RatedOutputW float64
	Efficiency   float64
	COPBase      float64
	COPPerKLift  float64
	EmitterDTC   float64
	Supply       model.Handle
}

// HotWaterDef is a resolved hot-water cylinder.
type HotWaterDef struct {
	Name           string
	VolumeL        float64
	StandingLossWK float64
	ColdFeedC      float64
	DeliveryC      float64
	Source         model.Handle
	DrawOffs       []DrawOff
}

// SupplyDef is a resolved metering/cost account.
type SupplyDef struct {
	Name              string
	Fuel              string
	Tariff            model.SeriesID
	StandingChargeDay float64
}

// Graph is the resolved component graph. Built once by Build, immutable for
// the lifetime of a run.
type Graph struct {
	zones    []ZoneDef
	controls []ControlDef
	sources  []SourceDef
	hotWater []HotWaterDef
	supplies []SupplyDef

	byName map[string]model.Handle
	order  []model.Handle
}

// Zones returns all zone definitions in definition order.
func (g *Graph) Zones() []ZoneDef { return g.zones }

// Controls returns all control definitions in definition order.
func (g *Graph) Controls() []ControlDef { return g.controls }

// Sources returns all heat source definitions in definition order.
func (g *Graph) Sources() []SourceDef { return g.sources }

// HotWater returns all cylinder definitions in definition order.
func (g *Graph) HotWater() []HotWaterDef { return g.hotWater }

// Supplies returns all supply definitions in definition order.
func (g *Graph) Supplies() []SupplyDef { return g.supplies }

// Zone dereferences a zone handle.
func (g *Graph) Zone(h model.Handle) ZoneDef { return g.zones[h.Index()] }

// Control dereferences a control handle.
func (g *Graph) Control(h model.Handle) ControlDef { return g.controls[h.Index()] }

// Source dereferences a heat source handle.
func (g *Graph) Source(h model.Handle) SourceDef { return g.sources[h.Index()] }

// Cylinder dereferences a hot-water handle.
func (g *Graph) Cylinder(h model.Handle) HotWaterDef { return g.hotWater[h.Index()] }

// Supply dereferences a supply handle.
func (g *Graph) SupplyAt(h model.Handle) SupplyDef { return g.supplies[h.Index()] }

// Lookup resolves a component name to its handle.
func (g *Graph) Lookup(name string) (model.Handle, bool) {
	h, ok := g.byName[name]
	return h, ok
}

// Name maps a handle back to the user-chosen component name, for diagnostics.
func (g *Graph) Name(h model.Handle) string {
	switch h.Kind() {
	case model.KindZone:
		return g.zones[h.Index()].Name
	case model.KindControl:
		return g.controls[h.Index()].Name
	case model.KindHeatSource:
		return g.sources[h.Index()].Name
	case model.KindHotWater:
		return g.hotWater[h.Index()].Name
	case model.KindSupply:
		return g.supplies[h.Index()].Name
	default:
		return ""
	}
}

// Order is the evaluation order: controls (dependency-sorted), then zones,
// then hot water, then heat sources, then supplies. Controls before demand,
// demand before supply dispatch, supply dispatch before metering.
func (g *Graph) Order() []model.Handle { return g.order }

// RequiredSeries lists every condition series the graph needs for a run.
func (g *Graph) RequiredSeries() []model.SeriesID {
	var ids []model.SeriesID
	if len(g.zones) > 0 {
		ids = append(ids, model.SeriesOutdoorTemp)
	}
	for _, z := range g.zones {
		if z.SolarApertureM2 > 0 {
			ids = append(ids, model.SeriesSolarIrradiance)
			break
		}
	}
	for _, s := range g.supplies {
		if s.Tariff != "" {
			ids = append(ids, s.Tariff)
		}
	}
	return ids
}

// Build resolves and validates the component definitions of doc. On any
// violation it returns a *ValidationError carrying every problem found;
// the returned graph is nil in that case.
func Build(doc config.Document) (*Graph, error) {
	b := &builder{
		doc:    doc,
		byName: make(map[string]model.Handle),
	}

	b.index()
	b.resolveZones()
	b.resolveControls()
	b.resolveSources()
	b.resolveHotWater()
	b.resolveSupplies()
	b.checkSeries()
	b.checkControlCycles()

	if len(b.violations) > 0 {
		return nil, &ValidationError{Violations: b.violations}
	}

	g := &Graph{
		zones:    b.zones,
		controls: b.controls,
		sources:  b.sources,
		hotWater: b.hotWater,
		supplies: b.supplies,
		byName:   b.byName,
	}
	g.order = buildOrder(g)
	return g, nil
}

type builder struct {
	doc        config.Document
	byName     map[string]model.Handle
	violations []Violation

	zones    []ZoneDef
	controls []ControlDef
	sources  []SourceDef
	hotWater []HotWaterDef
	supplies []SupplyDef
}

func (b *builder) addViolation(component, field, format string, args ...any) {
	b.violations = append(b.violations, Violation{
		Component: component,
		Field:     field,
		Message:   fmt.Sprintf(format, args...),
	})
}

// index assigns a handle to every named definition up front, so forward
// references resolve regardless of declaration order. Names share one
// namespace across all kinds.
func (b *builder) index() {
	claim := func(name string, kind model.Kind, i int) {
		if name == "" {
			b.addViolation(fmt.Sprintf("%s[%d]", kind, i), "name", "component name is required")
			return
		}
		if prev, dup := b.byName[name]; dup {
			b.addViolation(name, "name", "duplicate component name (already defined as %s)", prev.Kind())
			return
		}
		b.byName[name] = model.NewHandle(kind, i)
	}

	for i, z := range b.doc.Zones {
		claim(z.Name, model.KindZone, i)
	}
	for i, c := range b.doc.Controls {
		claim(c.Name, model.KindControl, i)
	}
	for i, s := range b.doc.HeatSources {
		claim(s.Name, model.KindHeatSource, i)
	}
	for i, hw := range b.doc.HotWater {
		claim(hw.Name, model.KindHotWater, i)
	}
	for i, s := range b.doc.Supplies {
		claim(s.Name, model.KindSupply, i)
	}
}

// resolveRef resolves a name to a handle of the wanted kind, recording a
// violation otherwise. Empty names return an invalid handle without
// complaint; callers decide whether the reference is required.
func (b *builder) resolveRef(component, field, name string, want model.Kind) model.Handle {
	if name == "" {
		return model.Handle{}
	}
	h, ok := b.byName[name]
	if !ok {
		b.addViolation(component, field, "references unknown component %q", name)
		return model.Handle{}
	}
	if h.Kind() != want {
		b.addViolation(component, field, "%q is a %s, expected a %s", name, h.Kind(), want)
		return model.Handle{}
	}
	return h
}

func (b *builder) resolveZones() {
	for _, z := range b.doc.Zones {
		def := ZoneDef{
			Name:            z.Name,
			HeatLossWK:      z.HeatLossWPerK,
			HeatCapacityWhK: z.HeatCapacityWhK,
			SolarApertureM2: z.SolarApertureM2,
			InitialTempC:    z.InitialTempC,
			ComfortMinC:     z.ComfortMinC,
			ComfortMaxC:     z.ComfortMaxC,
		}
		if def.ComfortMinC == 0 && def.ComfortMaxC == 0 {
			def.ComfortMinC, def.ComfortMaxC = 18, 26
		}

		if z.HeatLossWPerK <= 0 {
			b.addViolation(z.Name, "heat_loss_w_per_k", "must be positive, got %g", z.HeatLossWPerK)
		}
		if z.HeatCapacityWhK <= 0 {
			b.addViolation(z.Name, "heat_capacity_wh_per_k", "must be positive, got %g", z.HeatCapacityWhK)
		}
		if z.SolarApertureM2 < 0 {
			b.addViolation(z.Name, "solar_aperture_m2", "must not be negative, got %g", z.SolarApertureM2)
		}
		if z.InitialTempC < -30 || z.InitialTempC > 50 {
			b.addViolation(z.Name, "initial_temp_c", "out of range [-30, 50], got %g", z.InitialTempC)
		}
		if def.ComfortMinC >= def.ComfortMaxC {
			b.addViolation(z.Name, "comfort_min_c", "comfort band is empty (%g >= %g)", def.ComfortMinC, def.ComfortMaxC)
		}

		// A zone is either fully heated (control + source) or free-running.
		switch {
		case z.Control == "" && z.HeatSource == "":
			// free-running
		case z.Control == "":
			b.addViolation(z.Name, "control", "heated zone needs a control")
		case z.HeatSource == "":
			b.addViolation(z.Name, "heat_source", "heated zone needs a heat source")
		default:
			def.Control = b.resolveRef(z.Name, "control", z.Control, model.KindControl)
			def.Source = b.resolveRef(z.Name, "heat_source", z.HeatSource, model.KindHeatSource)
		}

		b.zones = append(b.zones, def)
	}
}

func (b *builder) resolveControls() {
	for _, c := range b.doc.Controls {
		typ, ok := parseControlType(c.Type)
		if !ok {
			b.addViolation(c.Name, "type", "unknown control type %q", c.Type)
		}

		def := ControlDef{
			Name:      c.Name,
			Type:      typ,
			SetpointC: c.SetpointC,
			BandC:     c.BandC,
			SetbackC:  c.SetbackC,
			Weekday:   resolveBlocks(b, c.Name, "weekday", c.Weekday),
			Weekend:   resolveBlocks(b, c.Name, "weekend", c.Weekend),
			Holiday:   resolveBlocks(b, c.Name, "holiday", c.Holiday),
		}

		def.SensesZone = b.resolveRef(c.Name, "senses_zone", c.SensesZone, model.KindZone)
		def.Input = b.resolveRef(c.Name, "input", c.Input, model.KindControl)

		switch typ {
		case ControlThermostat:
			if c.SensesZone == "" {
				b.addViolation(c.Name, "senses_zone", "thermostat needs a sensed zone")
			}
			if c.BandC < 0 {
				b.addViolation(c.Name, "band_c", "must not be negative, got %g", c.BandC)
			}
			if c.Input == "" && !setpointInRange(c.SetpointC) {
				b.addViolation(c.Name, "setpoint_c", "out of range [-20, 50], got %g", c.SetpointC)
			}
		case ControlSetpoint:
			if !setpointInRange(c.SetpointC) {
				b.addViolation(c.Name, "setpoint_c", "out of range [-20, 50], got %g", c.SetpointC)
			}
		case ControlSchedule:
			if len(c.Weekday) == 0 {
				b.addViolation(c.Name, "weekday", "schedule needs at least one weekday block")
			}
		}

		b.controls = append(b.controls, def)
	}
}

func setpointInRange(sp float64) bool { return sp >= -20 && sp <= 50 }

func resolveBlocks(b *builder, component, field string, blocks []config.ScheduleBlock) []Block {
	out := make([]Block, 0, len(blocks))
	lastEnd := 0
	for i, blk := range blocks {
		if blk.StartHour < 0 || blk.EndHour > 24 || blk.StartHour >= blk.EndHour {
			b.addViolation(component, field, "block %d: invalid hours [%d, %d)", i, blk.StartHour, blk.EndHour)
		}
		if blk.StartHour < lastEnd {
			b.addViolation(component, field, "block %d overlaps the previous block", i)
		}
		lastEnd = blk.EndHour
		if !setpointInRange(blk.SetpointC) {
			b.addViolation(component, field, "block %d: setpoint out of range [-20, 50], got %g", i, blk.SetpointC)
		}
		out = append(out, Block{StartHour: blk.StartHour, EndHour: blk.EndHour, SetpointC: blk.SetpointC})
	}
	return out
}

func (b *builder) resolveSources() {
	for _, s := range b.doc.HeatSources {
		typ, ok := parseSourceType(s.Type)
		if !ok {
			b.addViolation(s.Name, "type", "unknown heat source type %q", s.Type)
		}

		def := SourceDef{
			Name:         s.Name,
			Type:         typ,
			RatedOutputW: s.RatedOutputW,
			Efficiency:   s.Efficiency,
			COPBase:      s.COPBase,
			COPPerKLift:  s.COPPerKLift,
			EmitterDTC:   s.EmitterDTC,
		}

		if s.RatedOutputW <= 0 {
			b.addViolation(s.Name, "rated_output_w", "must be positive, got %g", s.RatedOutputW)
		}
		switch typ {
		case SourceBoiler:
			if s.Efficiency <= 0 || s.Efficiency > 1 {
				b.addViolation(s.Name, "efficiency", "must be in (0, 1], got %g", s.Efficiency)
			}
		case SourceHeatPump:
			if s.COPBase < 1 {
				b.addViolation(s.Name, "cop_base", "must be at least 1, got %g", s.COPBase)
			}
			if s.COPPerKLift < 0 {
				b.addViolation(s.Name, "cop_per_k_lift", "must not be negative, got %g", s.COPPerKLift)
			}
		}

		if s.Supply == "" {
			b.addViolation(s.Name, "supply", "heat source needs an energy supply")
		} else {
			def.Supply = b.resolveRef(s.Name, "supply", s.Supply, model.KindSupply)
		}

		b.sources = append(b.sources, def)
	}
}

func (b *builder) resolveHotWater() {
	for _, hw := range b.doc.HotWater {
		def := HotWaterDef{
			Name:           hw.Name,
			VolumeL:        hw.VolumeL,
			StandingLossWK: hw.StandingLossWK,
			ColdFeedC:      hw.ColdFeedC,
			DeliveryC:      hw.DeliveryC,
		}

		if hw.VolumeL <= 0 {
			b.addViolation(hw.Name, "volume_l", "must be positive, got %g", hw.VolumeL)
		}
		if hw.StandingLossWK < 0 {
			b.addViolation(hw.Name, "standing_loss_w_per_k", "must not be negative, got %g", hw.StandingLossWK)
		}
		if hw.DeliveryC <= hw.ColdFeedC {
			b.addViolation(hw.Name, "delivery_c", "must exceed cold feed (%g <= %g)", hw.DeliveryC, hw.ColdFeedC)
		}
		if hw.HeatSource == "" {
			b.addViolation(hw.Name, "heat_source", "hot water needs a heat source")
		} else {
			def.Source = b.resolveRef(hw.Name, "heat_source", hw.HeatSource, model.KindHeatSource)
		}
		for i, d := range hw.DrawOffs {
			if d.Hour < 0 || d.Hour > 23 {
				b.addViolation(hw.Name, "draw_offs", "draw %d: hour out of range [0, 23], got %d", i, d.Hour)
			}
			if d.Litres < 0 {
				b.addViolation(hw.Name, "draw_offs", "draw %d: litres must not be negative, got %g", i, d.Litres)
			}
			def.DrawOffs = append(def.DrawOffs, DrawOff{Hour: d.Hour, Litres: d.Litres})
		}

		b.hotWater = append(b.hotWater, def)
	}
}

func (b *builder) resolveSupplies() {
	for _, s := range b.doc.Supplies {
		def := SupplyDef{
			Name:              s.Name,
			Fuel:              s.Fuel,
			StandingChargeDay: s.StandingChargeDay,
		}

		if s.Fuel == "" {
			b.addViolation(s.Name, "fuel", "supply needs a fuel")
		}
		if s.StandingChargeDay < 0 {
			b.addViolation(s.Name, "standing_charge_per_day", "must not be negative, got %g", s.StandingChargeDay)
		}
		if s.TariffSeries != "" {
			if !b.seriesDefined(s.TariffSeries, "tariff") {
				b.addViolation(s.Name, "tariff_series", "references undefined tariff series %q", s.TariffSeries)
			}
			def.Tariff = model.TariffSeries(s.Name)
		}

		b.supplies = append(b.supplies, def)
	}
}

func (b *builder) seriesDefined(name, kind string) bool {
	for _, s := range b.doc.Series {
		if s.Name == name && s.Kind == kind {
			return true
		}
	}
	return false
}

// checkSeries verifies the weather series the zones need are declared in the
// document. Coverage of the simulated horizon is the clock's job; here we
// only catch structurally missing declarations.
func (b *builder) checkSeries() {
	if len(b.doc.Zones) > 0 && !b.seriesDefined("outdoor_temp", "weather") {
		b.addViolation("series", "outdoor_temp", "no weather series named \"outdoor_temp\" defined")
	}
	for _, z := range b.doc.Zones {
		if z.SolarApertureM2 > 0 && !b.seriesDefined("solar", "weather") {
			b.addViolation("series", "solar", "zone %q has solar aperture but no weather series named \"solar\" defined", z.Name)
			break
		}
	}
}

// checkControlCycles rejects cycles in control input edges. Sensing
// back-references (thermostat → zone) are a different edge class and are
// exempt; they resolve through the previous committed state at runtime.
func (b *builder) checkControlCycles() {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(b.controls))

	var visit func(i int) bool
	visit = func(i int) bool {
		switch color[i] {
		case grey:
			return true
		case black:
			return false
		}
		color[i] = grey
		if in := b.controls[i].Input; in.Valid() {
			if visit(in.Index()) {
				color[i] = black
				return true
			}
		}
		color[i] = black
		return false
	}

	for i := range b.controls {
		if color[i] == white && visit(i) {
			b.addViolation(b.controls[i].Name, "input", "control input chain forms a cycle")
		}
	}
}

// buildOrder computes the evaluation order. Controls are topologically
// sorted along input edges (upstream first, ties broken by definition
// order); the remaining stages have a fixed kind order.
func buildOrder(g *Graph) []model.Handle {
	order := make([]model.Handle, 0,
		len(g.controls)+len(g.zones)+len(g.hotWater)+len(g.sources)+len(g.supplies))

	visited := make([]bool, len(g.controls))
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		if in := g.controls[i].Input; in.Valid() {
			visit(in.Index())
		}
		order = append(order, model.NewHandle(model.KindControl, i))
	}
	for i := range g.controls {
		visit(i)
	}

	for i := range g.zones {
		order = append(order, model.NewHandle(model.KindZone, i))
	}
	for i := range g.hotWater {
		order = append(order, model.NewHandle(model.KindHotWater, i))
	}
	for i := range g.sources {
		order = append(order, model.NewHandle(model.KindHeatSource, i))
	}
	for i := range g.supplies {
		order = append(order, model.NewHandle(model.KindSupply, i))
	}
	return order
}
