// Package config defines the scenario document: every component definition,
// the clock and solver settings, and references to the companion condition
// series files. Loading is layered: defaults, then the file (YAML or JSON by
// extension), then HEMSIM_* environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Document is the full scenario configuration.
type Document struct {
	Simulation  Simulation   `koanf:"simulation"`
	Solver      Solver       `koanf:"solver"`
	Zones       []Zone       `koanf:"zones"`
	Controls    []Control    `koanf:"controls"`
	HeatSources []HeatSource `koanf:"heat_sources"`
	HotWater    []HotWater   `koanf:"hot_water"`
	Supplies    []Supply     `koanf:"supplies"`
	Series      []Series     `koanf:"series"`
	Output      Output       `koanf:"output"`
}

// Simulation configures the clock.
type Simulation struct {
	Start       string   `koanf:"start"`        // RFC3339 or "2006-01-02 15:04"
	Steps       int      `koanf:"steps"`        // number of timesteps
	StepMinutes int      `koanf:"step_minutes"` // duration of one timestep
	Holidays    []string `koanf:"holidays"`     // "2006-01-02" dates
}

// Solver configures the fixed-point convergence engine.
type Solver struct {
	ToleranceC    float64 `koanf:"tolerance_c"`
	MaxIterations int     `koanf:"max_iterations"`
	Damping       float64 `koanf:"damping"`
	Strict        bool    `koanf:"strict"`
}

// Zone is one thermal space.
type Zone struct {
	Name            string  `koanf:"name"`
	HeatLossWPerK   float64 `koanf:"heat_loss_w_per_k"`
	HeatCapacityWhK float64 `koanf:"heat_capacity_wh_per_k"`
	SolarApertureM2 float64 `koanf:"solar_aperture_m2"`
	InitialTempC    float64 `koanf:"initial_temp_c"`
	ComfortMinC     float64 `koanf:"comfort_min_c"`
	ComfortMaxC     float64 `koanf:"comfort_max_c"`
	Control         string  `koanf:"control"`
	HeatSource      string  `koanf:"heat_source"`
}

// ScheduleBlock is one setpoint block of a day program. Hours are whole
// hours of day, [Start, End).
type ScheduleBlock struct {
	StartHour int     `koanf:"start_hour"`
	EndHour   int     `koanf:"end_hour"`
	SetpointC float64 `koanf:"setpoint_c"`
}

// Control is a schedule, thermostat or fixed setpoint.
type Control struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"` // "schedule" | "thermostat" | "setpoint"

	// setpoint
	SetpointC float64 `koanf:"setpoint_c"`

	// thermostat
	BandC      float64 `koanf:"band_c"`      // hysteresis half-band
	SensesZone string  `koanf:"senses_zone"` // zone whose temperature is sensed
	Input      string  `koanf:"input"`       // upstream control supplying the setpoint
	SetbackC   float64 `koanf:"setback_c"`   // setpoint used when upstream has no block

	// schedule
	Weekday []ScheduleBlock `koanf:"weekday"`
	Weekend []ScheduleBlock `koanf:"weekend"`
	Holiday []ScheduleBlock `koanf:"holiday"`
}

// HeatSource is one heat generator.
type HeatSource struct {
	Name         string  `koanf:"name"`
	Type         string  `koanf:"type"` // "boiler" | "heat_pump" | "direct_electric"
	RatedOutputW float64 `koanf:"rated_output_w"`
	Efficiency   float64 `koanf:"efficiency"`     // boiler gross efficiency
	COPBase      float64 `koanf:"cop_base"`       // heat pump COP at zero lift
	COPPerKLift  float64 `koanf:"cop_per_k_lift"` // COP lost per K of lift
	EmitterDTC   float64 `koanf:"emitter_dt_c"`   // flow temp above zone temp
	Supply       string  `koanf:"supply"`
}

// DrawOff is one scheduled hot-water draw.
type DrawOff struct {
	Hour   int     `koanf:"hour"`
	Litres float64 `koanf:"litres"`
}

// HotWater is a storage cylinder with a draw-off schedule.
type HotWater struct {
	Name           string    `koanf:"name"`
	VolumeL        float64   `koanf:"volume_l"`
	StandingLossWK float64   `koanf:"standing_loss_w_per_k"`
	ColdFeedC      float64   `koanf:"cold_feed_c"`
	DeliveryC      float64   `koanf:"delivery_c"`
	HeatSource     string    `koanf:"heat_source"`
	DrawOffs       []DrawOff `koanf:"draw_offs"`
}

// Supply is one fuel/electricity metering and cost account.
type Supply struct {
	Name              string  `koanf:"name"`
	Fuel              string  `koanf:"fuel"` // "electricity" | "gas" | ...
	TariffSeries      string  `koanf:"tariff_series"`
	StandingChargeDay float64 `koanf:"standing_charge_per_day"`
}

// Series points at one companion condition-series file.
type Series struct {
	Name   string `koanf:"name"` // "outdoor_temp" | "solar" | tariff series name
	Kind   string `koanf:"kind"` // "weather" | "tariff"
	Path   string `koanf:"path"`
	Column string `koanf:"column"` // CSV value column; defaults to "value"
}

// Output selects report formats and destination.
type Output struct {
	Dir     string   `koanf:"dir"`
	Formats []string `koanf:"formats"` // any of "csv", "json", "yaml"
}

const envPrefix = "HEMSIM_"

// Load reads the scenario document at path, applying defaults and HEMSIM_*
// environment overrides. Nested keys use a double underscore in the
// environment: HEMSIM_SOLVER__MAX_ITERATIONS=50.
func Load(path string) (Document, error) {
	var doc Document

	k := koanf.New(".")

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return doc, fmt.Errorf("unsupported scenario extension %q", ext)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return doc, fmt.Errorf("read scenario: %w", err)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			key = strings.ToLower(key)
			key = strings.ReplaceAll(key, "__", ".")
			return key, value
		},
	}), nil)
	if err != nil {
		return doc, fmt.Errorf("env overrides: %w", err)
	}

	if err := k.Unmarshal("", &doc); err != nil {
		return doc, fmt.Errorf("parse scenario: %w", err)
	}

	applyDefaults(&doc)
	return doc, nil
}

func applyDefaults(doc *Document) {
	if doc.Simulation.StepMinutes == 0 {
		doc.Simulation.StepMinutes = 60
	}
	if doc.Solver.ToleranceC == 0 {
		doc.Solver.ToleranceC = 0.01
	}
	if doc.Solver.MaxIterations == 0 {
		doc.Solver.MaxIterations = 30
	}
	if doc.Solver.Damping == 0 {
		doc.Solver.Damping = 1.0
	}
	if doc.Output.Dir == "" {
		doc.Output.Dir = "output"
	}
	if len(doc.Output.Formats) == 0 {
		doc.Output.Formats = []string{"csv", "json"}
	}
	for i := range doc.Series {
		if doc.Series[i].Column == "" {
			doc.Series[i].Column = "value"
		}
	}
	for i := range doc.HeatSources {
		if doc.HeatSources[i].EmitterDTC == 0 {
			doc.HeatSources[i].EmitterDTC = 25
		}
	}
}

// Validate checks the structural blocks that do not belong to any component:
// the clock, solver and output settings. Component-level problems are the
// registry's job and are reported exhaustively there.
func (d Document) Validate() error {
	if d.Simulation.Start == "" {
		return fmt.Errorf("simulation.start is required")
	}
	if _, err := ParseStart(d.Simulation.Start); err != nil {
		return err
	}
	if d.Simulation.Steps <= 0 {
		return fmt.Errorf("simulation.steps must be positive, got %d", d.Simulation.Steps)
	}
	if d.Simulation.StepMinutes <= 0 {
		return fmt.Errorf("simulation.step_minutes must be positive, got %d", d.Simulation.StepMinutes)
	}
	for _, h := range d.Simulation.Holidays {
		if _, err := ParseDate(h); err != nil {
			return fmt.Errorf("simulation.holidays: %w", err)
		}
	}
	if d.Solver.ToleranceC <= 0 {
		return fmt.Errorf("solver.tolerance_c must be positive")
	}
	if d.Solver.MaxIterations <= 0 {
		return fmt.Errorf("solver.max_iterations must be positive")
	}
	if d.Solver.Damping <= 0 || d.Solver.Damping > 1 {
		return fmt.Errorf("solver.damping must be in (0, 1]")
	}
	for _, f := range d.Output.Formats {
		switch f {
		case "csv", "json", "yaml":
		default:
			return fmt.Errorf("output.formats: unsupported format %q", f)
		}
	}
	return nil
}
