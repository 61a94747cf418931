package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
simulation:
  start: "2025-01-01T00:00:00Z"
  steps: 24
zones:
  - name: living
    heat_loss_w_per_k: 120
    heat_capacity_wh_per_k: 4000
    initial_temp_c: 18
    control: stat
    heat_source: boiler
controls:
  - name: stat
    type: thermostat
    setpoint_c: 20
    band_c: 0.5
    senses_zone: living
heat_sources:
  - name: boiler
    type: boiler
    rated_output_w: 12000
    efficiency: 0.9
    supply: mains_gas
supplies:
  - name: mains_gas
    fuel: gas
    tariff_series: gas_rate
series:
  - name: outdoor_temp
    kind: weather
    path: weather.csv
  - name: gas_rate
    kind: tariff
    path: gas.csv
    column: rate
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	doc, err := Load(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, 24, doc.Simulation.Steps)
	require.Len(t, doc.Zones, 1)
	assert.Equal(t, "living", doc.Zones[0].Name)
	assert.Equal(t, 120.0, doc.Zones[0].HeatLossWPerK)
	require.Len(t, doc.Controls, 1)
	assert.Equal(t, "thermostat", doc.Controls[0].Type)
	require.Len(t, doc.Series, 2)
	assert.Equal(t, "rate", doc.Series[1].Column)
}

func TestLoad_Defaults(t *testing.T) {
	doc, err := Load(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, 60, doc.Simulation.StepMinutes)
	assert.Equal(t, 0.01, doc.Solver.ToleranceC)
	assert.Equal(t, 30, doc.Solver.MaxIterations)
	assert.Equal(t, 1.0, doc.Solver.Damping)
	assert.Equal(t, []string{"csv", "json"}, doc.Output.Formats)
	assert.Equal(t, "value", doc.Series[0].Column)
	assert.Equal(t, 25.0, doc.HeatSources[0].EmitterDTC)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HEMSIM_SOLVER__MAX_ITERATIONS", "50")
	t.Setenv("HEMSIM_OUTPUT__DIR", "/tmp/out")

	doc, err := Load(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, 50, doc.Solver.MaxIterations)
	assert.Equal(t, "/tmp/out", doc.Output.Dir)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("scenario.toml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	doc, err := Load(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	assert.NoError(t, doc.Validate())

	bad := doc
	bad.Simulation.Steps = 0
	assert.Error(t, bad.Validate())

	bad = doc
	bad.Simulation.Start = "not a time"
	assert.Error(t, bad.Validate())

	bad = doc
	bad.Solver.Damping = 1.5
	assert.Error(t, bad.Validate())

	bad = doc
	bad.Output.Formats = []string{"xml"}
	assert.Error(t, bad.Validate())
}

func TestParseStart(t *testing.T) {
	for _, s := range []string{"2025-01-01T06:00:00Z", "2025-01-01 06:00", "2025-01-01"} {
		_, err := ParseStart(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseStart("06:00 on tuesday")
	assert.Error(t, err)
}
