package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/results"
)

func sampleRun() Run {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	intervals := []results.Interval{
		{
			Index:           0,
			Time:            start,
			DurationMinutes: 60,
			OutdoorTempC:    5,
			Zones: []results.ZoneInterval{
				{Zone: "living", TempC: 20, SetpointC: 20, CallForHeat: true, DemandWh: 2250, DeliveredWh: 2250, InComfort: true},
			},
			HotWater: []results.HotWaterInterval{
				{Cylinder: "cylinder", StoreTempC: 52, DemandWh: 68, DeliveredWh: 68, LossWh: 68},
			},
			Supplies: []results.SupplyInterval{
				{Supply: "mains_gas", Fuel: "gas", FuelWh: 2500, Rate: 0.07, Cost: 0.175, MeterWh: 2500},
			},
			SolverIterations: 2,
			Converged:        true,
		},
		{
			Index:           1,
			Time:            start.Add(time.Hour),
			DurationMinutes: 60,
			OutdoorTempC:    5,
			Zones: []results.ZoneInterval{
				{Zone: "living", TempC: 20, SetpointC: 20, CallForHeat: true, DemandWh: 2250, DeliveredWh: 2250, InComfort: true},
			},
			Supplies: []results.SupplyInterval{
				{Supply: "mains_gas", Fuel: "gas", FuelWh: 2500, Rate: 0.07, Cost: 0.175, MeterWh: 5000},
			},
			SolverIterations: 2,
			Converged:        true,
		},
	}

	agg := results.NewAggregator("run-report")
	for _, iv := range intervals {
		agg.Add(iv)
	}
	return Run{Summary: agg.Summary(), Intervals: intervals}
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRun()))

	var got Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-report", got.Summary.RunID)
	require.Len(t, got.Intervals, 2)
	assert.InDelta(t, 2250, got.Intervals[0].Zones[0].DemandWh, 1e-9)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleRun()))

	var got Run
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-report", got.Summary.RunID)
	assert.Equal(t, 2, got.Summary.Steps)
}

func TestWriteCSV_Tables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSV(dir, sampleRun()))

	zones := readCSV(t, filepath.Join(dir, "zones.csv"))
	require.Len(t, zones, 3)
	assert.Equal(t, "zone", zones[0][2])
	assert.Equal(t, "living", zones[1][2])
	assert.Equal(t, "2250", zones[1][6])

	supplies := readCSV(t, filepath.Join(dir, "supplies.csv"))
	require.Len(t, supplies, 3)
	assert.Equal(t, "mains_gas", supplies[1][2])
	assert.Equal(t, "5000", supplies[2][8])

	// Only the first interval has a hot-water record; the table still lists it.
	hw := readCSV(t, filepath.Join(dir, "hot_water.csv"))
	require.Len(t, hw, 2)
	assert.Equal(t, "cylinder", hw[1][2])

	summary := readCSV(t, filepath.Join(dir, "summary.csv"))
	assert.Contains(t, summary, []string{"run_id", "run-report"})
	assert.Contains(t, summary, []string{"steps", "2"})
	assert.Contains(t, summary, []string{"fuel_kwh.mains_gas", "5"})
}

func TestWrite_FormatDispatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, []string{"csv", "json", "yaml"}, sampleRun()))

	for _, name := range []string{"zones.csv", "supplies.csv", "summary.csv", "run.json", "run.yaml"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(t.TempDir(), []string{"xml"}, sampleRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
