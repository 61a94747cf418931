// Package report writes run results to files. Writers are pure projections
// of the results model: every value they emit comes straight from an
// interval record or the summary, never from a recomputation, so all
// formats agree with each other.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/results"
)

// Run bundles everything one run produced.
type Run struct {
	Summary   results.Summary    `json:"summary" yaml:"summary"`
	Intervals []results.Interval `json:"intervals" yaml:"intervals"`
}

// Write emits the run in every requested format under dir, creating the
// directory if needed. Known formats are "csv", "json" and "yaml".
func Write(dir string, formats []string, run Run) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for _, format := range formats {
		var err error
		switch format {
		case "csv":
			err = WriteCSV(dir, run)
		case "json":
			err = writeFile(filepath.Join(dir, "run.json"), run, WriteJSON)
		case "yaml":
			err = writeFile(filepath.Join(dir, "run.yaml"), run, WriteYAML)
		default:
			err = fmt.Errorf("report: unknown format %q", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, run Run, write func(io.Writer, Run) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := write(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON emits the full run as one indented JSON document.
func WriteJSON(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteYAML emits the full run as one YAML document.
func WriteYAML(w io.Writer, run Run) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(run); err != nil {
		enc.Close()
		return fmt.Errorf("report: encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteCSV emits the run as flat CSV tables under dir: zones.csv,
// supplies.csv, hot_water.csv (when cylinders exist) and summary.csv.
func WriteCSV(dir string, run Run) error {
	if err := writeCSVFile(filepath.Join(dir, "zones.csv"), zoneRows(run.Intervals)); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(dir, "supplies.csv"), supplyRows(run.Intervals)); err != nil {
		return err
	}
	if rows := hotWaterRows(run.Intervals); len(rows) > 1 {
		if err := writeCSVFile(filepath.Join(dir, "hot_water.csv"), rows); err != nil {
			return err
		}
	}
	return writeCSVFile(filepath.Join(dir, "summary.csv"), summaryRows(run.Summary))
}

func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func zoneRows(intervals []results.Interval) [][]string {
	rows := [][]string{{
		"index", "time", "zone", "temp_c", "setpoint_c", "call_for_heat",
		"demand_wh", "delivered_wh", "solar_gain_wh", "in_comfort",
	}}
	for _, iv := range intervals {
		for _, z := range iv.Zones {
			rows = append(rows, []string{
				strconv.Itoa(iv.Index),
				iv.Time.Format(time.RFC3339),
				z.Zone,
				ftoa(z.TempC),
				ftoa(z.SetpointC),
				strconv.FormatBool(z.CallForHeat),
				ftoa(z.DemandWh),
				ftoa(z.DeliveredWh),
				ftoa(z.SolarGainWh),
				strconv.FormatBool(z.InComfort),
			})
		}
	}
	return rows
}

func supplyRows(intervals []results.Interval) [][]string {
	rows := [][]string{{
		"index", "time", "supply", "fuel", "fuel_wh", "rate", "cost",
		"standing_cost", "meter_wh",
	}}
	for _, iv := range intervals {
		for _, sp := range iv.Supplies {
			rows = append(rows, []string{
				strconv.Itoa(iv.Index),
				iv.Time.Format(time.RFC3339),
				sp.Supply,
				sp.Fuel,
				ftoa(sp.FuelWh),
				ftoa(sp.Rate),
				ftoa(sp.Cost),
				ftoa(sp.StandingCost),
				ftoa(sp.MeterWh),
			})
		}
	}
	return rows
}

func hotWaterRows(intervals []results.Interval) [][]string {
	rows := [][]string{{
		"index", "time", "cylinder", "store_temp_c", "demand_wh",
		"delivered_wh", "draw_wh", "loss_wh",
	}}
	for _, iv := range intervals {
		for _, hw := range iv.HotWater {
			rows = append(rows, []string{
				strconv.Itoa(iv.Index),
				iv.Time.Format(time.RFC3339),
				hw.Cylinder,
				ftoa(hw.StoreTempC),
				ftoa(hw.DemandWh),
				ftoa(hw.DeliveredWh),
				ftoa(hw.DrawWh),
				ftoa(hw.LossWh),
			})
		}
	}
	return rows
}

func summaryRows(s results.Summary) [][]string {
	rows := [][]string{
		{"key", "value"},
		{"run_id", s.RunID},
		{"start", s.Start.Format(time.RFC3339)},
		{"end", s.End.Format(time.RFC3339)},
		{"steps", strconv.Itoa(s.Steps)},
		{"space_demand_kwh", ftoa(s.SpaceDemandKWh)},
		{"space_delivered_kwh", ftoa(s.SpaceDeliveredKWh)},
		{"water_demand_kwh", ftoa(s.WaterDemandKWh)},
		{"water_delivered_kwh", ftoa(s.WaterDeliveredKWh)},
		{"total_cost", ftoa(s.TotalCost)},
		{"peak_demand_w", ftoa(s.PeakDemandW)},
		{"peak_demand_at", s.PeakDemandAt.Format(time.RFC3339)},
		{"zone_hours_outside_comfort", ftoa(s.ZoneHoursOutsideComfort)},
		{"convergence_warnings", strconv.Itoa(s.ConvergenceWarnings)},
	}
	for _, ft := range s.Supplies {
		rows = append(rows,
			[]string{"fuel_kwh." + ft.Supply, ftoa(ft.FuelKWh)},
			[]string{"cost." + ft.Supply, ftoa(ft.Cost)},
		)
	}
	return rows
}
