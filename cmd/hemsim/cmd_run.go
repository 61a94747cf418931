package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/engine"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/report"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/results"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/solver"
)

// collector keeps the committed intervals for report assembly.
type collector struct {
	intervals []results.Interval
}

func (c *collector) OnInterval(iv results.Interval) { c.intervals = append(c.intervals, iv) }
func (c *collector) OnWarning(w solver.Warning) {
	log.Printf("step %d: no convergence after %d iterations (residual %g)", w.Step, w.Iterations, w.Residual)
}
func (c *collector) OnSummary(results.Summary) {}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario and write report files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			formats, _ := cmd.Flags().GetStringSlice("format")
			strict, _ := cmd.Flags().GetBool("strict")

			s, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			if err := s.loadSeries(args[0]); err != nil {
				return err
			}

			cb := &collector{}
			e, err := engine.New(s.graph, s.clk, s.store, engine.Options{
				Solver: solver.Config{
					Tolerance:     s.doc.Solver.ToleranceC,
					MaxIterations: s.doc.Solver.MaxIterations,
					Damping:       s.doc.Solver.Damping,
				},
				Strict:   strict || s.doc.Solver.Strict,
				Callback: cb,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Printf("running %d steps from %s", s.clk.Len(), s.clk.At(0).Time.Format("2006-01-02 15:04"))
			summary, warnings, err := e.Run(ctx)
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = s.doc.Output.Dir
			}
			if len(formats) == 0 {
				formats = s.doc.Output.Formats
			}
			if err := report.Write(outDir, formats, report.Run{
				Summary:   summary,
				Intervals: cb.intervals,
			}); err != nil {
				return err
			}

			log.Printf("run %s complete: %.1f kWh space heat, %.1f kWh hot water, cost %.2f",
				summary.RunID, summary.SpaceDeliveredKWh, summary.WaterDeliveredKWh, summary.TotalCost)
			if len(warnings) > 0 {
				log.Printf("%d step(s) hit the solver iteration cap", len(warnings))
			}
			fmt.Printf("reports written to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().String("out", "", "output directory (defaults to the scenario's output.dir)")
	cmd.Flags().StringSlice("format", nil, "report formats: csv, json, yaml (defaults to the scenario's output.formats)")
	cmd.Flags().Bool("strict", false, "treat convergence warnings as fatal")
	return cmd
}
