package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/engine"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/solver"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/ws"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <scenario>",
		Short: "Serve a scenario over WebSocket for interactive runs",
		Long: `Serve loads a scenario and listens for WebSocket clients. Clients
start and abort runs; committed intervals, warnings and the final summary
stream to every connected client as the run executes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			s, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			if err := s.loadSeries(args[0]); err != nil {
				return err
			}

			hub := ws.NewHub()
			ctrl := ws.NewController(hub, func(ctx context.Context, strict bool, cb engine.Callback) error {
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
				_, _, err = e.Run(ctx)
				return err
			})

			scenarioInfo := ws.ScenarioPayload{
				Start: s.clk.At(0).Time.Format(time.RFC3339),
				Steps: s.clk.Len(),
			}
			for _, z := range s.graph.Zones() {
				scenarioInfo.Zones = append(scenarioInfo.Zones, z.Name)
			}
			for _, hw := range s.graph.HotWater() {
				scenarioInfo.HotWater = append(scenarioInfo.HotWater, hw.Name)
			}
			for _, sp := range s.graph.Supplies() {
				scenarioInfo.Supplies = append(scenarioInfo.Supplies, sp.Name)
			}

			mux := http.NewServeMux()
			mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprintln(w, "ok")
			})
			mux.Handle("/ws", ws.NewHandler(hub, ctrl, scenarioInfo))

			log.Printf("serving %s on %s", args[0], addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}
