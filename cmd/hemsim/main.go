// Command hemsim runs whole-dwelling energy performance simulations from a
// scenario document: validate a scenario, run it to report files, or serve
// a live run over WebSocket.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/engine"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "hemsim",
		Short: "Home energy model simulator",
		Long: `hemsim simulates the energy performance of a dwelling over time:
zone heat demand, heat source dispatch, hot water, fuel use and cost.

Scenarios are YAML or JSON documents; external conditions (weather,
tariffs) come from companion CSV series files.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newRunCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes scenario problems (1) from violated internal
// invariants (2).
func exitCode(err error) int {
	var invariant *engine.InvariantError
	if errors.As(err, &invariant) {
		return 2
	}
	return 1
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hemsim version %s\n", version)
		},
	}
}
