package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firec2-sim/internal/logging"
	"firec2-sim/internal/sim"
)

var (
	validateScenario string
	validateSmokeS   float64
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration (and optional scenario) without output",
	Long: `validate loads the configuration through the schema and structural
checks, resolves an optional scenario against the attacker set, and
then exercises a short silent smoke run to catch wiring faults before a
long experiment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("config ok: %dx%d grid, %d nodes, %d compromised, %.0fs run\n",
			cfg.Grid.Width, cfg.Grid.Height,
			cfg.Grid.Width*cfg.Grid.Height,
			len(cfg.Attack.Nodes), cfg.Run.StopAfterS)

		if validateScenario != "" {
			steps, err := scenarioSteps(validateScenario, cfg.Attack.Nodes)
			if err != nil {
				return err
			}
			fmt.Printf("scenario ok: %d scripted commands\n", len(steps))
		}

		smoke := *cfg
		if validateSmokeS > 0 && validateSmokeS < smoke.Run.StopAfterS {
			smoke.Run.StopAfterS = validateSmokeS
		}
		simulator, err := sim.NewSimulator(logging.NewWriter(io.Discard, false), &smoke, sim.NewMultiWriter())
		if err != nil {
			return err
		}
		summary, err := simulator.Run(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("smoke run ok: %d ticks, %d packets, %d beacons, %d ignitions\n",
			summary.Ticks, summary.PacketsSent, summary.Beacons, summary.Ignitions)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateScenario, "scenario", "", "Built-in scenario name or YAML path to check")
	validateCmd.Flags().Float64Var(&validateSmokeS, "smoke", 30, "Smoke run length in simulation seconds (0 = full configured run)")
}
