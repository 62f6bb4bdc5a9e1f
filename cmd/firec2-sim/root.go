package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firec2-sim/internal/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "firec2-sim",
	Short: "Fire-alarm sensor grid simulator with a covert C2 channel",
	Long: `firec2-sim runs a discrete-event simulation of an IoT fire-alarm
sensor grid in which a subset of nodes carries an environment-triggered
implant. Once a spreading fire heats a compromised node past its trigger
threshold, the implant opens a covert channel to a C2 controller, hiding
bits in the low-order digits and send timing of otherwise ordinary
telemetry.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to simulation configuration YAML (empty = built-in baseline)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig resolves the active configuration: the built-in baseline,
// or a YAML file validated against the embedded schema.
func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(flagConfig)
}
