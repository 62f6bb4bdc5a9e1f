package main

import (
	"github.com/spf13/cobra"

	"firec2-sim/internal/sim"
)

var (
	replayInput      string
	replaySpeed      float64
	replayJSON       bool
	replayQuiet      bool
	replayTUI        bool
	replaySQLite     string
	replayGreptime   string
	replayGreptimeDB string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded run directory",
	Long: `replay feeds the state and covert streams of a recorded run back
through the console, TUI or a storage sink, paced by the recorded
timestamps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		writer, tui, cleanup, err := buildWriters(cfg, writerOptions{
			sqlitePath: replaySQLite,
			greptime:   replayGreptime,
			greptimeDB: replayGreptimeDB,
			json:       replayJSON,
			quiet:      replayQuiet,
			tui:        replayTUI,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		err = sim.ReplayRun(replayInput, writer, replaySpeed)
		if tui != nil {
			tui.Close()
		}
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Run directory written by simulate --out")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 = no pacing)")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print rows as plain JSON lines instead of the colored console")
	replayCmd.Flags().BoolVar(&replayQuiet, "quiet", false, "Only print covert events")
	replayCmd.Flags().BoolVar(&replayTUI, "tui", false, "Replay into the terminal dashboard")
	replayCmd.Flags().StringVar(&replaySQLite, "sqlite", "", "Re-ingest the replayed streams into a SQLite database")
	replayCmd.Flags().StringVar(&replayGreptime, "greptime", "", "Re-ingest into a GreptimeDB endpoint host[:port]")
	replayCmd.Flags().StringVar(&replayGreptimeDB, "greptime-db", "public", "GreptimeDB database name")
	replayCmd.MarkFlagRequired("input")
}
