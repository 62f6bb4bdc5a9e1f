package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firec2-sim/internal/admin"
	"firec2-sim/internal/c2"
	"firec2-sim/internal/logging"
	"firec2-sim/internal/scenario"
	"firec2-sim/internal/sim"
)

var (
	simSeed       int64
	simDuration   float64
	simOutDir     string
	simSQLitePath string
	simGreptime   string
	simGreptimeDB string
	simJSON       bool
	simQuiet      bool
	simTUI        bool
	simAdminAddr  string
	simScenario   string
	simSpeed      float64
	simRealtime   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the sensor grid simulation",
	Long: `simulate executes one seeded run: the fire ignites and spreads on
schedule, compromised nodes activate and beacon, and every stream is
written to the selected sinks. The same seed and configuration always
produce the same run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = simSeed
		}
		if cmd.Flags().Changed("duration") {
			cfg.Run.StopAfterS = simDuration
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var log *slog.Logger
		if simTUI {
			// The alternate screen owns the terminal during the run.
			log = logging.NewWriter(io.Discard, flagVerbose)
		} else {
			log = logging.New(flagVerbose)
		}

		writer, tui, cleanup, err := buildWriters(cfg, writerOptions{
			outDir:     simOutDir,
			sqlitePath: simSQLitePath,
			greptime:   simGreptime,
			greptimeDB: simGreptimeDB,
			json:       simJSON,
			quiet:      simQuiet,
			tui:        simTUI,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		simulator, err := sim.NewSimulator(log, cfg, writer)
		if err != nil {
			return err
		}
		metrics := sim.NewMetrics()
		simulator.SetMetrics(metrics)

		if simScenario != "" {
			steps, err := scenarioSteps(simScenario, cfg.Attack.Nodes)
			if err != nil {
				return err
			}
			simulator.SetPolicy(c2.NewScriptedPolicy(steps))
		}

		simulator.SetSpeed(runSpeed(cmd))

		if tui != nil {
			tui.SetIgniter(simulator.IgniteNode)
			tui.SetCommander(simulator.InjectCommand)
		}
		if simAdminAddr != "" {
			srv := admin.NewServer(log, simulator, metrics)
			go func() {
				if err := srv.Start(simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
			writer.SetAdminAddr(simAdminAddr)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := simulator.Run(ctx)
		if tui != nil {
			tui.Close()
		}
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// runSpeed resolves pacing: --realtime and --speed are explicit, the TUI
// defaults to real time so a run is watchable, everything else runs as
// fast as the queue drains.
func runSpeed(cmd *cobra.Command) float64 {
	switch {
	case cmd.Flags().Changed("speed"):
		return simSpeed
	case simRealtime:
		return 1
	case simTUI:
		return 1
	default:
		return 0
	}
}

// scenarioSteps resolves a built-in scenario name or a YAML path into a
// scripted command timeline.
func scenarioSteps(nameOrPath string, attackers []int) ([]c2.Step, error) {
	if sc, ok := scenario.BuiltIn()[nameOrPath]; ok {
		return sc.Program(attackers)
	}
	sc, err := scenario.Load(nameOrPath)
	if err != nil {
		return nil, err
	}
	return sc.Program(attackers)
}

func init() {
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Override the configured RNG seed")
	simulateCmd.Flags().Float64Var(&simDuration, "duration", 0, "Override the run length in simulation seconds")
	simulateCmd.Flags().StringVar(&simOutDir, "out", "", "Directory for JSONL stream logs")
	simulateCmd.Flags().StringVar(&simSQLitePath, "sqlite", "", "Path to a SQLite database for all streams")
	simulateCmd.Flags().StringVar(&simGreptime, "greptime", "", "GreptimeDB endpoint host[:port] (or GREPTIMEDB_ENDPOINT)")
	simulateCmd.Flags().StringVar(&simGreptimeDB, "greptime-db", "public", "GreptimeDB database name")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print rows as plain JSON lines instead of the colored console")
	simulateCmd.Flags().BoolVar(&simQuiet, "quiet", false, "Only print covert and attack events")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Run the interactive terminal dashboard")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", ":8080", "Admin HTTP listen address (empty disables)")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or YAML path for scripted commands")
	simulateCmd.Flags().Float64Var(&simSpeed, "speed", 0, "Wall-clock pacing factor (1 = real time, 0 = as fast as possible)")
	simulateCmd.Flags().BoolVar(&simRealtime, "realtime", false, "Pace the run at one simulated second per second")
}
