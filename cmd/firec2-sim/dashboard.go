package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"firec2-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB tables",
	Long: `dashboard renders the bundled Grafana dashboard JSON against the
GREPTIMEDB_DATASOURCE_UID environment variable, ready to import next to
a run ingested with --greptime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashboard.Render(dashboardOut); err != nil {
			return err
		}
		fmt.Printf("dashboards written to %s\n", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory for rendered dashboards")
	rootCmd.AddCommand(dashboardCmd)
}
