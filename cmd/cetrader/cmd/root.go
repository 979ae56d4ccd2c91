package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cetrader",
	Short: "An automated intraday index-options trader",
	Long: `cetrader runs a single-instrument intraday options trading loop.

It provides tools for:
  - Live trading through the Zerodha Kite Connect API
  - Dual-timeframe trend and momentum confirmation
  - Balance-driven lot sizing with a configurable capital fraction
  - Replaying recorded sessions against the same loop
  - Journaling fills and completed cycles to CSV or SQLite`,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default built-in settings)")
}
