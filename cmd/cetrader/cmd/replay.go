package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cetrader/internal/replay"
	"cetrader/logging"
	"cetrader/market"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session through the trading loop",
	Long: `Replay runs the full trading loop against recorded candles on a
simulated clock, filling orders at recorded prices.

Candle files are CSVs with columns time,open,high,low,close,volume.
Two files are required: the 2-minute confirmation series and the
5-minute primary series.

Example:
  cetrader replay --confirm 2min.csv --primary 5min.csv --symbol NIFTY2612219400CE --lot-size 75`,
	RunE: runReplay,
}

var (
	rpConfirmPath string
	rpPrimaryPath string
	rpSymbol      string
	rpLotSize     int
	rpCash        float64
	rpStep        time.Duration
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&rpConfirmPath, "confirm", "", "path to 2-minute candle CSV (required)")
	replayCmd.Flags().StringVar(&rpPrimaryPath, "primary", "", "path to 5-minute candle CSV (required)")
	replayCmd.Flags().StringVar(&rpSymbol, "symbol", "", "traded contract symbol (required)")
	replayCmd.Flags().IntVar(&rpLotSize, "lot-size", 75, "contract lot size")
	replayCmd.Flags().Float64Var(&rpCash, "cash", 50_000, "starting balance")
	replayCmd.Flags().DurationVar(&rpStep, "step", 0, "simulated clock step (default: confirm cadence)")

	replayCmd.MarkFlagRequired("confirm")
	replayCmd.MarkFlagRequired("primary")
	replayCmd.MarkFlagRequired("symbol")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.Build(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	summary, err := replay.Run(context.Background(), cfg, rpConfirmPath, rpPrimaryPath, replay.Options{
		Cash: rpCash,
		Step: rpStep,
		Instrument: market.Instrument{
			Symbol:   rpSymbol,
			LotSize:  rpLotSize,
			Exchange: cfg.Scanner.Exchange,
		},
	}, log)
	if err != nil {
		return err
	}

	fmt.Printf("Replay complete: %d cycles, %d wins, %d losses, P&L %.2f\n",
		summary.Cycles, summary.Wins, summary.Losses, summary.RealizedPL)
	return nil
}
