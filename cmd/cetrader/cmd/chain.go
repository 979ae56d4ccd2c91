package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cetrader/broker/kite"
	"cetrader/logging"
	"cetrader/scanner"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the nearest-expiry option chain around the money",
	Long: `Chain fetches the nearest-expiry option chain for the configured
underlying and prints the strikes around the money with their last
traded premiums, marking the contract the selector would pick.

Credentials come from KITE_API_KEY and KITE_ACCESS_TOKEN (a .env file
is honored).`,
	RunE: runChain,
}

var chainStrikes int

func init() {
	rootCmd.AddCommand(chainCmd)

	chainCmd.Flags().IntVar(&chainStrikes, "strikes", 10, "strikes to show on each side of the money")
}

func runChain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.Build(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	client, err := kite.FromEnv()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	spot, err := client.SpotPrice(ctx, cfg.Scanner.Underlying)
	if err != nil {
		return fmt.Errorf("spot price: %w", err)
	}

	contracts, err := client.OptionChain(ctx, cfg.Scanner.Underlying, cfg.Scanner.OptionType)
	if err != nil {
		return fmt.Errorf("option chain: %w", err)
	}
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].Strike < contracts[j].Strike })

	pick, pickErr := scanner.New(cfg.Scanner, client, log).Select(ctx)
	if pickErr != nil && !errors.Is(pickErr, scanner.ErrNoContract) {
		return pickErr
	}

	window := float64(chainStrikes) * cfg.Scanner.StrikeStep
	fmt.Printf("%s spot: %.2f\n\n", cfg.Scanner.Underlying, spot)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSTRIKE\tEXPIRY\tLTP\tLOT\t")
	for _, c := range contracts {
		if c.Strike < spot-window || c.Strike > spot+window {
			continue
		}
		mark := ""
		if pickErr == nil && c.Symbol == pick.Symbol {
			mark = "<- selected"
		}
		fmt.Fprintf(w, "%s\t%.0f\t%s\t%.2f\t%d\t%s\n",
			c.Symbol, c.Strike, c.Expiry.Format("2006-01-02"), c.LTP, c.LotSize, mark)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if errors.Is(pickErr, scanner.ErrNoContract) {
		fmt.Printf("\nno contract inside the %.0f-%.0f premium band\n",
			cfg.Scanner.PremiumMin, cfg.Scanner.PremiumMax)
	}
	return nil
}
