package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cetrader/broker/kite"
	"cetrader/config"
	"cetrader/journal"
	"cetrader/logging"
	"cetrader/scanner"
	"cetrader/session"
	"cetrader/trader"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live trading loop",
	Long: `Run the trading loop against the live venue.

Credentials come from KITE_API_KEY and KITE_ACCESS_TOKEN (a .env file
is honored). The loop scans for the day's contract at startup, trades
until the session closes, then exits.

With --daemon the process stays up and starts a session every trading
weekday shortly before the market opens.

Examples:
  cetrader run --config config.yaml
  cetrader run --config config.yaml --daemon`,
	RunE: runLive,
}

var runDaemon bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDaemon, "daemon", false, "keep running and start a session every trading weekday")
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgPath)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.Build(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !runDaemon {
		return runSession(ctx, cfg, log)
	}

	// Start a session at the open every trading weekday.
	c := cron.New(cron.WithLocation(session.IST))
	spec := fmt.Sprintf("%d %d * * 1-5", cfg.Session.MarketOpen.Minute, cfg.Session.MarketOpen.Hour)
	_, err = c.AddFunc(spec, func() {
		if err := runSession(ctx, cfg, log); err != nil {
			log.Error("session ended with error", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	log.Info("daemon scheduled", zap.String("cron", spec))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// runSession wires the collaborators and trades one session.
func runSession(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	client, err := kite.FromEnv()
	if err != nil {
		return err
	}

	jnl, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer jnl.Close()

	t, err := trader.New(cfg, trader.Deps{
		Data:     client,
		Gateway:  client,
		Selector: scanner.New(cfg.Scanner, client, log),
		Clock:    session.SystemClock{},
		Journal:  jnl,
		Reporter: &journal.ZapReporter{Log: log},
		Log:      log,
	})
	if err != nil {
		return err
	}

	log.Info("session starting", zap.String("underlying", cfg.Scanner.Underlying))
	if err := t.Run(ctx); err != nil {
		return err
	}

	s := t.Ledger().Summary()
	fmt.Printf("Session complete: %d cycles, %d wins, %d losses, P&L %.2f\n",
		s.Cycles, s.Wins, s.Losses, s.RealizedPL)
	return nil
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.CyclesFile)
	}
}
