// Package replay drives the trading loop against recorded candle data
// on a simulated clock, so a full session can be rerun in seconds.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"cetrader/broker/paper"
	"cetrader/config"
	"cetrader/journal"
	"cetrader/market"
	"cetrader/session"
	"cetrader/trader"
)

// Options controls a replay run.
type Options struct {
	// Cash is the starting balance.
	Cash float64

	// Step is the simulated-clock increment between polling rounds.
	// Zero uses the configured confirmation cadence.
	Step time.Duration

	// Instrument is the contract the recorded candles belong to.
	Instrument market.Instrument
}

type fixedSelector struct {
	inst market.Instrument
}

func (s *fixedSelector) Select(ctx context.Context) (market.Instrument, error) {
	return s.inst, nil
}

// Run replays one session from two candle files and returns the day's
// summary.
func Run(ctx context.Context, cfg *config.Config, confirmPath, primaryPath string, opts Options, log *zap.Logger) (journal.Summary, error) {
	confirmBars, err := LoadCandlesCSV(confirmPath)
	if err != nil {
		return journal.Summary{}, fmt.Errorf("confirm candles: %w", err)
	}
	primaryBars, err := LoadCandlesCSV(primaryPath)
	if err != nil {
		return journal.Summary{}, fmt.Errorf("primary candles: %w", err)
	}
	if len(confirmBars) == 0 || len(primaryBars) == 0 {
		return journal.Summary{}, errors.New("replay: empty candle file")
	}

	engine := paper.NewEngine(opts.Cash)
	engine.LoadTape(market.Interval2Min, confirmBars)
	engine.LoadTape(market.Interval5Min, primaryBars)

	step := opts.Step
	if step == 0 {
		if step, err = cfg.Polling.ConfirmInterval(); err != nil {
			return journal.Summary{}, err
		}
	}

	t, err := trader.New(cfg, trader.Deps{
		Data:     engine,
		Gateway:  engine,
		Selector: &fixedSelector{inst: opts.Instrument},
		Clock:    engine,
		Journal:  noopJournal{},
		Reporter: &journal.ZapReporter{Log: log},
		Log:      log,
	})
	if err != nil {
		return journal.Summary{}, err
	}

	// Walk the simulated clock from the first candle through the close.
	day := confirmBars[0].Time.In(session.IST)
	now := time.Date(day.Year(), day.Month(), day.Day(),
		cfg.Session.MarketOpen.Hour, cfg.Session.MarketOpen.Minute, 0, 0, session.IST)
	close := time.Date(day.Year(), day.Month(), day.Day(),
		cfg.Session.MarketClose.Hour, cfg.Session.MarketClose.Minute, 0, 0, session.IST)

	for !now.After(close) {
		if err := ctx.Err(); err != nil {
			return t.Ledger().Summary(), err
		}
		engine.Advance(now)
		if err := t.Step(ctx); err != nil {
			if errors.Is(err, trader.ErrSessionClosed) {
				break
			}
			return t.Ledger().Summary(), err
		}
		now = now.Add(step)
	}

	return t.Ledger().Summary(), nil
}

// LoadCandlesCSV reads bars from a CSV file with columns
// time,open,high,low,close,volume. A header row is optional.
func LoadCandlesCSV(path string) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []market.Bar
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		bar, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
}

func parseRow(row []string) (market.Bar, error) {
	if len(row) < 5 {
		return market.Bar{}, fmt.Errorf("replay: short row (%d fields)", len(row))
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return market.Bar{}, fmt.Errorf("replay: time %q: %w", row[0], err)
	}

	var b market.Bar
	b.Time = t
	for i, dst := range []*float64{&b.Open, &b.High, &b.Low, &b.Close} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("replay: field %d %q: %w", i+1, row[i+1], err)
		}
		*dst = v
	}
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		if b.Volume, err = strconv.ParseInt(strings.TrimSpace(row[5]), 10, 64); err != nil {
			return market.Bar{}, fmt.Errorf("replay: volume %q: %w", row[5], err)
		}
	}
	return b, nil
}

// noopJournal discards records; replay summaries come from the ledger.
type noopJournal struct{}

func (noopJournal) RecordTrade(journal.TradeRecord) error { return nil }
func (noopJournal) RecordCycle(journal.CycleRecord) error { return nil }
func (noopJournal) Close() error                          { return nil }
