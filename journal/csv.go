package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	trades *csv.Writer
	cycles *csv.Writer
	tf, cf *os.File
}

func NewCSV(tradesPath, cyclesPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	cf, err := os.Create(cyclesPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	cw := csv.NewWriter(cf)

	if err := tw.Write([]string{"trade_id", "cycle_id", "order_id", "instrument", "side", "quantity", "price", "time"}); err != nil {
		return nil, err
	}
	if err := cw.Write([]string{"cycle_id", "instrument", "quantity", "entry_price", "exit_price", "entry_time", "exit_time", "realized_pl", "exit_reason"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, cw, tf, cf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.CycleID,
		t.OrderID,
		t.Instrument,
		t.Side,
		strconv.Itoa(t.Quantity),
		f(t.Price),
		t.Time.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordCycle(c CycleRecord) error {
	err := j.cycles.Write([]string{
		c.CycleID,
		c.Instrument,
		strconv.Itoa(c.Quantity),
		f(c.EntryPrice),
		f(c.ExitPrice),
		c.EntryTime.Format(time.RFC3339),
		c.ExitTime.Format(time.RFC3339),
		f(c.RealizedPL),
		c.ExitReason,
	})
	if err != nil {
		return err
	}
	j.cycles.Flush()
	return j.cycles.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.cycles.Flush()
	if err := j.cycles.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.cf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
