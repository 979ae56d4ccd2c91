// Package journal persists trade fills and completed cycles, and keeps
// the in-memory daily ledger the loop reports from.
package journal

import "time"

// TradeRecord is a single fill: one entry or exit leg of a cycle.
type TradeRecord struct {
	TradeID    string    `db:"trade_id"`
	CycleID    string    `db:"cycle_id"`
	OrderID    string    `db:"order_id"`
	Instrument string    `db:"instrument"`
	Side       string    `db:"side"`
	Quantity   int       `db:"quantity"`
	Price      float64   `db:"price"`
	Time       time.Time `db:"time"`
}

// CycleRecord is one completed trade cycle: entry fill through exit
// fill, with the trigger that closed it.
type CycleRecord struct {
	CycleID    string    `db:"cycle_id"`
	Instrument string    `db:"instrument"`
	Quantity   int       `db:"quantity"`
	EntryPrice float64   `db:"entry_price"`
	ExitPrice  float64   `db:"exit_price"`
	EntryTime  time.Time `db:"entry_time"`
	ExitTime   time.Time `db:"exit_time"`
	RealizedPL float64   `db:"realized_pl"`
	ExitReason string    `db:"exit_reason"`
}

// GrossPL computes the cycle's realized profit before costs.
func (c CycleRecord) GrossPL() float64 {
	return (c.ExitPrice - c.EntryPrice) * float64(c.Quantity)
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordCycle(CycleRecord) error
	Close() error
}
