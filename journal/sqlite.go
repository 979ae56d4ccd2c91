package journal

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sqlx.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.NamedExec(`
		INSERT INTO trades
		(trade_id, cycle_id, order_id, instrument, side, quantity, price, time)
		VALUES (:trade_id, :cycle_id, :order_id, :instrument, :side, :quantity, :price, :time)`, t)
	return err
}

func (j *SQLite) RecordCycle(c CycleRecord) error {
	_, err := j.db.NamedExec(`
		INSERT INTO cycles
		(cycle_id, instrument, quantity, entry_price, exit_price, entry_time, exit_time, realized_pl, exit_reason)
		VALUES (:cycle_id, :instrument, :quantity, :entry_price, :exit_price, :entry_time, :exit_time, :realized_pl, :exit_reason)`, c)
	return err
}

// GetCycle returns a single cycle record by ID.
func (j *SQLite) GetCycle(cycleID string) (CycleRecord, error) {
	var rec CycleRecord
	err := j.db.Get(&rec, `
		SELECT cycle_id, instrument, quantity, entry_price, exit_price, entry_time, exit_time, realized_pl, exit_reason
		FROM cycles
		WHERE cycle_id = ?`, cycleID)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("cycle %q: %w", cycleID, err)
	}
	return rec, nil
}

// ListCyclesBetween returns cycles whose exit_time is within [start, end)
// in completion order.
func (j *SQLite) ListCyclesBetween(start, end time.Time) ([]CycleRecord, error) {
	var out []CycleRecord
	err := j.db.Select(&out, `
		SELECT cycle_id, instrument, quantity, entry_price, exit_price, entry_time, exit_time, realized_pl, exit_reason
		FROM cycles
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	return out, err
}

// ListTradesByCycle returns the fills of one cycle in time order.
func (j *SQLite) ListTradesByCycle(cycleID string) ([]TradeRecord, error) {
	var out []TradeRecord
	err := j.db.Select(&out, `
		SELECT trade_id, cycle_id, order_id, instrument, side, quantity, price, time
		FROM trades
		WHERE cycle_id = ?
		ORDER BY time ASC`, cycleID)
	return out, err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
