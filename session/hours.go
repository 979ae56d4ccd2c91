// Package session provides the market-hours policy and the clock the
// trading loop runs against.
package session

import (
	"fmt"
	"time"
)

// Clock abstracts wall-clock time so the loop can be driven by a
// simulated clock in replay and tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimeOfDay is a wall-clock minute within the trading day.
type TimeOfDay struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Validate checks the value names a real minute of the day.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("session: invalid time of day %d:%d", t.Hour, t.Minute)
	}
	return nil
}

// Hours is the market-hours policy for one exchange session. The
// boundaries mirror the NSE cash session: the market opens before
// trading is allowed, a short watch-only window lets the open settle,
// and new entries stop a fixed margin before the close.
type Hours struct {
	Location *time.Location

	MarketOpen     TimeOfDay
	WatchOnlyStart TimeOfDay
	TradingStart   TimeOfDay
	MarketClose    TimeOfDay

	// NoNewTradesBefore blocks new entries when the close is nearer
	// than this margin. Open positions are still managed until close.
	NoNewTradesBefore time.Duration
}

// IST is the exchange timezone. A fixed zone keeps the policy
// independent of the host tzdata.
var IST = time.FixedZone("IST", 5*3600+30*60)

// DefaultHours returns the NSE session boundaries used in production.
func DefaultHours() Hours {
	return Hours{
		Location:          IST,
		MarketOpen:        TimeOfDay{9, 15},
		WatchOnlyStart:    TimeOfDay{9, 25},
		TradingStart:      TimeOfDay{9, 30},
		MarketClose:       TimeOfDay{15, 30},
		NoNewTradesBefore: 15 * time.Minute,
	}
}

// Validate checks the boundaries are well-formed and ordered.
func (h Hours) Validate() error {
	for _, t := range []TimeOfDay{h.MarketOpen, h.WatchOnlyStart, h.TradingStart, h.MarketClose} {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	day := time.Date(2026, 1, 16, 0, 0, 0, 0, h.location())
	open := h.at(day, h.MarketOpen)
	watch := h.at(day, h.WatchOnlyStart)
	start := h.at(day, h.TradingStart)
	close := h.at(day, h.MarketClose)
	if !open.Before(close) {
		return fmt.Errorf("session: market_open %s must precede market_close %s", h.MarketOpen, h.MarketClose)
	}
	if watch.Before(open) || start.Before(watch) || close.Before(start) {
		return fmt.Errorf("session: boundaries must be ordered open <= watch_only <= trading_start <= close")
	}
	if h.NoNewTradesBefore < 0 {
		return fmt.Errorf("session: no_new_trades_before must be non-negative")
	}
	return nil
}

func (h Hours) location() *time.Location {
	if h.Location == nil {
		return IST
	}
	return h.Location
}

// at places a time-of-day on the same trading day as now.
func (h Hours) at(now time.Time, tod TimeOfDay) time.Time {
	local := now.In(h.location())
	return time.Date(local.Year(), local.Month(), local.Day(),
		tod.Hour, tod.Minute, 0, 0, h.location())
}

// IsOpen reports whether the market session is in progress.
func (h Hours) IsOpen(now time.Time) bool {
	local := now.In(h.location())
	open := h.at(now, h.MarketOpen)
	close := h.at(now, h.MarketClose)
	return !local.Before(open) && !local.After(close)
}

// IsWatchOnly reports whether now falls inside the watch-only window:
// the loop monitors signals but must not enter.
func (h Hours) IsWatchOnly(now time.Time) bool {
	local := now.In(h.location())
	watch := h.at(now, h.WatchOnlyStart)
	start := h.at(now, h.TradingStart)
	return !local.Before(watch) && local.Before(start)
}

// MinutesToClose returns whole minutes until the session close, 0 once
// the close has passed.
func (h Hours) MinutesToClose(now time.Time) int {
	local := now.In(h.location())
	close := h.at(now, h.MarketClose)
	if local.After(close) {
		return 0
	}
	return int(close.Sub(local) / time.Minute)
}

// InTradableWindow reports whether a new entry may be initiated now:
// the market is open, the watch-only window has passed, trading has
// started, and the close is not inside the no-new-trades margin.
func (h Hours) InTradableWindow(now time.Time) bool {
	if !h.IsOpen(now) || h.IsWatchOnly(now) {
		return false
	}
	local := now.In(h.location())
	if local.Before(h.at(now, h.TradingStart)) {
		return false
	}
	close := h.at(now, h.MarketClose)
	return close.Sub(local) >= h.NoNewTradesBefore
}
