// Package market holds bar (candle) data for one instrument at a time.
package market

import "time"

// Bar represents OHLC candlestick data for one interval.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Interval is a bar width, e.g. "2minute" or "5minute".
type Interval string

const (
	Interval2Min Interval = "2minute"
	Interval5Min Interval = "5minute"
)

// Duration returns the bar width as a time.Duration, or 0 for an
// unknown interval.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval2Min:
		return 2 * time.Minute
	case Interval5Min:
		return 5 * time.Minute
	}
	return 0
}
