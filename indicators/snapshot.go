package indicators

import "time"

// Direction is a trend direction.
type Direction int8

const (
	Flat Direction = iota
	Bullish
	Bearish
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	}
	return "flat"
}

// Slope is the short-term slope of a level.
type Slope int8

const (
	SlopeFlat Slope = iota
	SlopeRising
	SlopeFalling
)

func (s Slope) String() string {
	switch s {
	case SlopeRising:
		return "rising"
	case SlopeFalling:
		return "falling"
	}
	return "flat"
}

// Snapshot is the full indicator value-set for one bar. The rising /
// falling / improving booleans are derived once here and consumed by
// name everywhere, so the buy and exit paths can never drift apart on
// what "rising" means. Snapshots for bars inside the warmup window are
// flagged invalid rather than carrying silently wrong values.
type Snapshot struct {
	Time  time.Time
	Close float64
	Valid bool

	// Banded-ATR trailing stop.
	Trend        Direction
	TrendLevel   float64
	TrendFlipped bool // direction changed on this bar

	// Shifted EMA-of-lows support line.
	Support        float64
	SupportSlope   Slope
	SupportFalling bool // strictly decreasing over the last 3 values

	// EMA crossover state (persistent, not edge-triggered).
	EMAFast      float64
	EMASlow      float64
	CrossBullish bool
	CrossFlipped bool // fast/slow relation changed on this bar

	// Bounded oscillators.
	Stoch       float64
	StochRising bool
	RSI         float64
	RSIRising   bool

	// Momentum histogram.
	MACDLine      float64
	MACDSignal    float64
	Hist          float64
	HistImproving bool // histogram greater than its previous value
	HistBearish   bool // MACD line below its signal line
}
