package indicators

import (
	"fmt"

	"cetrader/market"
)

// Params is the fixed indicator parameter set for one engine.
type Params struct {
	TrendPeriod     int     `json:"trend_period" yaml:"trend_period"`
	TrendMultiplier float64 `json:"trend_multiplier" yaml:"trend_multiplier"`
	SupportPeriod   int     `json:"support_period" yaml:"support_period"`
	SupportOffset   int     `json:"support_offset" yaml:"support_offset"`
	FastEMA         int     `json:"fast_ema" yaml:"fast_ema"`
	SlowEMA         int     `json:"slow_ema" yaml:"slow_ema"`
	RSIPeriod       int     `json:"rsi_period" yaml:"rsi_period"`
	StochPeriod     int     `json:"stoch_period" yaml:"stoch_period"`
	StochSmooth     int     `json:"stoch_smooth" yaml:"stoch_smooth"`
	MACDFast        int     `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow        int     `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal      int     `json:"macd_signal" yaml:"macd_signal"`
}

// DefaultParams returns the production parameter set.
func DefaultParams() Params {
	return Params{
		TrendPeriod:     7,
		TrendMultiplier: 3,
		SupportPeriod:   8,
		SupportOffset:   9,
		FastEMA:         8,
		SlowEMA:         9,
		RSIPeriod:       14,
		StochPeriod:     14,
		StochSmooth:     3,
		MACDFast:        5,
		MACDSlow:        13,
		MACDSignal:      6,
	}
}

// Validate checks the parameter set for values that would make an
// indicator degenerate.
func (p Params) Validate() error {
	for name, v := range map[string]int{
		"trend_period":   p.TrendPeriod,
		"support_period": p.SupportPeriod,
		"fast_ema":       p.FastEMA,
		"slow_ema":       p.SlowEMA,
		"rsi_period":     p.RSIPeriod,
		"stoch_period":   p.StochPeriod,
		"stoch_smooth":   p.StochSmooth,
		"macd_fast":      p.MACDFast,
		"macd_slow":      p.MACDSlow,
		"macd_signal":    p.MACDSignal,
	} {
		if v <= 0 {
			return fmt.Errorf("indicators: %s must be positive, got %d", name, v)
		}
	}
	if p.SupportOffset < 0 {
		return fmt.Errorf("indicators: support_offset must be non-negative, got %d", p.SupportOffset)
	}
	if p.TrendMultiplier <= 0 {
		return fmt.Errorf("indicators: trend_multiplier must be positive, got %g", p.TrendMultiplier)
	}
	return nil
}

// Engine computes the full Snapshot sequence over a bar series. Compute
// builds fresh indicator state per call, so the output is a pure
// function of the input window: recomputing over the same bars yields
// bit-identical results.
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given parameter set.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Warmup returns the number of leading snapshots that are flagged
// invalid: the longest single-indicator warmup plus the two extra bars
// the derived slope booleans need.
func (e *Engine) Warmup() int {
	p := e.params
	longest := 0
	for _, w := range []int{
		NewSuperTrend(p.TrendPeriod, p.TrendMultiplier).Warmup(),
		NewSupportLine(p.SupportPeriod, p.SupportOffset).Warmup(),
		p.FastEMA,
		p.SlowEMA,
		NewStochRSI(p.RSIPeriod, p.StochPeriod, p.StochSmooth).Warmup(),
		NewRSI(p.RSIPeriod).Warmup(),
		NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal).Warmup(),
	} {
		if w > longest {
			longest = w
		}
	}
	return longest + 2
}

// Compute maps a bar series to a parallel snapshot sequence, one per
// bar. The first Warmup() entries are flagged invalid. Past snapshots
// are never revisited once emitted.
func (e *Engine) Compute(series *market.Series) []Snapshot {
	p := e.params

	trend := NewSuperTrend(p.TrendPeriod, p.TrendMultiplier)
	support := NewSupportLine(p.SupportPeriod, p.SupportOffset)
	fast := NewEMA(p.FastEMA)
	slow := NewEMA(p.SlowEMA)
	stoch := NewStochRSI(p.RSIPeriod, p.StochPeriod, p.StochSmooth)
	rsi := NewRSI(p.RSIPeriod)
	macd := NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal)

	bars := series.Bars()
	warmup := e.Warmup()
	out := make([]Snapshot, 0, len(bars))

	var prevBullish, havePrevCross bool
	var support1, support2 float64 // previous two support values
	var supportSeen int

	for i, b := range bars {
		trend.Update(b)
		support.Update(b)
		fast.Update(b)
		slow.Update(b)
		stoch.Update(b)
		rsi.Update(b)
		macd.Update(b)

		snap := Snapshot{
			Time:  b.Time,
			Close: b.Close,
			Valid: i >= warmup,

			Trend:        trend.Direction(),
			TrendLevel:   trend.Value(),
			TrendFlipped: trend.Flipped(),

			Support: support.Value(),

			EMAFast: fast.Value(),
			EMASlow: slow.Value(),

			Stoch: stoch.Value(),
			RSI:   rsi.Value(),

			MACDLine:   macd.Line(),
			MACDSignal: macd.Signal(),
			Hist:       macd.Histogram(),
		}

		if fast.Ready() && slow.Ready() {
			snap.CrossBullish = snap.EMAFast > snap.EMASlow
			snap.CrossFlipped = havePrevCross && snap.CrossBullish != prevBullish
			prevBullish = snap.CrossBullish
			havePrevCross = true
		}
		snap.HistBearish = macd.Ready() && snap.MACDLine < snap.MACDSignal

		if support.Ready() {
			switch {
			case supportSeen >= 1 && snap.Support > support1:
				snap.SupportSlope = SlopeRising
			case supportSeen >= 1 && snap.Support < support1:
				snap.SupportSlope = SlopeFalling
			}
			snap.SupportFalling = supportSeen >= 2 &&
				snap.Support < support1 && support1 < support2
			support2, support1 = support1, snap.Support
			supportSeen++
		}

		if prev := len(out) - 1; prev >= 0 {
			snap.StochRising = stoch.Ready() && snap.Stoch > out[prev].Stoch
			snap.RSIRising = rsi.Ready() && snap.RSI > out[prev].RSI
			snap.HistImproving = macd.Ready() && snap.Hist > out[prev].Hist
		}

		out = append(out, snap)
	}

	return out
}
