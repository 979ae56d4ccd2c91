// Package signal evaluates buy and exit conditions over an
// indicator-annotated bar series. Evaluation is a pure function of the
// latest snapshot: results are recomputed every polling round and
// never latched.
package signal

import "cetrader/indicators"

// ExitTrigger identifies which exit condition fired, if any.
type ExitTrigger int

const (
	TriggerNone ExitTrigger = iota
	TriggerSupportFalling
	TriggerStrongBearish
	TriggerMomentumBearish
)

func (t ExitTrigger) String() string {
	switch t {
	case TriggerSupportFalling:
		return "support_falling"
	case TriggerStrongBearish:
		return "strong_bearish"
	case TriggerMomentumBearish:
		return "momentum_bearish"
	}
	return "none"
}

// Thresholds are the oscillator cutoffs used by the buy conditions.
type Thresholds struct {
	StochMax float64 `json:"stoch_max" yaml:"stoch_max"` // oscillator must be below this or rising
	RSIMax   float64 `json:"rsi_max" yaml:"rsi_max"`     // momentum oscillator must be below this
}

// DefaultThresholds returns the production cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{StochMax: 50, RSIMax: 65}
}

// Conditions holds the individual buy checks for one snapshot, so a
// caller can log exactly which conditions held a signal back.
type Conditions struct {
	TrendBullish      bool
	CloseAboveTrend   bool
	CloseAboveSupport bool
	CrossBullish      bool
	StochOK           bool
	RSIOK             bool
	MACDOK            bool
	Override          bool
}

// All reports whether every one of the seven conditions holds.
func (c Conditions) All() bool {
	return c.TrendBullish && c.CloseAboveTrend && c.CloseAboveSupport &&
		c.CrossBullish && c.StochOK && c.RSIOK && c.MACDOK
}

// Failed names the conditions that did not hold, for logging.
func (c Conditions) Failed() []string {
	var out []string
	for _, ck := range []struct {
		name string
		ok   bool
	}{
		{"trend_bullish", c.TrendBullish},
		{"close_above_trend", c.CloseAboveTrend},
		{"close_above_support", c.CloseAboveSupport},
		{"cross_bullish", c.CrossBullish},
		{"stoch_ok", c.StochOK},
		{"rsi_ok", c.RSIOK},
		{"macd_ok", c.MACDOK},
	} {
		if !ck.ok {
			out = append(out, ck.name)
		}
	}
	return out
}

// BuyDecision is the result of one buy evaluation on one series.
type BuyDecision struct {
	// Valid is false when the latest snapshot is still inside the
	// indicator warmup window; Eligible is then always false.
	Valid      bool
	Eligible   bool
	Conditions Conditions
}

// ExitDecision is the result of one exit evaluation on one series.
type ExitDecision struct {
	Valid   bool
	Trigger ExitTrigger
}

// Evaluator maps indicator snapshots to buy and exit decisions.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an evaluator with the given oscillator cutoffs.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{thresholds: th}
}

// Buy evaluates the entry conditions on the latest snapshot. All seven
// conditions must hold, or the override path fires: a trend or
// crossover flip on this bar while both the trend and crossover states
// are bullish. The two paths are independent OR-ed signal sources.
func (e *Evaluator) Buy(snaps []indicators.Snapshot) BuyDecision {
	s, ok := latest(snaps)
	if !ok {
		return BuyDecision{}
	}

	c := Conditions{
		TrendBullish:      s.Trend == indicators.Bullish,
		CloseAboveTrend:   s.Close > s.TrendLevel,
		CloseAboveSupport: s.Close > s.Support,
		CrossBullish:      s.CrossBullish,
		StochOK:           s.Stoch < e.thresholds.StochMax || s.StochRising,
		RSIOK:             s.RSI < e.thresholds.RSIMax && s.RSIRising,
		MACDOK:            s.Hist > 0 || s.HistImproving,
	}
	c.Override = (s.TrendFlipped || s.CrossFlipped) &&
		c.TrendBullish && c.CrossBullish

	return BuyDecision{
		Valid:      true,
		Eligible:   c.All() || c.Override,
		Conditions: c,
	}
}

// Exit evaluates the exit triggers on the latest snapshot, in priority
// order; the first trigger that holds is reported.
func (e *Evaluator) Exit(snaps []indicators.Snapshot) ExitDecision {
	s, ok := latest(snaps)
	if !ok {
		return ExitDecision{}
	}

	switch {
	case s.SupportFalling && s.Close < s.Support:
		return ExitDecision{Valid: true, Trigger: TriggerSupportFalling}
	case s.Trend == indicators.Bearish && s.EMAFast < s.EMASlow && s.Close < s.Support:
		return ExitDecision{Valid: true, Trigger: TriggerStrongBearish}
	case s.HistBearish:
		return ExitDecision{Valid: true, Trigger: TriggerMomentumBearish}
	}
	return ExitDecision{Valid: true, Trigger: TriggerNone}
}

func latest(snaps []indicators.Snapshot) (indicators.Snapshot, bool) {
	if len(snaps) == 0 {
		return indicators.Snapshot{}, false
	}
	s := snaps[len(snaps)-1]
	if !s.Valid {
		return indicators.Snapshot{}, false
	}
	return s, true
}
