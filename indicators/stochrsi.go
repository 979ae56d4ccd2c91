package indicators

import (
	"fmt"

	"cetrader/market"
)

// StochRSI is a streaming Stochastic RSI %K: the stochastic of the RSI
// over stochPeriod values, smoothed with a simple average of kSmooth
// raw readings. Bounded [0,100]; a flat RSI window resolves to the
// neutral value rather than dividing by zero.
type StochRSI struct {
	rsi         *RSI
	stochPeriod int
	kSmooth     int

	rsiWindow []float64 // last stochPeriod RSI values
	rawWindow []float64 // last kSmooth raw stochastic values
}

// NewStochRSI creates a Stochastic RSI %K indicator.
func NewStochRSI(rsiPeriod, stochPeriod, kSmooth int) *StochRSI {
	return &StochRSI{
		rsi:         NewRSI(rsiPeriod),
		stochPeriod: stochPeriod,
		kSmooth:     kSmooth,
	}
}

func (s *StochRSI) Name() string {
	return fmt.Sprintf("StochRSI(%d,%d,%d)", s.rsi.period, s.stochPeriod, s.kSmooth)
}

func (s *StochRSI) Warmup() int {
	return s.rsi.Warmup() + s.stochPeriod + s.kSmooth - 2
}

func (s *StochRSI) Reset() {
	s.rsi.Reset()
	s.rsiWindow = s.rsiWindow[:0]
	s.rawWindow = s.rawWindow[:0]
}

func (s *StochRSI) Update(b market.Bar) {
	s.rsi.Update(b)
	if !s.rsi.Ready() {
		return
	}

	s.rsiWindow = append(s.rsiWindow, s.rsi.Value())
	if len(s.rsiWindow) > s.stochPeriod {
		s.rsiWindow = s.rsiWindow[1:]
	}
	if len(s.rsiWindow) < s.stochPeriod {
		return
	}

	lo, hi := s.rsiWindow[0], s.rsiWindow[0]
	for _, v := range s.rsiWindow[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	raw := NeutralOscillator
	if hi > lo {
		raw = (s.rsi.Value() - lo) / (hi - lo) * 100
	}

	s.rawWindow = append(s.rawWindow, raw)
	if len(s.rawWindow) > s.kSmooth {
		s.rawWindow = s.rawWindow[1:]
	}
}

func (s *StochRSI) Ready() bool {
	return len(s.rawWindow) >= s.kSmooth
}

func (s *StochRSI) Value() float64 {
	if !s.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range s.rawWindow {
		sum += v
	}
	return sum / float64(len(s.rawWindow))
}
