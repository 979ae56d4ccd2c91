package indicators

import (
	"fmt"

	"cetrader/market"
)

// SuperTrend is a streaming banded-ATR trailing stop. While bullish the
// value tracks the lower band below price; while bearish it tracks the
// upper band above price. Direction flips only when close crosses the
// active band, and the band then recalculates from the new side, so the
// direction is sticky within a bar regardless of intrabar noise.
type SuperTrend struct {
	period     int
	multiplier float64
	atr        *ATR

	upper, lower float64 // final bands
	value        float64
	dir          Direction
	flipped      bool

	prevClose float64
	seeded    bool
}

// NewSuperTrend creates a SuperTrend with the given ATR period and
// band multiplier.
func NewSuperTrend(period int, multiplier float64) *SuperTrend {
	return &SuperTrend{
		period:     period,
		multiplier: multiplier,
		atr:        NewATR(period),
		dir:        Flat,
	}
}

func (s *SuperTrend) Name() string {
	return fmt.Sprintf("SuperTrend(%d,%g)", s.period, s.multiplier)
}

func (s *SuperTrend) Warmup() int {
	return s.atr.Warmup()
}

func (s *SuperTrend) Reset() {
	s.atr.Reset()
	s.upper = 0
	s.lower = 0
	s.value = 0
	s.dir = Flat
	s.flipped = false
	s.prevClose = 0
	s.seeded = false
}

func (s *SuperTrend) Update(b market.Bar) {
	s.flipped = false
	s.atr.Update(b)
	if !s.atr.Ready() {
		s.prevClose = b.Close
		return
	}

	mid := (b.High + b.Low) / 2
	band := s.multiplier * s.atr.Value()
	basicUpper := mid + band
	basicLower := mid - band

	if !s.seeded {
		s.upper = basicUpper
		s.lower = basicLower
		if b.Close > basicUpper {
			s.dir = Bullish
			s.value = s.lower
		} else {
			s.dir = Bearish
			s.value = s.upper
		}
		s.seeded = true
		s.prevClose = b.Close
		return
	}

	// Bands only tighten unless the previous close already broke them.
	if basicUpper < s.upper || s.prevClose > s.upper {
		s.upper = basicUpper
	}
	if basicLower > s.lower || s.prevClose < s.lower {
		s.lower = basicLower
	}

	switch s.dir {
	case Bullish:
		if b.Close < s.lower {
			s.dir = Bearish
			s.flipped = true
			s.upper = basicUpper
			s.value = s.upper
		} else {
			s.value = s.lower
		}
	default: // Bearish
		if b.Close > s.upper {
			s.dir = Bullish
			s.flipped = true
			s.lower = basicLower
			s.value = s.lower
		} else {
			s.value = s.upper
		}
	}

	s.prevClose = b.Close
}

func (s *SuperTrend) Ready() bool {
	return s.seeded
}

// Value returns the current trailing-stop level.
func (s *SuperTrend) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.value
}

// Direction returns the current trend direction, Flat until ready.
func (s *SuperTrend) Direction() Direction {
	if !s.Ready() {
		return Flat
	}
	return s.dir
}

// Flipped reports whether the direction changed on the last update.
func (s *SuperTrend) Flipped() bool {
	return s.flipped
}
