package indicators

import (
	"fmt"

	"cetrader/market"
)

// SupportLine is an EMA of bar lows delayed by a fixed bar offset. The
// shift makes it lag recent price action by design: it is read as a
// trailing support level, not a live average.
type SupportLine struct {
	ema    *EMA
	offset int
	ring   []float64 // last offset+1 EMA values, oldest first
}

// NewSupportLine creates a shifted EMA-of-lows support line.
func NewSupportLine(period, offset int) *SupportLine {
	return &SupportLine{
		ema:    NewEMAOf(period, LowPrice),
		offset: offset,
	}
}

func (l *SupportLine) Name() string {
	return fmt.Sprintf("SupportLine(%d,+%d)", l.ema.period, l.offset)
}

func (l *SupportLine) Warmup() int {
	return l.ema.Warmup() + l.offset
}

func (l *SupportLine) Reset() {
	l.ema.Reset()
	l.ring = l.ring[:0]
}

func (l *SupportLine) Update(b market.Bar) {
	l.ema.Update(b)
	if !l.ema.Ready() {
		return
	}
	l.ring = append(l.ring, l.ema.Value())
	if len(l.ring) > l.offset+1 {
		l.ring = l.ring[1:]
	}
}

func (l *SupportLine) Ready() bool {
	return len(l.ring) > l.offset
}

// Value returns the EMA value from offset bars ago.
func (l *SupportLine) Value() float64 {
	if !l.Ready() {
		return 0
	}
	return l.ring[0]
}
