package indicators

import (
	"fmt"

	"cetrader/market"
)

// MACD is a streaming Moving Average Convergence Divergence indicator:
// a fast and slow EMA of close, a signal EMA of their difference, and
// the histogram (line minus signal).
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD with the given fast, slow and signal periods.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

func (m *MACD) Warmup() int {
	return m.slow.period + m.signal.period
}

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}

func (m *MACD) Update(b market.Bar) {
	m.fast.Update(b)
	m.slow.Update(b)
	if m.fast.Ready() && m.slow.Ready() {
		m.signal.updateRaw(m.fast.Value() - m.slow.Value())
	}
}

func (m *MACD) Ready() bool {
	return m.signal.Ready()
}

// Value returns the histogram, satisfying the Indicator interface.
func (m *MACD) Value() float64 {
	return m.Histogram()
}

// Line returns the MACD line (fast EMA minus slow EMA).
func (m *MACD) Line() float64 {
	if !m.Ready() {
		return 0
	}
	return m.fast.Value() - m.slow.Value()
}

// Signal returns the signal line (EMA of the MACD line).
func (m *MACD) Signal() float64 {
	if !m.Ready() {
		return 0
	}
	return m.signal.Value()
}

// Histogram returns the MACD line minus the signal line.
func (m *MACD) Histogram() float64 {
	if !m.Ready() {
		return 0
	}
	return m.Line() - m.Signal()
}
