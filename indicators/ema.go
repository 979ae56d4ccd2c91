package indicators

import (
	"fmt"

	"cetrader/market"
)

// PriceFunc selects which price an average is computed over.
type PriceFunc func(market.Bar) float64

// ClosePrice selects the bar close.
func ClosePrice(b market.Bar) float64 { return b.Close }

// LowPrice selects the bar low.
func LowPrice(b market.Bar) float64 { return b.Low }

// EMA is a streaming Exponential Moving Average. The first value is
// seeded with the SMA of the first 'period' prices.
type EMA struct {
	period     int
	price      PriceFunc
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates an EMA of the close over the given period.
func NewEMA(period int) *EMA {
	return NewEMAOf(period, ClosePrice)
}

// NewEMAOf creates an EMA of an arbitrary bar price over the given period.
func NewEMAOf(period int, price PriceFunc) *EMA {
	return &EMA{
		period:     period,
		price:      price,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *EMA) Warmup() int {
	return e.period
}

func (e *EMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *EMA) Update(b market.Bar) {
	v := e.price(b)
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

func (e *EMA) Ready() bool {
	return e.count >= e.period
}

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// updateRaw feeds a raw value instead of a bar price. Used by MACD for
// the signal line, which is an EMA of the MACD line rather than of price.
func (e *EMA) updateRaw(v float64) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}
