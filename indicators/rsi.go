package indicators

import (
	"fmt"

	"cetrader/market"
)

// NeutralOscillator is the defined value of a bounded oscillator when
// its normalization range is flat (division by zero).
const NeutralOscillator = 50.0

// RSI is a streaming Relative Strength Index using Wilder's smoothing.
type RSI struct {
	period    int
	avgGain   float64
	avgLoss   float64
	prevClose float64
	count     int
	hasPrev   bool
	sumGain   float64
	sumLoss   float64
}

// NewRSI creates a Relative Strength Index indicator with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

func (r *RSI) Warmup() int {
	// period price changes need period+1 closes.
	return r.period + 1
}

func (r *RSI) Reset() {
	r.avgGain = 0
	r.avgLoss = 0
	r.prevClose = 0
	r.count = 0
	r.hasPrev = false
	r.sumGain = 0
	r.sumLoss = 0
}

func (r *RSI) Update(b market.Bar) {
	if !r.hasPrev {
		r.prevClose = b.Close
		r.hasPrev = true
		return
	}

	change := b.Close - r.prevClose
	r.prevClose = b.Close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if r.count < r.period {
		r.sumGain += gain
		r.sumLoss += loss
		r.count++
		if r.count == r.period {
			r.avgGain = r.sumGain / float64(r.period)
			r.avgLoss = r.sumLoss / float64(r.period)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

func (r *RSI) Ready() bool {
	return r.count >= r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgGain == 0 && r.avgLoss == 0 {
		// Flat window: no direction information.
		return NeutralOscillator
	}
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
