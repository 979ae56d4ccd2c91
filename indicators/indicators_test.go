package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cetrader/market"
)

func testBar(i int, close float64) market.Bar {
	t := time.Date(2026, 1, 16, 9, 15, 0, 0, time.UTC)
	return market.Bar{
		Time:  t.Add(time.Duration(2*i) * time.Minute),
		Open:  close,
		High:  close + 1,
		Low:   close - 1,
		Close: close,
	}
}

func feedCloses(ind Indicator, closes []float64) {
	for i, c := range closes {
		ind.Update(testBar(i, c))
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	ema := NewEMA(5)

	feedCloses(ema, []float64{100, 102, 104, 106})
	assert.False(t, ema.Ready())

	ema.Update(testBar(4, 108))
	require.True(t, ema.Ready())
	// Seed: (100+102+104+106+108)/5 = 104
	assert.InDelta(t, 104.0, ema.Value(), 1e-9)

	// Next: (110-104)*2/6 + 104 = 106
	ema.Update(testBar(5, 110))
	assert.InDelta(t, 106.0, ema.Value(), 1e-9)
}

func TestEMALowPriceSelector(t *testing.T) {
	ema := NewEMAOf(3, LowPrice)
	feedCloses(ema, []float64{100, 100, 100})

	require.True(t, ema.Ready())
	// testBar low = close - 1
	assert.InDelta(t, 99.0, ema.Value(), 1e-9)
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i < 40; i++ {
		rsi.Update(testBar(i, 100))
	}

	require.True(t, rsi.Ready())
	assert.Equal(t, NeutralOscillator, rsi.Value())
}

func TestRSIAllGainsIsMax(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i < 40; i++ {
		rsi.Update(testBar(i, 100+float64(i)))
	}

	require.True(t, rsi.Ready())
	assert.Equal(t, 100.0, rsi.Value())
}

func TestRSIBounded(t *testing.T) {
	rsi := NewRSI(14)
	closes := []float64{100, 103, 99, 104, 98, 105, 97, 106, 96, 107, 95, 108, 94, 109, 93, 110}
	feedCloses(rsi, closes)

	require.True(t, rsi.Ready())
	assert.GreaterOrEqual(t, rsi.Value(), 0.0)
	assert.LessOrEqual(t, rsi.Value(), 100.0)
}

func TestStochRSIFlatRangeIsNeutral(t *testing.T) {
	stoch := NewStochRSI(14, 14, 3)
	for i := 0; i < 60; i++ {
		stoch.Update(testBar(i, 250))
	}

	require.True(t, stoch.Ready())
	assert.Equal(t, NeutralOscillator, stoch.Value())
}

func TestStochRSIBounded(t *testing.T) {
	stoch := NewStochRSI(14, 14, 3)
	for i := 0; i < 80; i++ {
		c := 100 + 10*float64(i%7)
		stoch.Update(testBar(i, c))
	}

	require.True(t, stoch.Ready())
	assert.GreaterOrEqual(t, stoch.Value(), 0.0)
	assert.LessOrEqual(t, stoch.Value(), 100.0)
}

func TestMACDHistogramSign(t *testing.T) {
	up := NewMACD(5, 13, 6)
	for i := 0; i < 60; i++ {
		// Accelerating rise keeps the fast EMA pulling away from the slow.
		up.Update(testBar(i, 100+float64(i*i)/10))
	}
	require.True(t, up.Ready())
	assert.Greater(t, up.Line(), 0.0)
	assert.Greater(t, up.Histogram(), 0.0)
	assert.InDelta(t, up.Line()-up.Signal(), up.Histogram(), 1e-12)

	down := NewMACD(5, 13, 6)
	for i := 0; i < 60; i++ {
		down.Update(testBar(i, 300-float64(i*i)/10))
	}
	require.True(t, down.Ready())
	assert.Less(t, down.Line(), 0.0)
	assert.Less(t, down.Histogram(), 0.0)
}

func TestSupportLineLagsByOffset(t *testing.T) {
	period, offset := 8, 9
	line := NewSupportLine(period, offset)
	plain := NewEMAOf(period, LowPrice)

	var plainValues []float64
	for i := 0; i < 40; i++ {
		b := testBar(i, 100+float64(i))
		line.Update(b)
		plain.Update(b)
		if plain.Ready() {
			plainValues = append(plainValues, plain.Value())
		}
	}

	require.True(t, line.Ready())
	// The support line reads the EMA value from 'offset' bars ago.
	assert.InDelta(t, plainValues[len(plainValues)-1-offset], line.Value(), 1e-12)
}

func TestATRWarmupAndValue(t *testing.T) {
	atr := NewATR(3)
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}
	for _, b := range bars {
		atr.Update(b)
	}

	require.True(t, atr.Ready())
	assert.InDelta(t, 2.0, atr.Value(), 1e-9)
}

func TestSuperTrendDirectionSticky(t *testing.T) {
	base := make([]market.Bar, 0, 30)
	for i := 0; i < 20; i++ {
		base = append(base, testBar(i, 100-float64(i))) // downtrend: bearish
	}
	// Sharp reversal that crosses the upper band.
	for i := 20; i < 30; i++ {
		base = append(base, testBar(i, 80+8*float64(i-19)))
	}

	st := NewSuperTrend(7, 3)
	flipBar := -1
	for i, b := range base {
		st.Update(b)
		if st.Ready() && st.Direction() == Bullish {
			flipBar = i
			break
		}
	}
	require.GreaterOrEqual(t, flipBar, 0, "expected a bullish flip")

	// Inject intrabar noise into the flip bar: the band carried into the
	// bar decides the cross, so widening the bar's own range must not
	// flip the direction back.
	for _, spike := range []float64{5, 20, 80} {
		st2 := NewSuperTrend(7, 3)
		for i, b := range base[:flipBar+1] {
			if i == flipBar {
				b.High += spike
				b.Low -= spike
			}
			st2.Update(b)
		}
		assert.Equal(t, Bullish, st2.Direction(), "spike=%v", spike)
	}
}

func TestSuperTrendTracksBelowPriceWhileBullish(t *testing.T) {
	st := NewSuperTrend(7, 3)
	for i := 0; i < 40; i++ {
		st.Update(testBar(i, 100+3*float64(i)))
	}

	require.True(t, st.Ready())
	assert.Equal(t, Bullish, st.Direction())
	assert.Less(t, st.Value(), 100.0+3*39)
}

func TestResetClearsState(t *testing.T) {
	inds := []Indicator{
		NewEMA(5),
		NewRSI(14),
		NewStochRSI(14, 14, 3),
		NewMACD(5, 13, 6),
		NewATR(7),
		NewSuperTrend(7, 3),
		NewSupportLine(8, 9),
	}
	for _, ind := range inds {
		for i := 0; i < 80; i++ {
			ind.Update(testBar(i, 100+float64(i%9)))
		}
		require.True(t, ind.Ready(), ind.Name())
		ind.Reset()
		assert.False(t, ind.Ready(), ind.Name())
		assert.Equal(t, 0.0, ind.Value(), ind.Name())
	}
}
