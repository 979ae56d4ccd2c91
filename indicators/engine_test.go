package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cetrader/market"
)

func syntheticSeries(n int) *market.Series {
	s := market.NewSeries("NIFTY26JAN25100CE", market.Interval2Min, 0)
	for i := 0; i < n; i++ {
		// A wavy uptrend so every indicator sees both gains and losses.
		c := 100 + 0.5*float64(i) + 4*math.Sin(float64(i)/3)
		b := testBar(i, c)
		b.High = c + 1.5
		b.Low = c - 1.5
		if err := s.Append(b); err != nil {
			panic(err)
		}
	}
	return s
}

func TestEngineOutputParallelToInput(t *testing.T) {
	eng := NewEngine(DefaultParams())
	series := syntheticSeries(80)

	snaps := eng.Compute(series)
	require.Len(t, snaps, series.Len())

	warmup := eng.Warmup()
	require.Less(t, warmup, series.Len())

	for i, snap := range snaps {
		if i < warmup {
			assert.False(t, snap.Valid, "snapshot %d inside warmup must be invalid", i)
		} else {
			assert.True(t, snap.Valid, "snapshot %d past warmup must be valid", i)
		}
	}
}

func TestEngineDeterministic(t *testing.T) {
	eng := NewEngine(DefaultParams())
	series := syntheticSeries(90)

	first := eng.Compute(series)
	second := eng.Compute(series)

	require.Equal(t, first, second)
}

func TestEngineDoesNotMutatePastSnapshots(t *testing.T) {
	eng := NewEngine(DefaultParams())

	series := syntheticSeries(70)
	before := eng.Compute(series)

	// Appending a bar must leave every earlier snapshot untouched.
	last, _ := series.Last()
	next := testBar(70, last.Close+2)
	require.NoError(t, series.Append(next))

	after := eng.Compute(series)
	require.Len(t, after, 71)
	assert.Equal(t, before, after[:70])
}

func TestEngineValidSnapshotsCarryLevels(t *testing.T) {
	eng := NewEngine(DefaultParams())
	snaps := eng.Compute(syntheticSeries(90))

	last := snaps[len(snaps)-1]
	require.True(t, last.Valid)
	assert.NotEqual(t, Flat, last.Trend)
	assert.Greater(t, last.TrendLevel, 0.0)
	assert.Greater(t, last.Support, 0.0)
	assert.Greater(t, last.EMAFast, 0.0)
	assert.Greater(t, last.EMASlow, 0.0)
	assert.GreaterOrEqual(t, last.Stoch, 0.0)
	assert.LessOrEqual(t, last.Stoch, 100.0)
	assert.GreaterOrEqual(t, last.RSI, 0.0)
	assert.LessOrEqual(t, last.RSI, 100.0)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := DefaultParams()
	bad.RSIPeriod = 0
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.TrendMultiplier = -1
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.SupportOffset = -1
	assert.Error(t, bad.Validate())
}
