package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cetrader/indicators"
)

// buySnapshot builds a snapshot whose seven buy conditions hold or fail
// according to the given flags, with the override path kept off.
func buySnapshot(trend, aboveTrend, aboveSupport, cross, stoch, rsi, macd bool) indicators.Snapshot {
	s := indicators.Snapshot{Valid: true, Close: 100}

	if trend {
		s.Trend = indicators.Bullish
	} else {
		s.Trend = indicators.Bearish
	}
	if aboveTrend {
		s.TrendLevel = 95
	} else {
		s.TrendLevel = 105
	}
	if aboveSupport {
		s.Support = 90
	} else {
		s.Support = 110
	}
	s.CrossBullish = cross
	if stoch {
		s.Stoch = 40
	} else {
		s.Stoch = 60
		s.StochRising = false
	}
	if rsi {
		s.RSI = 50
		s.RSIRising = true
	} else {
		s.RSI = 50
		s.RSIRising = false
	}
	if macd {
		s.Hist = 0.5
	} else {
		s.Hist = -0.5
		s.HistImproving = false
	}
	return s
}

func TestBuyRequiresAllSevenConditions(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	for mask := 0; mask < 1<<7; mask++ {
		s := buySnapshot(
			mask&1 != 0,
			mask&2 != 0,
			mask&4 != 0,
			mask&8 != 0,
			mask&16 != 0,
			mask&32 != 0,
			mask&64 != 0,
		)
		d := ev.Buy([]indicators.Snapshot{s})
		require.True(t, d.Valid)
		assert.Equal(t, mask == 1<<7-1, d.Eligible, "mask=%07b", mask)
	}
}

func TestBuyConditionAlternatives(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	// Stoch above the cutoff still passes when rising.
	s := buySnapshot(true, true, true, true, false, true, true)
	s.StochRising = true
	assert.True(t, ev.Buy([]indicators.Snapshot{s}).Eligible)

	// Negative histogram still passes when improving.
	s = buySnapshot(true, true, true, true, true, true, false)
	s.HistImproving = true
	assert.True(t, ev.Buy([]indicators.Snapshot{s}).Eligible)

	// RSI at the cutoff fails even while rising: the bound is strict.
	s = buySnapshot(true, true, true, true, true, true, true)
	s.RSI = 65
	s.RSIRising = true
	assert.False(t, ev.Buy([]indicators.Snapshot{s}).Eligible)
}

func TestBuyOverridePath(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	// All seven fail on the oscillators, but the trend flipped bullish
	// this bar with a bullish crossover state: override fires.
	s := buySnapshot(true, true, true, true, false, false, false)
	s.TrendFlipped = true
	d := ev.Buy([]indicators.Snapshot{s})
	require.True(t, d.Valid)
	assert.True(t, d.Eligible)
	assert.True(t, d.Conditions.Override)

	// A flip while the trend is bearish does not.
	s = buySnapshot(false, true, true, true, false, false, false)
	s.TrendFlipped = true
	assert.False(t, ev.Buy([]indicators.Snapshot{s}).Eligible)

	// A crossover flip counts the same as a trend flip.
	s = buySnapshot(true, true, true, true, false, false, false)
	s.CrossFlipped = true
	assert.True(t, ev.Buy([]indicators.Snapshot{s}).Eligible)
}

func TestBuyInvalidSnapshotNeverEligible(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	s := buySnapshot(true, true, true, true, true, true, true)
	s.Valid = false
	d := ev.Buy([]indicators.Snapshot{s})
	assert.False(t, d.Valid)
	assert.False(t, d.Eligible)

	d = ev.Buy(nil)
	assert.False(t, d.Valid)
}

func TestConditionsFailedNames(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())
	s := buySnapshot(false, true, true, true, true, false, true)
	d := ev.Buy([]indicators.Snapshot{s})
	assert.Equal(t, []string{"trend_bullish", "rsi_ok"}, d.Conditions.Failed())
}

func exitSnapshot() indicators.Snapshot {
	return indicators.Snapshot{
		Valid:   true,
		Close:   100,
		Trend:   indicators.Bullish,
		Support: 90,
		EMAFast: 101,
		EMASlow: 100,
	}
}

func TestExitSupportFalling(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	s := exitSnapshot()
	s.SupportFalling = true
	s.Support = 110 // close below support
	d := ev.Exit([]indicators.Snapshot{s})
	require.True(t, d.Valid)
	assert.Equal(t, TriggerSupportFalling, d.Trigger)

	// Falling support alone is not enough while price holds above it.
	s = exitSnapshot()
	s.SupportFalling = true
	d = ev.Exit([]indicators.Snapshot{s})
	assert.Equal(t, TriggerNone, d.Trigger)
}

func TestExitStrongBearish(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	s := exitSnapshot()
	s.Trend = indicators.Bearish
	s.EMAFast = 99
	s.EMASlow = 100
	s.Support = 110
	d := ev.Exit([]indicators.Snapshot{s})
	assert.Equal(t, TriggerStrongBearish, d.Trigger)
}

func TestExitMomentumBearish(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	s := exitSnapshot()
	s.HistBearish = true
	d := ev.Exit([]indicators.Snapshot{s})
	assert.Equal(t, TriggerMomentumBearish, d.Trigger)
}

func TestExitPriorityOrder(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	// All three triggers true at once: support falling wins.
	s := exitSnapshot()
	s.SupportFalling = true
	s.Trend = indicators.Bearish
	s.EMAFast = 99
	s.EMASlow = 100
	s.Support = 110
	s.HistBearish = true
	d := ev.Exit([]indicators.Snapshot{s})
	assert.Equal(t, TriggerSupportFalling, d.Trigger)

	// Strong bearish beats momentum.
	s.SupportFalling = false
	d = ev.Exit([]indicators.Snapshot{s})
	assert.Equal(t, TriggerStrongBearish, d.Trigger)
}

func TestExitInvalidSnapshot(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds())

	s := exitSnapshot()
	s.Valid = false
	s.HistBearish = true
	d := ev.Exit([]indicators.Snapshot{s})
	assert.False(t, d.Valid)
	assert.Equal(t, TriggerNone, d.Trigger)
}

func TestTriggerStrings(t *testing.T) {
	assert.Equal(t, "none", TriggerNone.String())
	assert.Equal(t, "support_falling", TriggerSupportFalling.String())
	assert.Equal(t, "strong_bearish", TriggerStrongBearish.String())
	assert.Equal(t, "momentum_bearish", TriggerMomentumBearish.String())
}
