package trader

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cetrader/broker"
	"cetrader/broker/paper"
	"cetrader/config"
	"cetrader/indicators"
	"cetrader/journal"
	"cetrader/market"
	"cetrader/session"
	"cetrader/signal"
)

type stubSelector struct {
	inst  market.Instrument
	calls int
}

func (s *stubSelector) Select(ctx context.Context) (market.Instrument, error) {
	s.calls++
	return s.inst, nil
}

// scriptedEval pops one decision per call and repeats the last one
// when the script runs out. It records the bar spacing of the series
// it was handed, so tests can tell which timeframe was evaluated.
type scriptedEval struct {
	buys        []signal.BuyDecision
	exits       []signal.ExitDecision
	buyCalls    int
	exitCalls   int
	exitSpacing time.Duration
}

func (s *scriptedEval) Buy(_ []indicators.Snapshot) signal.BuyDecision {
	s.buyCalls++
	if len(s.buys) == 0 {
		return signal.BuyDecision{Valid: true}
	}
	d := s.buys[0]
	if len(s.buys) > 1 {
		s.buys = s.buys[1:]
	}
	return d
}

func (s *scriptedEval) Exit(snaps []indicators.Snapshot) signal.ExitDecision {
	s.exitCalls++
	if n := len(snaps); n >= 2 {
		s.exitSpacing = snaps[n-1].Time.Sub(snaps[n-2].Time)
	}
	if len(s.exits) == 0 {
		return signal.ExitDecision{Valid: true, Trigger: signal.TriggerNone}
	}
	d := s.exits[0]
	if len(s.exits) > 1 {
		s.exits = s.exits[1:]
	}
	return d
}

// randomEval flips entry and exit verdicts at random.
type randomEval struct {
	rng *rand.Rand
}

func (r *randomEval) Buy(_ []indicators.Snapshot) signal.BuyDecision {
	return signal.BuyDecision{Valid: true, Eligible: r.rng.Intn(3) == 0}
}

func (r *randomEval) Exit(_ []indicators.Snapshot) signal.ExitDecision {
	if r.rng.Intn(4) == 0 {
		return signal.ExitDecision{Valid: true, Trigger: signal.TriggerMomentumBearish}
	}
	return signal.ExitDecision{Valid: true, Trigger: signal.TriggerNone}
}

type memJournal struct {
	trades []journal.TradeRecord
	cycles []journal.CycleRecord
}

func (m *memJournal) RecordTrade(t journal.TradeRecord) error { m.trades = append(m.trades, t); return nil }
func (m *memJournal) RecordCycle(c journal.CycleRecord) error { m.cycles = append(m.cycles, c); return nil }
func (m *memJournal) Close() error                            { return nil }

type memReporter struct {
	entered int
	exited  int
	closed  []journal.Summary
}

func (m *memReporter) Entered(journal.TradeRecord) { m.entered++ }
func (m *memReporter) Exited(journal.CycleRecord)  { m.exited++ }
func (m *memReporter) DayClosed(s journal.Summary) { m.closed = append(m.closed, s) }

// harness wires a trader against the paper engine with a flat tape at
// the given premium.
type harness struct {
	trader   *Trader
	engine   *paper.Engine
	eval     *scriptedEval
	selector *stubSelector
	journal  *memJournal
	reporter *memReporter
	open     time.Time
}

func eligible() signal.BuyDecision {
	return signal.BuyDecision{Valid: true, Eligible: true}
}

func newHarness(t *testing.T, cash float64, eval *scriptedEval) *harness {
	t.Helper()

	open := time.Date(2026, 1, 16, 9, 15, 0, 0, session.IST)
	e := paper.NewEngine(cash)

	// Flat tapes at premium 100 covering the whole session.
	var twoMin, fiveMin []market.Bar
	for ts := open; ts.Before(open.Add(7 * time.Hour)); ts = ts.Add(2 * time.Minute) {
		twoMin = append(twoMin, market.Bar{Time: ts, Open: 100, High: 101, Low: 99, Close: 100})
	}
	for ts := open; ts.Before(open.Add(7 * time.Hour)); ts = ts.Add(5 * time.Minute) {
		fiveMin = append(fiveMin, market.Bar{Time: ts, Open: 100, High: 101, Low: 99, Close: 100})
	}
	e.LoadTape(market.Interval2Min, twoMin)
	e.LoadTape(market.Interval5Min, fiveMin)

	j := &memJournal{}
	r := &memReporter{}

	cfg := config.Default()
	cfg.Polling.Lookback = 50

	sel := &stubSelector{inst: market.Instrument{Symbol: "NIFTY2612219400CE", Token: 101, Strike: 19400, LTP: 100, LotSize: 75, Exchange: "NFO"}}
	tr, err := New(cfg, Deps{
		Data:     e,
		Gateway:  e,
		Selector: sel,
		Clock:    e,
		Journal:  j,
		Reporter: r,
		Log:      zap.NewNop(),

		Evaluator: eval,
	})
	require.NoError(t, err)

	return &harness{trader: tr, engine: e, eval: eval, selector: sel, journal: j, reporter: r, open: open}
}

// stepAt advances the simulated clock and runs one polling round.
func (h *harness) stepAt(t *testing.T, offset time.Duration) error {
	t.Helper()
	h.engine.Advance(h.open.Add(offset))
	return h.trader.Step(context.Background())
}

func TestEntryOnDoubleConfirmation(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{buys: []signal.BuyDecision{eligible()}})

	require.NoError(t, h.stepAt(t, 45*time.Minute)) // 10:00
	assert.Equal(t, PhaseHolding, h.trader.Phase())

	pos := h.trader.Position()
	require.NotNil(t, pos)
	// 50000 * 0.90 = 45000 capital; one lot costs 100 * 75 = 7500.
	assert.Equal(t, 450, pos.Quantity)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.Equal(t, 450, h.engine.Position())

	require.Len(t, h.journal.trades, 1)
	assert.Equal(t, "BUY", h.journal.trades[0].Side)
	assert.Equal(t, 1, h.reporter.entered)
}

func TestNoEntryWhenOneTimeframeDisagrees(t *testing.T) {
	// Primary series agrees, confirmation does not. Per-round the
	// primary verdict is computed first, then the confirm one.
	h := newHarness(t, 50000, &scriptedEval{buys: []signal.BuyDecision{
		eligible(),
		{Valid: true, Eligible: false},
	}})

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Nil(t, h.trader.Position())
	assert.Empty(t, h.journal.trades)
}

func TestPrimaryVerdictReusedOnConfirmTicks(t *testing.T) {
	// Round one: primary eligible, confirm not. Round two refreshes
	// only the confirm series; its fresh verdict combines with the
	// primary verdict carried from the last primary tick.
	eval := &scriptedEval{buys: []signal.BuyDecision{
		eligible(),                     // primary, round one
		{Valid: true, Eligible: false}, // confirm, round one
		eligible(),                     // confirm, round two
	}}
	h := newHarness(t, 50000, eval)

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Equal(t, 2, eval.buyCalls)

	require.NoError(t, h.stepAt(t, 45*time.Minute+5*time.Second))
	assert.Equal(t, 3, eval.buyCalls, "confirm-only tick must still evaluate entry")
	assert.Equal(t, PhaseHolding, h.trader.Phase())
	require.NotNil(t, h.trader.Position())
}

func TestIneligiblePrimaryVerdictHoldsUntilNextPrimaryTick(t *testing.T) {
	eval := &scriptedEval{buys: []signal.BuyDecision{
		{Valid: true, Eligible: false}, // primary, round one
		eligible(),                     // confirm, every round after
	}}
	h := newHarness(t, 50000, eval)

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())

	// Confirm-only tick: fresh confirm verdict, but the cached primary
	// one still says no.
	require.NoError(t, h.stepAt(t, 45*time.Minute+5*time.Second))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Nil(t, h.trader.Position())

	// Next primary tick recomputes the primary verdict; both agree.
	require.NoError(t, h.stepAt(t, 45*time.Minute+10*time.Second))
	assert.Equal(t, PhaseHolding, h.trader.Phase())
}

func TestEntryDeclineLogsFailedConditions(t *testing.T) {
	eval := &scriptedEval{buys: []signal.BuyDecision{
		eligible(), // primary
		{Valid: true, Eligible: false, Conditions: signal.Conditions{TrendBullish: true}}, // confirm
	}}
	h := newHarness(t, 50000, eval)
	core, logs := observer.New(zap.DebugLevel)
	h.trader.deps.Log = zap.New(core)

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	assert.Nil(t, h.trader.Position())

	declined := logs.FilterMessage("entry declined").All()
	require.Len(t, declined, 1)
	assert.Contains(t, declined[0].ContextMap()["confirm_failed"], "cross_bullish")
}

func TestNoEntryDuringWatchOnly(t *testing.T) {
	eval := &scriptedEval{buys: []signal.BuyDecision{eligible()}}
	h := newHarness(t, 50000, eval)

	require.NoError(t, h.stepAt(t, 12*time.Minute)) // 9:27, watch-only
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Zero(t, eval.buyCalls)
}

func TestNoEntryInsideCloseMargin(t *testing.T) {
	eval := &scriptedEval{buys: []signal.BuyDecision{eligible()}}
	h := newHarness(t, 50000, eval)

	require.NoError(t, h.stepAt(t, 6*time.Hour+5*time.Minute)) // 15:20
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Nil(t, h.trader.Position())
}

func TestZeroQuantityTriggersCooldown(t *testing.T) {
	// One lot costs 7500; 0.90 * 5000 cannot carry it.
	eval := &scriptedEval{buys: []signal.BuyDecision{eligible()}}
	h := newHarness(t, 5000, eval)

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Nil(t, h.trader.Position())

	calls := eval.buyCalls
	require.NoError(t, h.stepAt(t, 45*time.Minute+5*time.Second))
	assert.Equal(t, calls, eval.buyCalls, "cooldown must suppress the entry check")

	// After the fixed cooldown the loop evaluates again; the balance
	// still carries no lot, so it stays flat.
	require.NoError(t, h.stepAt(t, 46*time.Minute+10*time.Second))
	assert.Greater(t, eval.buyCalls, calls)
	assert.Nil(t, h.trader.Position())
}

func TestExitTriggerClosesCycle(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{
		buys: []signal.BuyDecision{eligible()},
		exits: []signal.ExitDecision{
			{Valid: true, Trigger: signal.TriggerNone},
			{Valid: true, Trigger: signal.TriggerMomentumBearish},
		},
	})

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	require.Equal(t, PhaseHolding, h.trader.Phase())

	// First exit check runs on the next confirm tick: no trigger yet.
	require.NoError(t, h.stepAt(t, 45*time.Minute+5*time.Second))
	assert.Equal(t, PhaseHolding, h.trader.Phase())
	assert.Equal(t, 2*time.Minute, h.eval.exitSpacing, "exit must read the confirm series")

	// Second check fires the momentum trigger.
	require.NoError(t, h.stepAt(t, 45*time.Minute+10*time.Second))
	assert.Equal(t, PhaseCycleComplete, h.trader.Phase())
	assert.Nil(t, h.trader.Position())
	assert.Equal(t, 0, h.engine.Position())

	cycles := h.trader.Ledger().Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "momentum_bearish", cycles[0].ExitReason)
	assert.Equal(t, 1, h.reporter.exited)

	require.Len(t, h.journal.cycles, 1)
	require.Len(t, h.journal.trades, 2)
	assert.Equal(t, "SELL", h.journal.trades[1].Side)
}

func TestCycleCompleteReselectsInstrument(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{
		buys: []signal.BuyDecision{
			eligible(),
			eligible(),
			{Valid: true, Eligible: false}, // no second entry
		},
		exits: []signal.ExitDecision{{Valid: true, Trigger: signal.TriggerStrongBearish}},
	})

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	require.Equal(t, PhaseHolding, h.trader.Phase())

	require.NoError(t, h.stepAt(t, 45*time.Minute+5*time.Second))
	require.Equal(t, PhaseCycleComplete, h.trader.Phase())
	calls := h.selector.calls

	// The next round picks a contract afresh and resumes watching.
	require.NoError(t, h.stepAt(t, 45*time.Minute+10*time.Second))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Equal(t, calls+1, h.selector.calls)
}

func TestSessionCloseForcesExit(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{buys: []signal.BuyDecision{eligible()}})

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	require.Equal(t, PhaseHolding, h.trader.Phase())

	err := h.stepAt(t, 6*time.Hour+15*time.Minute) // 15:30
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, PhaseSessionClosed, h.trader.Phase())
	assert.Nil(t, h.trader.Position())

	cycles := h.trader.Ledger().Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "session_close", cycles[0].ExitReason)

	require.Len(t, h.reporter.closed, 1)
	assert.Equal(t, 1, h.reporter.closed[0].Cycles)

	// The loop stays stopped.
	err = h.stepAt(t, 6*time.Hour+16*time.Minute)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestDayClosedReportedOnceEvenWhenFlat(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{buys: []signal.BuyDecision{{Valid: true}}})

	err := h.stepAt(t, 7*time.Hour)
	assert.ErrorIs(t, err, ErrSessionClosed)
	require.Len(t, h.reporter.closed, 1)
	assert.Equal(t, journal.Summary{}, h.reporter.closed[0])
}

func TestPositionInvariantUnderRandomRounds(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{})
	h.trader.eval = &randomEval{rng: rand.New(rand.NewSource(7))}

	// Whatever order entries and exits fire in, the loop never carries
	// more than one position and never reports Holding while flat.
	for i := 0; i < 400; i++ {
		require.NoError(t, h.stepAt(t, 30*time.Minute+time.Duration(i)*5*time.Second))

		pos := h.trader.Position()
		if h.trader.Phase() == PhaseHolding {
			require.NotNil(t, pos)
		} else {
			require.Nil(t, pos)
		}
		if pos != nil {
			require.Equal(t, pos.Quantity, h.engine.Position())
		} else {
			require.Zero(t, h.engine.Position())
		}
	}
}

func TestHoldingWithoutPositionIsFatal(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{})
	h.trader.phase = PhaseHolding

	err := h.stepAt(t, 45*time.Minute)
	assert.ErrorIs(t, err, ErrPositionInvariant)
	assert.Equal(t, PhaseSessionClosed, h.trader.Phase())
}

type rejectingGateway struct {
	broker.OrderGateway
}

func (g *rejectingGateway) PlaceOrder(ctx context.Context, o broker.Order) (broker.Receipt, error) {
	return broker.Receipt{}, &broker.RejectedError{Reason: "insufficient funds"}
}

func TestEntryRejectionResumesWatching(t *testing.T) {
	h := newHarness(t, 50000, &scriptedEval{buys: []signal.BuyDecision{eligible()}})
	h.trader.deps.Gateway = &rejectingGateway{OrderGateway: h.engine}

	require.NoError(t, h.stepAt(t, 45*time.Minute))
	assert.Equal(t, PhaseAwaitingConfirmation, h.trader.Phase())
	assert.Nil(t, h.trader.Position())
	assert.Empty(t, h.journal.trades)
}

// breakoutPrice is a minute-level price path: a slow drift down, a
// sharp breakout at minute 195 (12:30), then a steady climb into the
// close. The breakout flips both the trend direction and the EMA
// crossover on the same bar of each timeframe.
func breakoutPrice(m int) float64 {
	const breakout = 195
	if m < breakout {
		return 120 - 0.1*float64(m)
	}
	return 150 + 0.2*float64(m-breakout)
}

func breakoutBars(open time.Time, step int) []market.Bar {
	var bars []market.Bar
	for m := 0; m+step <= 375; m += step {
		o, c := breakoutPrice(m), breakoutPrice(m+step)
		bars = append(bars, market.Bar{
			Time:   open.Add(time.Duration(m) * time.Minute),
			Open:   o,
			High:   math.Max(o, c) + 0.5,
			Low:    math.Min(o, c) - 0.5,
			Close:  c,
			Volume: 1000,
		})
	}
	return bars
}

// TestBreakoutEntryAndMomentumExit drives the loop with the production
// indicator engine and evaluator over a synthetic session. The
// breakout bar makes both timeframes buy-eligible at 12:29; the first
// round that sees it on the confirm series must open the position.
// Once the post-breakout surge in the momentum histogram fades, its
// line drops under the signal line on the confirm series and the
// position must close on that trigger.
func TestBreakoutEntryAndMomentumExit(t *testing.T) {
	open := time.Date(2026, 1, 16, 9, 15, 0, 0, session.IST)
	e := paper.NewEngine(100_000)
	e.LoadTape(market.Interval2Min, breakoutBars(open, 2))
	e.LoadTape(market.Interval5Min, breakoutBars(open, 5))

	j := &memJournal{}
	r := &memReporter{}

	tr, err := New(config.Default(), Deps{
		Data:     e,
		Gateway:  e,
		Selector: &stubSelector{inst: market.Instrument{Symbol: "NIFTY2612219400CE", Token: 101, Strike: 19400, LTP: 100, LotSize: 75, Exchange: "NFO"}},
		Clock:    e,
		Journal:  j,
		Reporter: r,
		Log:      zap.NewNop(),
	})
	require.NoError(t, err)

	var entered, exited time.Time
	closed := false
	for off := time.Duration(0); off <= 7*time.Hour; off += 5 * time.Second {
		e.Advance(open.Add(off))
		err := tr.Step(context.Background())
		if errors.Is(err, ErrSessionClosed) {
			closed = true
			break
		}
		require.NoError(t, err)

		if entered.IsZero() && tr.Phase() == PhaseHolding {
			entered = open.Add(off)
		}
		if !entered.IsZero() && exited.IsZero() && tr.Position() == nil {
			exited = open.Add(off)
		}
	}
	require.True(t, closed, "session never closed")

	// The confirm-series breakout bar opens at 12:29; entry lands on
	// the first polling round that can see it.
	breakout := open.Add(194 * time.Minute)
	require.False(t, entered.IsZero(), "breakout never produced an entry")
	assert.False(t, entered.Before(breakout), "entered at %v, before the breakout bar", entered)
	assert.True(t, entered.Before(breakout.Add(time.Minute)), "entered at %v, breakout bar at %v", entered, breakout)

	require.False(t, exited.IsZero(), "position never closed on a trigger")
	assert.True(t, exited.Before(entered.Add(40*time.Minute)), "momentum turn not caught, exited at %v", exited)

	cycles := tr.Ledger().Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "momentum_bearish", cycles[0].ExitReason)
	assert.Greater(t, cycles[0].RealizedPL, 0.0)

	require.Len(t, j.trades, 2)
	assert.Equal(t, "BUY", j.trades[0].Side)
	assert.Equal(t, "SELL", j.trades[1].Side)
	require.Len(t, r.closed, 1)
	assert.Equal(t, 1, r.closed[0].Cycles)
}

func TestBeforeOpenIsIdle(t *testing.T) {
	eval := &scriptedEval{buys: []signal.BuyDecision{eligible()}}
	h := newHarness(t, 50000, eval)

	require.NoError(t, h.stepAt(t, -30*time.Minute)) // 8:45
	assert.Equal(t, PhaseInitializing, h.trader.Phase())
	assert.Zero(t, eval.buyCalls)
}
