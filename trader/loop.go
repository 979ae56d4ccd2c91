package trader

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"cetrader/broker"
	"cetrader/market"
	"cetrader/signal"
)

// Run drives the loop on the confirmation cadence until the session
// closes, the context is cancelled, or a fatal fault stops the day.
func (t *Trader) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.confirmEvery)
	defer ticker.Stop()

	for {
		if err := t.Step(ctx); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step executes one polling round at the clock's current time. Replay
// drivers call it directly after advancing their simulated clock.
func (t *Trader) Step(ctx context.Context) error {
	if t.phase == PhaseSessionClosed {
		return ErrSessionClosed
	}

	now := t.deps.Clock.Now()

	// The close overrides everything, including technical triggers.
	if t.hours.MinutesToClose(now) == 0 {
		return t.closeDay(ctx, now)
	}

	if !t.hours.IsOpen(now) {
		return nil
	}

	if t.phase == PhaseInitializing {
		t.phase = PhaseSelectingInstrument
	}
	if t.phase == PhaseCycleComplete {
		// Another cycle only starts while new entries are still allowed.
		if !t.hours.InTradableWindow(now) {
			return t.closeDay(ctx, now)
		}
		t.phase = PhaseSelectingInstrument
	}

	if t.phase == PhaseSelectingInstrument {
		if err := t.scan(ctx); err != nil {
			// Stay selecting and retry on the next round.
			return t.classifyFault("select instrument", err)
		}
	}

	if t.phase == PhaseHolding && t.position == nil {
		t.phase = PhaseSessionClosed
		return ErrPositionInvariant
	}

	confirmDue := t.lastConfirm.IsZero() || now.Sub(t.lastConfirm) >= t.confirmEvery
	primaryDue := t.lastPrimary.IsZero() || now.Sub(t.lastPrimary) >= t.primaryEvery

	if confirmDue {
		if err := t.refresh(ctx, now, t.confirm); err != nil {
			return t.classifyFault("confirm series", err)
		}
		t.lastConfirm = now
	}
	if primaryDue {
		if err := t.refresh(ctx, now, t.primary); err != nil {
			return t.classifyFault("primary series", err)
		}
		t.lastPrimary = now
	}

	switch t.phase {
	case PhaseAwaitingConfirmation:
		if !t.hours.InTradableWindow(now) {
			return nil
		}
		// The primary verdict is recomputed on its own cadence and
		// reused in between; the combined signal is re-derived from it
		// and a fresh confirm verdict every short tick, never latched.
		if primaryDue {
			t.primaryBuy = t.eval.Buy(t.engine.Compute(t.primary))
		}
		if confirmDue {
			return t.maybeEnter(ctx, now)
		}
	case PhaseHolding:
		// Exits ride the short cadence so a turn is caught fast.
		if confirmDue {
			return t.maybeExit(ctx, now)
		}
	}
	return nil
}

// classifyFault decides whether a collaborator fault ends the day. The
// retry budget was already spent inside the call.
func (t *Trader) classifyFault(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, broker.ErrAuth):
		t.phase = PhaseSessionClosed
		return err
	case broker.IsTransient(err):
		t.deps.Log.Warn("skipping round", zap.String("source", what), zap.Error(err))
		return nil
	default:
		t.deps.Log.Error("collaborator fault", zap.String("source", what), zap.Error(err))
		return nil
	}
}

// scan picks the contract for the next cycle and initializes both
// series. Each completed cycle re-selects, so the strike tracks the
// index as it moves through the day.
func (t *Trader) scan(ctx context.Context) error {
	inst, err := t.deps.Selector.Select(ctx)
	if err != nil {
		return err
	}
	t.instrument = inst

	lookback := t.cfg.Polling.Lookback
	if floor := t.engine.Warmup() + 8; lookback < floor {
		lookback = floor
	}
	t.confirm = market.NewSeries(inst.Symbol, market.Interval2Min, lookback)
	t.primary = market.NewSeries(inst.Symbol, market.Interval5Min, lookback)
	t.primaryBuy = signal.BuyDecision{}
	t.phase = PhaseAwaitingConfirmation

	t.deps.Log.Info("instrument selected",
		zap.String("instrument", inst.Symbol),
		zap.Float64("strike", inst.Strike),
		zap.Int("lot_size", inst.LotSize),
	)
	return nil
}

// refresh pulls new candles into the series. The newest stored bar is
// refetched so its in-progress revision lands as well.
func (t *Trader) refresh(ctx context.Context, now time.Time, series *market.Series) error {
	from := now.Add(-time.Duration(t.cfg.Polling.Lookback) * series.Interval.Duration())
	if last, ok := series.Last(); ok {
		from = last.Time
	}

	var bars []market.Bar
	err := t.backoff.Do(ctx, func(ctx context.Context) error {
		var ferr error
		bars, ferr = t.deps.Data.Candles(ctx, t.instrument.Token, series.Interval, from, now)
		return ferr
	})
	if err != nil {
		return err
	}

	for _, b := range bars {
		if last, ok := series.Last(); ok && b.Time.Before(last.Time) {
			continue
		}
		if err := series.Append(b); err != nil {
			return err
		}
	}
	return nil
}

// maybeEnter evaluates the double confirmation and opens a position
// when both timeframes agree: a fresh confirm verdict against the most
// recent primary verdict.
func (t *Trader) maybeEnter(ctx context.Context, now time.Time) error {
	if now.Before(t.cooldownUntil) {
		return nil
	}

	confirmBuy := t.eval.Buy(t.engine.Compute(t.confirm))
	primaryBuy := t.primaryBuy
	if !confirmBuy.Valid || !primaryBuy.Valid {
		return nil
	}
	if !confirmBuy.Eligible || !primaryBuy.Eligible {
		t.deps.Log.Debug("entry declined",
			zap.Strings("confirm_failed", confirmBuy.Conditions.Failed()),
			zap.Strings("primary_failed", primaryBuy.Conditions.Failed()),
		)
		return nil
	}

	if t.position != nil {
		// Entering while holding must never happen. Flatten and stop.
		t.deps.Log.Error("entry attempted while holding", zap.String("cycle_id", t.position.CycleID))
		t.forceExit(ctx, now, "invariant_violation")
		t.phase = PhaseSessionClosed
		return ErrPositionInvariant
	}

	t.deps.Log.Info("entry signal confirmed on both timeframes",
		zap.String("instrument", t.instrument.Symbol),
		zap.Time("at", now),
	)
	return t.enter(ctx, now)
}

// maybeExit checks the confirm series for an exit trigger. A single
// trigger on the narrow timeframe suffices: exits are asymmetric to
// entries on purpose, fast out, slow in.
func (t *Trader) maybeExit(ctx context.Context, now time.Time) error {
	decision := t.eval.Exit(t.engine.Compute(t.confirm))
	if !decision.Valid || decision.Trigger == signal.TriggerNone {
		return nil
	}

	t.deps.Log.Info("exit trigger",
		zap.String("trigger", decision.Trigger.String()),
		zap.String("cycle_id", t.position.CycleID),
	)
	return t.exit(ctx, now, decision.Trigger.String())
}

// closeDay force-flattens any open position and finalizes the ledger.
func (t *Trader) closeDay(ctx context.Context, now time.Time) error {
	if t.position != nil {
		t.deps.Log.Info("session close with open position, forcing exit",
			zap.String("cycle_id", t.position.CycleID))
		t.forceExit(ctx, now, "session_close")
	}

	if !t.dayReported {
		t.dayReported = true
		if t.deps.Reporter != nil {
			t.deps.Reporter.DayClosed(t.ledger.Summary())
		}
	}
	t.phase = PhaseSessionClosed
	return ErrSessionClosed
}
