package trader

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"cetrader/broker"
	"cetrader/internal/id"
	"cetrader/journal"
	"cetrader/risk"
)

// enter sizes and opens a position. The balance is read fresh here, on
// the same round, never cached from an earlier one. Any failure short
// of a fatal one returns the cycle to awaiting confirmation.
func (t *Trader) enter(ctx context.Context, now time.Time) error {
	t.phase = PhaseSizing

	var balance float64
	err := t.backoff.Do(ctx, func(ctx context.Context) error {
		var berr error
		balance, berr = t.deps.Gateway.AvailableBalance(ctx)
		return berr
	})
	if err != nil {
		t.phase = PhaseAwaitingConfirmation
		return t.classifyFault("balance", err)
	}

	premium := t.instrument.LTP
	if quote, qerr := t.deps.Data.Quote(ctx, t.instrument.Exchange, t.instrument.Symbol); qerr == nil {
		premium = quote.Price
	}

	sized, err := risk.Size(risk.Inputs{
		Capital:  balance,
		Fraction: t.cfg.Risk.Fraction,
		Premium:  premium,
		LotSize:  t.instrument.LotSize,
	})
	if err != nil {
		t.phase = PhaseAwaitingConfirmation
		t.deps.Log.Error("sizing failed", zap.Error(err))
		return nil
	}
	if sized.Quantity == 0 {
		// Not an error: the balance cannot carry one lot right now.
		// Pause entries for the fixed cooldown and keep watching.
		t.phase = PhaseAwaitingConfirmation
		t.cooldownUntil = now.Add(t.cooldown)
		t.deps.Log.Info("balance below one lot, cooling down",
			zap.Float64("balance", balance),
			zap.Float64("premium", premium),
			zap.Time("until", t.cooldownUntil),
		)
		return nil
	}

	t.phase = PhaseEntering
	cycleID := id.New()
	fill, err := t.placeAndConfirm(ctx, broker.Order{
		Symbol:   t.instrument.Symbol,
		Exchange: t.instrument.Exchange,
		Side:     broker.Buy,
		Quantity: sized.Quantity,
		Tag:      tagFrom(cycleID),
	})
	if err != nil {
		t.phase = PhaseAwaitingConfirmation
		if broker.IsRejected(err) {
			// No cooldown here: a rejection is not insufficient funds.
			t.deps.Log.Warn("entry rejected, resuming watch", zap.Error(err))
			return nil
		}
		return t.classifyFault("entry order", err)
	}

	t.position = &Position{
		CycleID:    cycleID,
		OrderID:    fill.OrderID,
		Instrument: t.instrument,
		Quantity:   fill.FilledQuantity,
		EntryPrice: fill.AveragePrice,
		EntryTime:  now,
	}
	t.phase = PhaseHolding

	rec := journal.TradeRecord{
		TradeID:    id.New(),
		CycleID:    cycleID,
		OrderID:    fill.OrderID,
		Instrument: t.instrument.Symbol,
		Side:       string(broker.Buy),
		Quantity:   fill.FilledQuantity,
		Price:      fill.AveragePrice,
		Time:       now,
	}
	if err := t.deps.Journal.RecordTrade(rec); err != nil {
		t.deps.Log.Error("journal trade", zap.Error(err))
	}
	if t.deps.Reporter != nil {
		t.deps.Reporter.Entered(rec)
	}
	return nil
}

// exit closes the open position and completes the cycle.
func (t *Trader) exit(ctx context.Context, now time.Time, reason string) error {
	pos := t.position
	t.phase = PhaseExiting
	fill, err := t.placeAndConfirm(ctx, broker.Order{
		Symbol:   pos.Instrument.Symbol,
		Exchange: pos.Instrument.Exchange,
		Side:     broker.Sell,
		Quantity: pos.Quantity,
		Tag:      tagFrom(pos.CycleID),
	})
	if err != nil {
		// The position stays open; the next round tries again.
		t.phase = PhaseHolding
		t.deps.Log.Error("exit order failed, still holding",
			zap.String("cycle_id", pos.CycleID), zap.Error(err))
		return t.classifyFault("exit order", err)
	}

	trade := journal.TradeRecord{
		TradeID:    id.New(),
		CycleID:    pos.CycleID,
		OrderID:    fill.OrderID,
		Instrument: pos.Instrument.Symbol,
		Side:       string(broker.Sell),
		Quantity:   fill.FilledQuantity,
		Price:      fill.AveragePrice,
		Time:       now,
	}
	if err := t.deps.Journal.RecordTrade(trade); err != nil {
		t.deps.Log.Error("journal trade", zap.Error(err))
	}

	cycle := journal.CycleRecord{
		CycleID:    pos.CycleID,
		Instrument: pos.Instrument.Symbol,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fill.AveragePrice,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		ExitReason: reason,
	}
	cycle.RealizedPL = cycle.GrossPL()
	if err := t.deps.Journal.RecordCycle(cycle); err != nil {
		t.deps.Log.Error("journal cycle", zap.Error(err))
	}
	t.ledger.Add(cycle)
	if t.deps.Reporter != nil {
		t.deps.Reporter.Exited(cycle)
	}

	t.position = nil
	t.phase = PhaseCycleComplete
	return nil
}

// forceExit flattens without letting order faults stop the caller.
func (t *Trader) forceExit(ctx context.Context, now time.Time, reason string) {
	if err := t.exit(ctx, now, reason); err != nil || t.position != nil {
		t.deps.Log.Error("forced exit incomplete, manual intervention required",
			zap.String("reason", reason), zap.Error(err))
		// Drop the record anyway so the loop cannot double-sell.
		t.position = nil
	}
}

// placeAndConfirm submits a market order and polls until it fills.
func (t *Trader) placeAndConfirm(ctx context.Context, order broker.Order) (broker.Status, error) {
	receipt, err := t.deps.Gateway.PlaceOrder(ctx, order)
	if err != nil {
		return broker.Status{}, err
	}

	var status broker.Status
	err = t.backoff.Do(ctx, func(ctx context.Context) error {
		var serr error
		status, serr = t.deps.Gateway.OrderStatus(ctx, receipt.OrderID)
		if serr != nil {
			return serr
		}
		if !status.Complete {
			return broker.Transient(errors.New("order pending"))
		}
		return nil
	})
	if err != nil {
		return broker.Status{}, err
	}
	return status, nil
}

// tagFrom trims a cycle ID to the venue's 20-character tag limit.
func tagFrom(cycleID string) string {
	if len(cycleID) > 20 {
		return cycleID[:20]
	}
	return cycleID
}
