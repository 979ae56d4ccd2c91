// Package paper implements the market-data and order-gateway
// collaborators against recorded bars, for replay runs and tests.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cetrader/broker"
	"cetrader/internal/id"
	"cetrader/market"
)

var ErrOrderNotFound = errors.New("paper: order not found")

// Engine fills market orders instantly at the current bar's close and
// serves candle history from an in-memory tape that advances with the
// simulated clock.
type Engine struct {
	mu      sync.Mutex
	cash    float64
	now     time.Time
	tapes   map[market.Interval][]market.Bar
	orders  map[string]broker.Status
	spot    float64
	chain   []market.Instrument
	symbol  string
	holding int
}

func NewEngine(cash float64) *Engine {
	return &Engine{
		cash:   cash,
		tapes:  make(map[market.Interval][]market.Bar),
		orders: make(map[string]broker.Status),
	}
}

// LoadTape installs the full bar history for one interval. Candles
// before the simulated clock are the only ones served.
func (e *Engine) LoadTape(interval market.Interval, bars []market.Bar) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tapes[interval] = bars
}

// SetChain installs the option chain and spot served to the scanner.
func (e *Engine) SetChain(spot float64, chain []market.Instrument) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spot = spot
	e.chain = chain
}

// Advance moves the simulated clock forward.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Now implements session.Clock.
func (e *Engine) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Candles returns tape bars within [from, to] that have opened by the
// simulated clock. The newest bar stands in for the in-progress candle.
func (e *Engine) Candles(ctx context.Context, token uint32, interval market.Interval, from, to time.Time) ([]market.Bar, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tape, ok := e.tapes[interval]
	if !ok {
		return nil, fmt.Errorf("%w: no tape for interval %s", broker.ErrUnknownInstrument, interval)
	}

	var out []market.Bar
	for _, b := range tape {
		if b.Time.After(e.now) || b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Quote returns the close of the newest visible 2-minute bar, falling
// back to any loaded tape.
func (e *Engine) Quote(ctx context.Context, exchange, symbol string) (broker.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, t, ok := e.lastPrice()
	if !ok {
		return broker.Quote{}, broker.Transient(errors.New("paper: no visible bars"))
	}
	return broker.Quote{Symbol: symbol, Price: price, Time: t}, nil
}

func (e *Engine) lastPrice() (float64, time.Time, bool) {
	for _, interval := range []market.Interval{market.Interval2Min, market.Interval5Min} {
		tape := e.tapes[interval]
		for i := len(tape) - 1; i >= 0; i-- {
			if !tape[i].Time.After(e.now) {
				return tape[i].Close, tape[i].Time, true
			}
		}
	}
	return 0, time.Time{}, false
}

func (e *Engine) SpotPrice(ctx context.Context, underlying string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spot == 0 {
		return 0, fmt.Errorf("%w: %s", broker.ErrUnknownInstrument, underlying)
	}
	return e.spot, nil
}

func (e *Engine) OptionChain(ctx context.Context, underlying, optionType string) ([]market.Instrument, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]market.Instrument, len(e.chain))
	copy(out, e.chain)
	return out, nil
}

func (e *Engine) AvailableBalance(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash, nil
}

// PlaceOrder fills immediately at the last visible price and adjusts
// the cash balance the way a premium debit or credit would.
func (e *Engine) PlaceOrder(ctx context.Context, order broker.Order) (broker.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if order.Quantity <= 0 {
		return broker.Receipt{}, &broker.RejectedError{Reason: "quantity must be positive"}
	}

	price, _, ok := e.lastPrice()
	if !ok {
		return broker.Receipt{}, broker.Transient(errors.New("paper: no visible bars"))
	}

	switch order.Side {
	case broker.Buy:
		cost := price * float64(order.Quantity)
		if cost > e.cash {
			return broker.Receipt{}, &broker.RejectedError{Reason: "insufficient funds"}
		}
		e.cash -= cost
		e.holding += order.Quantity
		e.symbol = order.Symbol
	case broker.Sell:
		if order.Quantity > e.holding {
			return broker.Receipt{}, &broker.RejectedError{Reason: "no open position"}
		}
		e.cash += price * float64(order.Quantity)
		e.holding -= order.Quantity
	default:
		return broker.Receipt{}, &broker.RejectedError{Reason: "unknown side " + string(order.Side)}
	}

	oid := id.New()
	e.orders[oid] = broker.Status{
		OrderID:        oid,
		State:          "COMPLETE",
		Complete:       true,
		AveragePrice:   price,
		FilledQuantity: order.Quantity,
	}
	return broker.Receipt{OrderID: oid}, nil
}

func (e *Engine) OrderStatus(ctx context.Context, orderID string) (broker.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.orders[orderID]
	if !ok {
		return broker.Status{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return st, nil
}

// Position reports the open quantity, for assertions in replay runs.
func (e *Engine) Position() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.holding
}

// Cash reports the current balance.
func (e *Engine) Cash() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash
}
