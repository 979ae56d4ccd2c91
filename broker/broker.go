// Package broker defines the external collaborators the trading loop
// talks to: a market-data provider and an order gateway. Concrete
// implementations live in the kite and paper subpackages.
package broker

import (
	"context"
	"time"

	"cetrader/market"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Order is a market order request. Tag travels to the venue so fills
// can be matched back to the cycle that produced them.
type Order struct {
	Symbol   string
	Exchange string
	Side     Side
	Quantity int
	Tag      string
}

// Receipt acknowledges order placement. The fill price arrives later
// through Status.
type Receipt struct {
	OrderID string
}

// Status is the venue's view of a previously placed order.
type Status struct {
	OrderID        string
	State          string
	Complete       bool
	AveragePrice   float64
	FilledQuantity int
}

// Quote is the latest traded state of one instrument.
type Quote struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// MarketData serves historical candles and live quotes.
type MarketData interface {
	// Candles returns completed and in-progress bars for the token in
	// ascending time order over [from, to].
	Candles(ctx context.Context, token uint32, interval market.Interval, from, to time.Time) ([]market.Bar, error)

	// Quote returns the last traded price of the symbol.
	Quote(ctx context.Context, exchange, symbol string) (Quote, error)
}

// OrderGateway places orders and reports balances and fills.
type OrderGateway interface {
	// AvailableBalance returns the cash available for new positions.
	// Callers must re-read this immediately before sizing an entry.
	AvailableBalance(ctx context.Context) (float64, error)

	PlaceOrder(ctx context.Context, order Order) (Receipt, error)

	OrderStatus(ctx context.Context, orderID string) (Status, error)
}

// InstrumentSelector picks the option contract to trade for the day.
type InstrumentSelector interface {
	Select(ctx context.Context) (market.Instrument, error)
}
