package kite

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"cetrader/broker"
)

// AvailableBalance returns the cash available in the equity segment.
func (c *Client) AvailableBalance(ctx context.Context) (float64, error) {
	var data struct {
		Available struct {
			Cash float64 `json:"cash"`
		} `json:"available"`
		Net float64 `json:"net"`
	}
	if err := c.do(ctx, "GET", "/user/margins/equity", nil, nil, &data); err != nil {
		return 0, err
	}
	if data.Available.Cash > 0 {
		return data.Available.Cash, nil
	}
	return data.Net, nil
}

// PlaceOrder submits a regular intraday market order. A missing tag
// gets a generated one so fills stay traceable at the venue.
func (c *Client) PlaceOrder(ctx context.Context, order broker.Order) (broker.Receipt, error) {
	tag := order.Tag
	if tag == "" {
		// Kite caps tags at 20 characters.
		tag = uuid.NewString()[:18]
	}

	form := url.Values{}
	form.Set("exchange", order.Exchange)
	form.Set("tradingsymbol", order.Symbol)
	form.Set("transaction_type", string(order.Side))
	form.Set("quantity", strconv.Itoa(order.Quantity))
	form.Set("order_type", "MARKET")
	form.Set("product", "MIS")
	form.Set("validity", "DAY")
	form.Set("tag", tag)

	var data struct {
		OrderID string `json:"order_id"`
	}
	if err := c.do(ctx, "POST", "/orders/regular", nil, form, &data); err != nil {
		return broker.Receipt{}, err
	}
	return broker.Receipt{OrderID: data.OrderID}, nil
}

// OrderStatus reads the order's history and returns its latest state.
// A venue rejection surfaces as a RejectedError.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (broker.Status, error) {
	var data []struct {
		Status          string  `json:"status"`
		StatusMessage   string  `json:"status_message"`
		AveragePrice    float64 `json:"average_price"`
		FilledQuantity  int     `json:"filled_quantity"`
		PendingQuantity int     `json:"pending_quantity"`
	}
	if err := c.do(ctx, "GET", "/orders/"+orderID, nil, nil, &data); err != nil {
		return broker.Status{}, err
	}
	if len(data) == 0 {
		return broker.Status{}, fmt.Errorf("kite: order %s has no history", orderID)
	}

	last := data[len(data)-1]
	switch last.Status {
	case "REJECTED", "CANCELLED":
		return broker.Status{}, &broker.RejectedError{OrderID: orderID, Reason: last.StatusMessage}
	}

	return broker.Status{
		OrderID:        orderID,
		State:          last.Status,
		Complete:       last.Status == "COMPLETE",
		AveragePrice:   last.AveragePrice,
		FilledQuantity: last.FilledQuantity,
	}, nil
}
