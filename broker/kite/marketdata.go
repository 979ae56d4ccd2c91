package kite

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cetrader/broker"
	"cetrader/market"
)

// kiteTime is the timestamp layout the historical endpoint uses.
const kiteTime = "2006-01-02T15:04:05-0700"

var intervalNames = map[market.Interval]string{
	market.Interval2Min: "2minute",
	market.Interval5Min: "5minute",
}

// Candles fetches completed and in-progress bars for the token in
// ascending time order.
func (c *Client) Candles(ctx context.Context, token uint32, interval market.Interval, from, to time.Time) ([]market.Bar, error) {
	name, ok := intervalNames[interval]
	if !ok {
		return nil, fmt.Errorf("kite: unsupported interval %q", interval)
	}

	q := url.Values{}
	q.Set("from", from.Format("2006-01-02 15:04:05"))
	q.Set("to", to.Format("2006-01-02 15:04:05"))

	var data struct {
		Candles [][]json.RawMessage `json:"candles"`
	}
	path := fmt.Sprintf("/instruments/historical/%d/%s", token, name)
	if err := c.do(ctx, "GET", path, q, nil, &data); err != nil {
		return nil, err
	}

	bars := make([]market.Bar, 0, len(data.Candles))
	for _, row := range data.Candles {
		if len(row) < 6 {
			return nil, fmt.Errorf("kite: short candle row (%d fields)", len(row))
		}
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("kite: candle timestamp: %w", err)
		}
		t, err := time.Parse(kiteTime, ts)
		if err != nil {
			return nil, fmt.Errorf("kite: candle timestamp %q: %w", ts, err)
		}
		var b market.Bar
		b.Time = t
		for i, dst := range []*float64{&b.Open, &b.High, &b.Low, &b.Close} {
			if err := json.Unmarshal(row[i+1], dst); err != nil {
				return nil, fmt.Errorf("kite: candle field %d: %w", i+1, err)
			}
		}
		if err := json.Unmarshal(row[5], &b.Volume); err != nil {
			return nil, fmt.Errorf("kite: candle volume: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// Quote returns the last traded price of exchange:symbol.
func (c *Client) Quote(ctx context.Context, exchange, symbol string) (broker.Quote, error) {
	key := exchange + ":" + symbol
	q := url.Values{}
	q.Set("i", key)

	data := map[string]struct {
		LastPrice float64 `json:"last_price"`
	}{}
	if err := c.do(ctx, "GET", "/quote/ltp", q, nil, &data); err != nil {
		return broker.Quote{}, err
	}

	entry, ok := data[key]
	if !ok {
		return broker.Quote{}, fmt.Errorf("%w: %s", broker.ErrUnknownInstrument, key)
	}
	return broker.Quote{Symbol: symbol, Price: entry.LastPrice, Time: time.Now()}, nil
}

// SpotPrice returns the underlying index level.
func (c *Client) SpotPrice(ctx context.Context, underlying string) (float64, error) {
	q, err := c.Quote(ctx, "NSE", indexSymbol(underlying))
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

func indexSymbol(underlying string) string {
	switch underlying {
	case "NIFTY":
		return "NIFTY 50"
	case "BANKNIFTY":
		return "NIFTY BANK"
	default:
		return underlying
	}
}

// OptionChain downloads the NFO instruments dump and returns the
// nearest-expiry contracts of the given type, with premiums attached.
func (c *Client) OptionChain(ctx context.Context, underlying, optionType string) ([]market.Instrument, error) {
	raw, err := c.get(ctx, "/instruments/NFO")
	if err != nil {
		return nil, err
	}

	contracts, err := parseInstrumentsDump(raw, underlying, optionType)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("%w: no %s %s contracts listed", broker.ErrUnknownInstrument, underlying, optionType)
	}

	nearest := contracts[0].Expiry
	for _, inst := range contracts[1:] {
		if inst.Expiry.Before(nearest) {
			nearest = inst.Expiry
		}
	}
	var chain []market.Instrument
	for _, inst := range contracts {
		if inst.Expiry.Equal(nearest) {
			chain = append(chain, inst)
		}
	}

	// Premiums come from the bulk LTP endpoint, batched per request.
	const batch = 100
	for lo := 0; lo < len(chain); lo += batch {
		hi := lo + batch
		if hi > len(chain) {
			hi = len(chain)
		}
		if err := c.fillPremiums(ctx, chain[lo:hi]); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

func (c *Client) fillPremiums(ctx context.Context, chain []market.Instrument) error {
	q := url.Values{}
	for _, inst := range chain {
		q.Add("i", inst.Exchange+":"+inst.Symbol)
	}

	data := map[string]struct {
		LastPrice float64 `json:"last_price"`
	}{}
	if err := c.do(ctx, "GET", "/quote/ltp", q, nil, &data); err != nil {
		return err
	}

	for i := range chain {
		if entry, ok := data[chain[i].Exchange+":"+chain[i].Symbol]; ok {
			chain[i].LTP = entry.LastPrice
		}
	}
	return nil
}

// parseInstrumentsDump filters the instruments CSV down to option
// contracts of the underlying and type.
func parseInstrumentsDump(raw []byte, underlying, optionType string) ([]market.Instrument, error) {
	r := csv.NewReader(strings.NewReader(string(raw)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("kite: instruments dump: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("kite: empty instruments dump")
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, want := range []string{"instrument_token", "tradingsymbol", "name", "expiry", "strike", "lot_size", "instrument_type", "exchange"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("kite: instruments dump missing column %q", want)
		}
	}

	var out []market.Instrument
	for _, row := range rows[1:] {
		if row[col["name"]] != underlying || row[col["instrument_type"]] != optionType {
			continue
		}
		token, err := strconv.ParseUint(row[col["instrument_token"]], 10, 32)
		if err != nil {
			continue
		}
		strike, err := strconv.ParseFloat(row[col["strike"]], 64)
		if err != nil {
			continue
		}
		lot, err := strconv.Atoi(row[col["lot_size"]])
		if err != nil {
			continue
		}
		expiry, err := time.Parse("2006-01-02", row[col["expiry"]])
		if err != nil {
			continue
		}
		out = append(out, market.Instrument{
			Symbol:   row[col["tradingsymbol"]],
			Token:    uint32(token),
			Strike:   strike,
			Expiry:   expiry,
			LotSize:  lot,
			Exchange: row[col["exchange"]],
		})
	}
	return out, nil
}
