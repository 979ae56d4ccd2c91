// Package risk computes balance-aware position sizes.
package risk

import (
	"fmt"
	"math"
)

// Inputs feed one sizing calculation. Capital must be the balance
// fetched immediately before sizing, never a cached value.
type Inputs struct {
	Capital  float64 // available account balance
	Fraction float64 // share of capital committed per trade, (0, 1]
	Premium  float64 // per-unit option premium
	LotSize  int     // exchange lot granularity
}

// Result is one sizing outcome. Quantity 0 means insufficient funds,
// which is a defined outcome and not an error.
type Result struct {
	TradingCapital float64
	CostPerLot     float64
	Lots           int
	Quantity       int
}

// Size computes the largest tradable quantity for the given inputs:
//
//	tradingCapital = capital × fraction
//	costPerLot     = premium × lotSize
//	lots           = floor(tradingCapital / costPerLot)
//	quantity       = lots × lotSize
func Size(in Inputs) (Result, error) {
	if in.Premium <= 0 {
		return Result{}, fmt.Errorf("risk: premium must be positive, got %g", in.Premium)
	}
	if in.LotSize <= 0 {
		return Result{}, fmt.Errorf("risk: lot size must be positive, got %d", in.LotSize)
	}
	if in.Fraction <= 0 || in.Fraction > 1 {
		return Result{}, fmt.Errorf("risk: fraction must be in (0, 1], got %g", in.Fraction)
	}
	if in.Capital < 0 {
		return Result{}, fmt.Errorf("risk: capital must be non-negative, got %g", in.Capital)
	}

	r := Result{
		TradingCapital: in.Capital * in.Fraction,
		CostPerLot:     in.Premium * float64(in.LotSize),
	}
	r.Lots = int(math.Floor(r.TradingCapital / r.CostPerLot))
	r.Quantity = r.Lots * in.LotSize
	return r, nil
}
