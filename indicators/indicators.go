// Package indicators provides technical analysis indicators for the
// trading loop. All indicators are deterministic pure functions of the
// bars fed to them and are safe to use in live, replay, and test runs.
package indicators

import "cetrader/market"

// Indicator computes a single streaming value from closed bars.
type Indicator interface {
	// Name returns a stable identifier like "EMA(8)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value. If !Ready() it returns 0;
	// callers should always check Ready().
	Value() float64
}
