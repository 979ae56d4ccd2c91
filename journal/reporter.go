package journal

import "go.uber.org/zap"

// Reporter receives trading-day notifications. The loop calls it on
// every fill and once at session close.
type Reporter interface {
	Entered(t TradeRecord)
	Exited(c CycleRecord)
	DayClosed(s Summary)
}

// ZapReporter writes notifications to the structured log.
type ZapReporter struct {
	Log *zap.Logger
}

func (r *ZapReporter) Entered(t TradeRecord) {
	r.Log.Info("position opened",
		zap.String("cycle_id", t.CycleID),
		zap.String("order_id", t.OrderID),
		zap.String("instrument", t.Instrument),
		zap.Int("quantity", t.Quantity),
		zap.Float64("price", t.Price),
	)
}

func (r *ZapReporter) Exited(c CycleRecord) {
	r.Log.Info("position closed",
		zap.String("cycle_id", c.CycleID),
		zap.String("instrument", c.Instrument),
		zap.Int("quantity", c.Quantity),
		zap.Float64("entry_price", c.EntryPrice),
		zap.Float64("exit_price", c.ExitPrice),
		zap.Float64("realized_pl", c.RealizedPL),
		zap.String("exit_reason", c.ExitReason),
	)
}

func (r *ZapReporter) DayClosed(s Summary) {
	r.Log.Info("trading day closed",
		zap.Int("cycles", s.Cycles),
		zap.Int("wins", s.Wins),
		zap.Int("losses", s.Losses),
		zap.Float64("realized_pl", s.RealizedPL),
	)
}
