// Package trader runs the intraday trade cycle: select a contract,
// wait for the entry signal on both timeframes, hold until an exit
// trigger or the session close, then select again and repeat.
package trader

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"cetrader/broker"
	"cetrader/config"
	"cetrader/indicators"
	"cetrader/journal"
	"cetrader/market"
	"cetrader/session"
	"cetrader/signal"
)

// Phase is the loop's position in the trade cycle. Sizing, Entering
// and Exiting are passed through within a single round; the loop only
// rests in SelectingInstrument, AwaitingConfirmation, Holding and the
// terminal SessionClosed.
type Phase int

const (
	// PhaseInitializing is the state before the first round runs.
	PhaseInitializing Phase = iota
	// PhaseSelectingInstrument picks the contract for the next cycle.
	PhaseSelectingInstrument
	// PhaseAwaitingConfirmation watches both series for the entry signal.
	PhaseAwaitingConfirmation
	// PhaseSizing reads a fresh balance and computes the quantity.
	PhaseSizing
	// PhaseEntering has a buy order in flight.
	PhaseEntering
	// PhaseHolding manages the open position.
	PhaseHolding
	// PhaseExiting has a sell order in flight.
	PhaseExiting
	// PhaseCycleComplete is the gap between a closed cycle and the next.
	PhaseCycleComplete
	// PhaseSessionClosed means the day ended or a fatal fault occurred.
	PhaseSessionClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseSelectingInstrument:
		return "selecting_instrument"
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	case PhaseSizing:
		return "sizing"
	case PhaseEntering:
		return "entering"
	case PhaseHolding:
		return "holding"
	case PhaseExiting:
		return "exiting"
	case PhaseCycleComplete:
		return "cycle_complete"
	case PhaseSessionClosed:
		return "session_closed"
	default:
		return "unknown"
	}
}

// ErrPositionInvariant means the loop found itself holding when it must
// be flat, or flat when it must be holding. The position is flattened
// and the day stops.
var ErrPositionInvariant = errors.New("trader: open-position invariant violated")

// ErrSessionClosed stops the loop at the end of the trading day.
var ErrSessionClosed = errors.New("trader: session closed")

// Position is the single open position the loop manages.
type Position struct {
	CycleID    string
	OrderID    string
	Instrument market.Instrument
	Quantity   int
	EntryPrice float64
	EntryTime  time.Time
}

// Evaluator turns indicator snapshots into decisions. The production
// implementation is signal.Evaluator.
type Evaluator interface {
	Buy(snaps []indicators.Snapshot) signal.BuyDecision
	Exit(snaps []indicators.Snapshot) signal.ExitDecision
}

// Deps are the external collaborators the loop talks to.
type Deps struct {
	Data     broker.MarketData
	Gateway  broker.OrderGateway
	Selector broker.InstrumentSelector
	Clock    session.Clock
	Journal  journal.Journal
	Reporter journal.Reporter
	Log      *zap.Logger

	// Evaluator overrides the condition evaluator; nil uses the
	// configured thresholds.
	Evaluator Evaluator
}

// Trader drives one instrument through repeated trade cycles within a
// single session.
type Trader struct {
	deps   Deps
	cfg    *config.Config
	hours  session.Hours
	engine *indicators.Engine
	eval   Evaluator
	ledger *journal.Ledger

	confirmEvery time.Duration
	primaryEvery time.Duration
	cooldown     time.Duration
	backoff      broker.Backoff

	phase      Phase
	instrument market.Instrument
	confirm    *market.Series
	primary    *market.Series
	position   *Position

	lastConfirm   time.Time
	lastPrimary   time.Time
	cooldownUntil time.Time
	dayReported   bool

	// primaryBuy is the verdict from the last primary-cadence round,
	// reused on confirm-only ticks.
	primaryBuy signal.BuyDecision
}

// New builds a trader from validated configuration and collaborators.
func New(cfg *config.Config, deps Deps) (*Trader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hours, err := cfg.Session.Hours()
	if err != nil {
		return nil, err
	}
	confirmEvery, err := cfg.Polling.ConfirmInterval()
	if err != nil {
		return nil, err
	}
	primaryEvery, err := cfg.Polling.PrimaryInterval()
	if err != nil {
		return nil, err
	}
	cooldown, err := cfg.Polling.CooldownInterval()
	if err != nil {
		return nil, err
	}

	eval := deps.Evaluator
	if eval == nil {
		eval = signal.NewEvaluator(cfg.Thresholds)
	}

	return &Trader{
		deps:         deps,
		cfg:          cfg,
		hours:        hours,
		engine:       indicators.NewEngine(cfg.Indicators),
		eval:         eval,
		ledger:       journal.NewLedger(),
		confirmEvery: confirmEvery,
		primaryEvery: primaryEvery,
		cooldown:     cooldown,
		backoff:      broker.DefaultBackoff(),
		phase:        PhaseInitializing,
	}, nil
}

// Phase reports the loop's current phase.
func (t *Trader) Phase() Phase { return t.phase }

// Position returns the open position, nil when flat.
func (t *Trader) Position() *Position {
	if t.position == nil {
		return nil
	}
	p := *t.position
	return &p
}

// Ledger exposes the day's completed cycles.
func (t *Trader) Ledger() *journal.Ledger { return t.ledger }

// Instrument returns the contract picked for the current cycle.
func (t *Trader) Instrument() market.Instrument { return t.instrument }
