package journal

import "sync"

// Summary is the day's running tally of completed cycles.
type Summary struct {
	Cycles     int
	Wins       int
	Losses     int
	RealizedPL float64
}

// Ledger accumulates completed cycles for the trading day. It is safe
// for concurrent use; the loop appends while reporters read.
type Ledger struct {
	mu     sync.Mutex
	cycles []CycleRecord
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Add records a completed cycle.
func (l *Ledger) Add(c CycleRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycles = append(l.cycles, c)
}

// Cycles returns a copy of the recorded cycles in completion order.
func (l *Ledger) Cycles() []CycleRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CycleRecord, len(l.cycles))
	copy(out, l.cycles)
	return out
}

// Summary tallies the day so far. Break-even cycles count as neither
// win nor loss.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Summary
	for _, c := range l.cycles {
		s.Cycles++
		s.RealizedPL += c.RealizedPL
		switch {
		case c.RealizedPL > 0:
			s.Wins++
		case c.RealizedPL < 0:
			s.Losses++
		}
	}
	return s
}
