package market

import (
	"fmt"
	"time"
)

// Series is an ordered sequence of bars for one (instrument, interval)
// pair. Bars are strictly ordered by timestamp and unique per timestamp.
// Closed bars are immutable; the most recent bar may be revised by a
// refresh until its interval closes. The series keeps a bounded lookback
// window so indicator warmups always have enough history without the
// slice growing across a session.
type Series struct {
	Instrument string
	Interval   Interval
	Lookback   int // max bars retained; 0 means unbounded

	bars []Bar
}

// NewSeries returns an empty series with the given lookback window.
func NewSeries(instrument string, interval Interval, lookback int) *Series {
	return &Series{
		Instrument: instrument,
		Interval:   interval,
		Lookback:   lookback,
	}
}

// Len returns the number of bars currently held.
func (s *Series) Len() int { return len(s.bars) }

// Bars returns the underlying bars. Callers must treat the slice as
// read-only; only the owning refresh step may mutate the series.
func (s *Series) Bars() []Bar { return s.bars }

// Last returns the most recent bar. ok is false on an empty series.
func (s *Series) Last() (b Bar, ok bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// At returns the bar at index i counted from the end: At(0) is the
// latest bar, At(1) the one before it.
func (s *Series) At(i int) (Bar, bool) {
	idx := len(s.bars) - 1 - i
	if idx < 0 {
		return Bar{}, false
	}
	return s.bars[idx], true
}

// Append merges one bar into the series. A bar with a timestamp equal
// to the latest bar revises it in place (the in-progress bar); a newer
// timestamp appends; an older timestamp is rejected so the ordering
// invariant can never be broken by a stale refresh.
func (s *Series) Append(b Bar) error {
	n := len(s.bars)
	if n > 0 {
		last := s.bars[n-1].Time
		switch {
		case b.Time.Equal(last):
			s.bars[n-1] = b
			return nil
		case b.Time.Before(last):
			return fmt.Errorf("series %s/%s: bar %s is older than latest %s",
				s.Instrument, s.Interval, b.Time.Format(time.RFC3339), last.Format(time.RFC3339))
		}
	}
	s.bars = append(s.bars, b)
	s.trim()
	return nil
}

// Replace swaps in a freshly fetched window of bars, validating order
// and uniqueness. Used by the refresh step that owns the series.
func (s *Series) Replace(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("series %s/%s: bars out of order at index %d",
				s.Instrument, s.Interval, i)
		}
	}
	s.bars = append(s.bars[:0], bars...)
	s.trim()
	return nil
}

func (s *Series) trim() {
	if s.Lookback > 0 && len(s.bars) > s.Lookback {
		s.bars = append([]Bar(nil), s.bars[len(s.bars)-s.Lookback:]...)
	}
}

// Closes returns the close of every bar, oldest first.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}
