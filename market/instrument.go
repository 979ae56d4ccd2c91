package market

import "time"

// Instrument describes one tradable option contract as supplied by the
// selector. It is read-only input to sizing and data fetches.
type Instrument struct {
	Symbol   string
	Token    uint32
	Strike   float64
	Expiry   time.Time
	LTP      float64 // last traded premium
	LotSize  int
	Exchange string
}
