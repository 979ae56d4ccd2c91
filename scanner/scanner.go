// Package scanner picks the option contract the loop trades for the
// day: at-the-money first, then nearby strikes, constrained to a
// premium band so position sizing stays meaningful.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"cetrader/config"
	"cetrader/market"
)

// ErrNoContract means no strike near the money trades inside the
// configured premium band.
var ErrNoContract = errors.New("scanner: no contract in premium band")

// ChainProvider serves the option chain used for selection. Contracts
// carry their last traded premium.
type ChainProvider interface {
	// SpotPrice returns the underlying index level.
	SpotPrice(ctx context.Context, underlying string) (float64, error)

	// OptionChain returns nearest-expiry contracts for the underlying,
	// filtered to the given option type ("CE" or "PE").
	OptionChain(ctx context.Context, underlying, optionType string) ([]market.Instrument, error)
}

type Scanner struct {
	cfg  config.ScannerConfig
	data ChainProvider
	log  *zap.Logger
}

func New(cfg config.ScannerConfig, data ChainProvider, log *zap.Logger) *Scanner {
	return &Scanner{cfg: cfg, data: data, log: log}
}

// Select picks the day's contract. Preference order is at-the-money,
// then nearest out-of-the-money, then nearest in-the-money; ties break
// toward the premium closest to the middle of the band.
func (s *Scanner) Select(ctx context.Context) (market.Instrument, error) {
	spot, err := s.data.SpotPrice(ctx, s.cfg.Underlying)
	if err != nil {
		return market.Instrument{}, fmt.Errorf("spot price: %w", err)
	}

	chain, err := s.data.OptionChain(ctx, s.cfg.Underlying, s.cfg.OptionType)
	if err != nil {
		return market.Instrument{}, fmt.Errorf("option chain: %w", err)
	}

	atm := math.Round(spot/s.cfg.StrikeStep) * s.cfg.StrikeStep
	mid := (s.cfg.PremiumMin + s.cfg.PremiumMax) / 2

	var inBand []market.Instrument
	for _, inst := range chain {
		if inst.LTP >= s.cfg.PremiumMin && inst.LTP <= s.cfg.PremiumMax {
			inBand = append(inBand, inst)
		}
	}
	if len(inBand) == 0 {
		return market.Instrument{}, ErrNoContract
	}

	sort.Slice(inBand, func(i, j int) bool {
		ri, rj := s.rank(inBand[i].Strike, atm), s.rank(inBand[j].Strike, atm)
		if ri != rj {
			return ri < rj
		}
		di, dj := math.Abs(inBand[i].Strike-atm), math.Abs(inBand[j].Strike-atm)
		if di != dj {
			return di < dj
		}
		return math.Abs(inBand[i].LTP-mid) < math.Abs(inBand[j].LTP-mid)
	})

	picked := inBand[0]
	s.log.Info("contract selected",
		zap.String("symbol", picked.Symbol),
		zap.Float64("strike", picked.Strike),
		zap.Float64("spot", spot),
		zap.Float64("premium", picked.LTP),
	)
	return picked, nil
}

// rank orders strikes by moneyness preference: 0 at the money, 1 out
// of the money, 2 in the money. For a call, higher strikes are out of
// the money; a put inverts that.
func (s *Scanner) rank(strike, atm float64) int {
	switch {
	case strike == atm:
		return 0
	case s.cfg.OptionType == "CE" && strike > atm:
		return 1
	case s.cfg.OptionType == "PE" && strike < atm:
		return 1
	default:
		return 2
	}
}
