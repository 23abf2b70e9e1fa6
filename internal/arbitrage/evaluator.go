// Package arbitrage contains the opportunity evaluator and the bounded,
// shuffled opportunity queue shared between the refresh and drain loops.
package arbitrage

import "github.com/pkosilov/skinsbot/internal/domain"

// Params controls how candidate opportunities are scored and filtered.
type Params struct {
	// Game tags every produced opportunity (e.g. "cs2").
	Game string

	// FeeRate is the resale-platform fee applied multiplicatively to the
	// reference price (0.144 means the seller nets 85.6% of it).
	FeeRate float64

	// MinRatio is the inclusive lower bound of the acceptance band. It must
	// be above 1.0 for the bot to only surface net-positive candidates.
	MinRatio float64

	// MaxRatio is the inclusive upper bound of the acceptance band. Values
	// above it are discarded as implausible quotes. Zero or negative
	// disables the upper bound.
	MaxRatio float64
}

// Evaluate joins a reference-price snapshot with a listing snapshot and
// returns every item whose profit ratio lies inside the acceptance band.
//
// Items present in only one of the snapshots are skipped, as are listings
// with a non-positive price. The ratio test runs on unrounded values; the
// returned records also carry unrounded figures, rounding is left to the
// message formatter. Evaluate has no side effects and is safe to call
// concurrently on independent inputs.
func Evaluate(prices map[string]float64, listings map[string]domain.Listing, p Params) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, 64)

	for name, refPrice := range prices {
		listing, ok := listings[name]
		if !ok {
			continue
		}

		netSell := refPrice * (1 - p.FeeRate)

		ratio := 0.0
		if listing.MinPrice > 0 {
			ratio = netSell / listing.MinPrice
		}

		if ratio < p.MinRatio {
			continue
		}
		if p.MaxRatio > 0 && ratio > p.MaxRatio {
			continue
		}

		out = append(out, domain.Opportunity{
			Game:           p.Game,
			Name:           name,
			ListingID:      listing.ListingID,
			ReferencePrice: refPrice,
			BuyPrice:       listing.MinPrice,
			NetSell:        netSell,
			ProfitRatio:    ratio,
			ProfitAbs:      netSell - listing.MinPrice,
			ProfitPct:      (ratio - 1) * 100,
		})
	}

	return out
}
