package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkosilov/skinsbot/internal/domain"
)

func notifyParams() Params {
	return Params{Game: "cs2", FeeRate: 0.144, MinRatio: 1.1}
}

func buyParams() Params {
	return Params{Game: "cs2", FeeRate: 0.144, MinRatio: 1.1, MaxRatio: 1.9}
}

func TestEvaluateProfitableItem(t *testing.T) {
	prices := map[string]float64{"AK-47 | Redline (Field-Tested)": 100.00}
	listings := map[string]domain.Listing{
		"AK-47 | Redline (Field-Tested)": {Name: "AK-47 | Redline (Field-Tested)", MinPrice: 50.00, ListingID: "123456"},
	}

	opps := Evaluate(prices, listings, buyParams())
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "cs2", opp.Game)
	assert.Equal(t, "123456", opp.ListingID)
	assert.InDelta(t, 85.60, opp.NetSell, 1e-9)
	assert.InDelta(t, 1.712, opp.ProfitRatio, 1e-9)
	assert.InDelta(t, 71.2, opp.ProfitPct, 1e-9)
	assert.InDelta(t, 35.60, opp.ProfitAbs, 1e-9)
}

func TestEvaluateBelowBand(t *testing.T) {
	// 85.60 / 80.00 = 1.07, below the 1.1 floor.
	prices := map[string]float64{"item": 100.00}
	listings := map[string]domain.Listing{"item": {Name: "item", MinPrice: 80.00}}

	assert.Empty(t, Evaluate(prices, listings, buyParams()))
	assert.Empty(t, Evaluate(prices, listings, notifyParams()))
}

func TestEvaluateUpperBoundDivergesByMode(t *testing.T) {
	// 85.60 / 45.05 ≈ 1.9001: above the buy-mode ceiling but fine for the
	// open-ended notify band.
	prices := map[string]float64{"item": 100.00}
	listings := map[string]domain.Listing{"item": {Name: "item", MinPrice: 45.05}}

	assert.Empty(t, Evaluate(prices, listings, buyParams()))
	require.Len(t, Evaluate(prices, listings, notifyParams()), 1)
}

func TestEvaluateNonPositiveBuyPrice(t *testing.T) {
	prices := map[string]float64{"free": 500.00, "negative": 500.00}
	listings := map[string]domain.Listing{
		"free":     {Name: "free", MinPrice: 0},
		"negative": {Name: "negative", MinPrice: -1},
	}

	assert.Empty(t, Evaluate(prices, listings, notifyParams()))
}

func TestEvaluateSkipsPartialRecords(t *testing.T) {
	prices := map[string]float64{"only-in-db": 100.00, "both": 100.00}
	listings := map[string]domain.Listing{
		"only-on-market": {Name: "only-on-market", MinPrice: 1.00},
		"both":           {Name: "both", MinPrice: 50.00},
	}

	opps := Evaluate(prices, listings, notifyParams())
	require.Len(t, opps, 1)
	assert.Equal(t, "both", opps[0].Name)
}

func TestEvaluateRatioFormula(t *testing.T) {
	cases := []struct {
		ref, buy float64
	}{
		{12.34, 5.67},
		{250.00, 120.00},
		{0.50, 0.25},
	}

	p := notifyParams()
	for _, tc := range cases {
		prices := map[string]float64{"item": tc.ref}
		listings := map[string]domain.Listing{"item": {Name: "item", MinPrice: tc.buy}}

		opps := Evaluate(prices, listings, p)

		wantRatio := tc.ref * (1 - p.FeeRate) / tc.buy
		if wantRatio < p.MinRatio {
			assert.Empty(t, opps)
			continue
		}
		require.Len(t, opps, 1)
		assert.InDelta(t, wantRatio, opps[0].ProfitRatio, 1e-9)
		assert.InDelta(t, (wantRatio-1)*100, opps[0].ProfitPct, 1e-9)
		assert.InDelta(t, tc.ref*(1-p.FeeRate)-tc.buy, opps[0].ProfitAbs, 1e-9)
	}
}
