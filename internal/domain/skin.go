// Package domain defines the core types and interfaces of the skin arbitrage
// bot: reference prices, marketplace listings, evaluated opportunities, and
// the store/cache/blob contracts implemented by the infrastructure packages.
package domain

import "time"

// Listing is the cheapest current offer for one item on the marketplace.
// When the marketplace has several offers for the same item name, only the
// minimum price and the ID of that cheapest offer are retained.
type Listing struct {
	Name      string
	MinPrice  float64
	ListingID string
}

// Opportunity is a single evaluated buy-low / sell-high candidate. It is
// created by the evaluator once per refresh cycle and never mutated after
// creation. All monetary figures are kept at full float precision; rounding
// to two decimals happens only when the record is formatted for delivery.
type Opportunity struct {
	Game      string
	Name      string
	ListingID string

	// ReferencePrice is the expected resale price before platform fees.
	ReferencePrice float64
	// BuyPrice is the current minimum marketplace ask.
	BuyPrice float64
	// NetSell is ReferencePrice after the resale fee has been deducted.
	NetSell float64
	// ProfitRatio is NetSell / BuyPrice, or 0 when BuyPrice <= 0.
	ProfitRatio float64
	// ProfitAbs is NetSell - BuyPrice.
	ProfitAbs float64
	// ProfitPct is (ProfitRatio - 1) * 100.
	ProfitPct float64
}

// SkinEvent is a decoded marketplace push event (obtained-skins channel).
type SkinEvent struct {
	Event      string
	ID         string
	Name       string
	Price      float64
	ReceivedAt time.Time
}

// Skin event types published on the obtained-skins channel.
const (
	EventSkinAdded        = "obtained_skin_added"
	EventSkinDeleted      = "obtained_skin_deleted"
	EventSkinPriceChanged = "obtained_skin_price_changed"
)
