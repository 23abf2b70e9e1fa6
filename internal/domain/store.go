package domain

import "context"

// PriceStore reads pre-filtered reference resale prices from persistent
// storage. The selector identifies the snapshot table to read; filtering
// (quality criteria, minimum price floor) is the store's responsibility.
type PriceStore interface {
	// Load returns a mapping from decoded item name to reference sell price.
	Load(ctx context.Context, selector string) (map[string]float64, error)
}

// ListingSource supplies the current cheapest marketplace offer per item
// name, already de-duplicated to the minimum price.
type ListingSource interface {
	Listings(ctx context.Context) (map[string]Listing, error)
}

// PurchaseRequest describes a single buy submission to the marketplace.
type PurchaseRequest struct {
	ListingIDs      []string
	Partner         string
	Token           string
	MaxPrice        float64 // 0 means no ceiling
	SkipUnavailable bool
	CustomID        string
}

// PurchaseResult is the marketplace's answer to a buy submission.
type PurchaseResult struct {
	PurchaseID string
	Status     string
}

// PurchaseSink submits buy requests to the marketplace.
type PurchaseSink interface {
	SubmitPurchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
}
