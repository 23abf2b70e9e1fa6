package lisskins

import (
	"strconv"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// exportItem is one listing in the full-market JSON export. The export
// carries one entry per individual listing, so the same item name appears
// many times at different prices.
type exportItem struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// buyRequest is the POST body for the /v1/market/buy endpoint.
type buyRequest struct {
	IDs             []int64 `json:"ids"`
	Partner         string  `json:"partner"`
	Token           string  `json:"token"`
	SkipUnavailable bool    `json:"skip_unavailable"`
	MaxPrice        float64 `json:"max_price,omitempty"`
	CustomID        string  `json:"custom_id,omitempty"`
}

// buyResponse wraps the purchase confirmation returned by the API.
type buyResponse struct {
	Data struct {
		PurchaseID int64  `json:"purchase_id"`
		Status     string `json:"status"`
	} `json:"data"`
}

// wsTokenResponse wraps the short-lived Centrifugo connection token.
type wsTokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// collapseListings reduces the per-listing export to one entry per item
// name, keeping the minimum price and the ID of that cheapest listing.
func collapseListings(items []exportItem) map[string]domain.Listing {
	out := make(map[string]domain.Listing, len(items))
	for _, it := range items {
		if it.Name == "" {
			continue
		}
		cur, ok := out[it.Name]
		if !ok || it.Price < cur.MinPrice {
			out[it.Name] = domain.Listing{
				Name:      it.Name,
				MinPrice:  it.Price,
				ListingID: strconv.FormatInt(it.ID, 10),
			}
		}
	}
	return out
}
