// Package lisskins is the REST and WebSocket client for the lis-skins
// marketplace: full-market listing exports, purchase submission, and the
// Centrifugo token handshake for the real-time obtained-skins feed.
package lisskins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkosilov/skinsbot/internal/domain"
)

const (
	// DefaultAPIBase is the authenticated API root.
	DefaultAPIBase = "https://api.lis-skins.com"
	// DefaultExportBase hosts the unauthenticated full-market JSON exports.
	DefaultExportBase = "https://lis-skins.com"

	// maxPurchaseIDs is the hard API limit on ids per buy request. The bot
	// only ever submits one, but the guard keeps the client honest.
	maxPurchaseIDs = 100
)

// Client talks to the lis-skins marketplace.
type Client struct {
	apiBase    string
	exportBase string
	apiKey     string
	game       string
	httpClient *http.Client
}

// NewClient creates a marketplace client for the given game export (e.g.
// "csgo"). Empty base URLs fall back to production endpoints.
func NewClient(apiBase, exportBase, apiKey, game string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if exportBase == "" {
		exportBase = DefaultExportBase
	}
	return &Client{
		apiBase:    apiBase,
		exportBase: exportBase,
		apiKey:     apiKey,
		game:       game,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// RawExport downloads the full-market export untouched. The dump mode
// archives exactly these bytes.
func (c *Client) RawExport(ctx context.Context) ([]byte, error) {
	url := fmt.Sprintf("%s/market_export_json/%s.json", c.exportBase, c.game)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lisskins: create export request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lisskins: fetch export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lisskins: fetch export: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lisskins: read export body: %w", err)
	}
	return raw, nil
}

// Listings downloads the market export and collapses it to the cheapest
// offer per item name.
func (c *Client) Listings(ctx context.Context) (map[string]domain.Listing, error) {
	raw, err := c.RawExport(ctx)
	if err != nil {
		return nil, err
	}

	var items []exportItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("lisskins: decode export: %w", err)
	}

	return collapseListings(items), nil
}

// SubmitPurchase submits a buy request for the listings in req. The API
// accepts at most 100 ids per call.
func (c *Client) SubmitPurchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResult, error) {
	if len(req.ListingIDs) == 0 {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: submit purchase: no listing ids")
	}
	if len(req.ListingIDs) > maxPurchaseIDs {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: submit purchase: %d ids exceeds the API limit of %d", len(req.ListingIDs), maxPurchaseIDs)
	}
	if req.Partner == "" || req.Token == "" {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: submit purchase: trade partner and token are required")
	}

	ids := make([]int64, 0, len(req.ListingIDs))
	for _, s := range req.ListingIDs {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.PurchaseResult{}, fmt.Errorf("lisskins: submit purchase: bad listing id %q: %w", s, err)
		}
		ids = append(ids, id)
	}

	payload := buyRequest{
		IDs:             ids,
		Partner:         req.Partner,
		Token:           req.Token,
		SkipUnavailable: req.SkipUnavailable,
		MaxPrice:        req.MaxPrice,
		CustomID:        req.CustomID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: marshal buy payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/market/buy", bytes.NewReader(body))
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: create buy request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: send buy request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: buy: %w", domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: buy: %w", domain.ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: buy: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed buyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("lisskins: decode buy response: %w", err)
	}

	return domain.PurchaseResult{
		PurchaseID: strconv.FormatInt(parsed.Data.PurchaseID, 10),
		Status:     parsed.Data.Status,
	}, nil
}

// WSToken fetches a short-lived token for the Centrifugo WebSocket
// connection.
func (c *Client) WSToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v1/user/get-ws-token", nil)
	if err != nil {
		return "", fmt.Errorf("lisskins: create ws-token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lisskins: fetch ws token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("lisskins: fetch ws token: %w", domain.ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lisskins: fetch ws token: unexpected status %d", resp.StatusCode)
	}

	var parsed wsTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("lisskins: decode ws token: %w", err)
	}
	if parsed.Data.Token == "" {
		return "", fmt.Errorf("lisskins: ws token response contained no token")
	}
	return parsed.Data.Token, nil
}

// Compile-time interface checks.
var (
	_ domain.ListingSource = (*Client)(nil)
	_ domain.PurchaseSink  = (*Client)(nil)
)
