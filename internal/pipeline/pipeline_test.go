package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkosilov/skinsbot/internal/arbitrage"
	"github.com/pkosilov/skinsbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePriceStore struct {
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakePriceStore) Load(ctx context.Context, selector string) (map[string]float64, error) {
	f.calls++
	return f.prices, f.err
}

type fakeListingSource struct {
	listings map[string]domain.Listing
	err      error
}

func (f *fakeListingSource) Listings(ctx context.Context) (map[string]domain.Listing, error) {
	return f.listings, f.err
}

type fakeCache struct {
	snapshot map[string]domain.Listing
	takenAt  time.Time
	getErr   error
	setCalls int
}

func (f *fakeCache) SetSnapshot(ctx context.Context, game string, listings map[string]domain.Listing) error {
	f.setCalls++
	f.snapshot = listings
	return nil
}

func (f *fakeCache) GetSnapshot(ctx context.Context, game string) (map[string]domain.Listing, time.Time, error) {
	if f.getErr != nil {
		return nil, time.Time{}, f.getErr
	}
	return f.snapshot, f.takenAt, nil
}

type fakeDispatcher struct {
	dispatched []domain.Opportunity
	err        error
}

func (f *fakeDispatcher) Name() string { return "fake" }

func (f *fakeDispatcher) Dispatch(ctx context.Context, opp domain.Opportunity) error {
	f.dispatched = append(f.dispatched, opp)
	return f.err
}

type fakeSink struct {
	requests []domain.PurchaseRequest
	result   domain.PurchaseResult
	err      error
}

func (f *fakeSink) SubmitPurchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return domain.PurchaseResult{}, f.err
	}
	return f.result, nil
}

func testParams() arbitrage.Params {
	return arbitrage.Params{Game: "cs2", FeeRate: 0.144, MinRatio: 1.1, MaxRatio: 1.9}
}

func TestRefresherFillsQueue(t *testing.T) {
	prices := &fakePriceStore{prices: map[string]float64{"AK-47 | Redline (Field-Tested)": 100}}
	listings := &fakeListingSource{listings: map[string]domain.Listing{
		"AK-47 | Redline (Field-Tested)": {Name: "AK-47 | Redline (Field-Tested)", MinPrice: 50, ListingID: "7"},
	}}
	queue := arbitrage.NewQueue(10)

	r := NewRefresher(prices, listings, nil, queue, testParams(), "cs2_sales_data", testLogger())
	require.NoError(t, r.Refresh(context.Background()))

	assert.Equal(t, 1, queue.Len())
	opp, ok := queue.Take()
	require.True(t, ok)
	assert.Equal(t, "7", opp.ListingID)
	assert.InDelta(t, 71.2, opp.ProfitPct, 1e-9)
}

func TestRefresherKeepsQueueOnPriceStoreFailure(t *testing.T) {
	queue := arbitrage.NewQueue(10)
	queue.Replace([]domain.Opportunity{{Name: "stale", ProfitPct: 50}})

	prices := &fakePriceStore{err: errors.New("db down")}
	r := NewRefresher(prices, &fakeListingSource{}, nil, queue, testParams(), "cs2_sales_data", testLogger())

	require.Error(t, r.Refresh(context.Background()))
	assert.Equal(t, 1, queue.Len(), "failed refresh must not discard the previous queue contents")
}

func TestRefresherUpdatesSnapshotCache(t *testing.T) {
	cache := &fakeCache{}
	prices := &fakePriceStore{prices: map[string]float64{"item": 100}}
	listings := &fakeListingSource{listings: map[string]domain.Listing{
		"item": {Name: "item", MinPrice: 50, ListingID: "1"},
	}}
	queue := arbitrage.NewQueue(10)

	r := NewRefresher(prices, listings, cache, queue, testParams(), "cs2_sales_data", testLogger())
	require.NoError(t, r.Refresh(context.Background()))

	assert.Equal(t, 1, cache.setCalls)
	assert.Contains(t, cache.snapshot, "item")
}

func TestRefresherFallsBackToCachedSnapshot(t *testing.T) {
	cache := &fakeCache{
		snapshot: map[string]domain.Listing{"item": {Name: "item", MinPrice: 50, ListingID: "1"}},
		takenAt:  time.Now().Add(-time.Minute),
	}
	prices := &fakePriceStore{prices: map[string]float64{"item": 100}}
	listings := &fakeListingSource{err: errors.New("export 502")}
	queue := arbitrage.NewQueue(10)

	r := NewRefresher(prices, listings, cache, queue, testParams(), "cs2_sales_data", testLogger())
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, 1, queue.Len())
}

func TestRefresherFailsWhenSourceAndCacheUnavailable(t *testing.T) {
	cache := &fakeCache{getErr: domain.ErrNotFound}
	prices := &fakePriceStore{prices: map[string]float64{"item": 100}}
	listings := &fakeListingSource{err: errors.New("export 502")}
	queue := arbitrage.NewQueue(10)

	r := NewRefresher(prices, listings, cache, queue, testParams(), "cs2_sales_data", testLogger())
	err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export 502", "the original fetch error should surface, not the cache miss")
}

func TestDrainerEmptyQueueIsIdle(t *testing.T) {
	queue := arbitrage.NewQueue(10)
	disp := &fakeDispatcher{}
	d := NewDrainer(queue, disp, DrainPolicy{Interval: time.Second}, testLogger())

	pause := d.DrainOne(context.Background())
	assert.Zero(t, pause)
	assert.Empty(t, disp.dispatched)
}

func TestDrainerPausePolicy(t *testing.T) {
	policy := DrainPolicy{
		Interval:     10 * time.Second,
		SuccessPause: 15 * time.Second,
		FailurePause: 2 * time.Second,
	}

	t.Run("success", func(t *testing.T) {
		queue := arbitrage.NewQueue(10)
		queue.Replace([]domain.Opportunity{{Name: "item", ProfitPct: 50}})
		disp := &fakeDispatcher{}
		d := NewDrainer(queue, disp, policy, testLogger())

		assert.Equal(t, policy.SuccessPause, d.DrainOne(context.Background()))
		assert.Len(t, disp.dispatched, 1)
	})

	t.Run("failure", func(t *testing.T) {
		queue := arbitrage.NewQueue(10)
		queue.Replace([]domain.Opportunity{{Name: "item", ProfitPct: 50}})
		disp := &fakeDispatcher{err: errors.New("api down")}
		d := NewDrainer(queue, disp, policy, testLogger())

		assert.Equal(t, policy.FailurePause, d.DrainOne(context.Background()))
	})
}

func TestDrainerRunLoopStopsOnCancel(t *testing.T) {
	queue := arbitrage.NewQueue(10)
	d := NewDrainer(queue, &fakeDispatcher{}, DrainPolicy{Interval: time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.RunLoop(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("drain loop did not stop after cancellation")
	}
}

func TestFormatOpportunity(t *testing.T) {
	opp := domain.Opportunity{
		Game:           "cs2",
		Name:           "AK-47 | Redline (Field-Tested)",
		ListingID:      "7",
		ReferencePrice: 100,
		BuyPrice:       50,
		NetSell:        85.6,
		ProfitAbs:      35.6,
		ProfitPct:      71.2,
	}

	title, body := FormatOpportunity(opp)
	assert.Equal(t, "71.2% | AK-47 | Redline (Field-Tested)", title)
	assert.Contains(t, body, "Buy: 50.00 USD")
	assert.Contains(t, body, "Reference: 100.00 USD")
	assert.Contains(t, body, "Net after fee: 85.60 USD")
	assert.Contains(t, body, "Profit: 35.60 USD (71.2%)")
	assert.Contains(t, body, "https://lis-skins.com/market/cs2/ak-47-redline-field-tested")
	assert.Contains(t, body, "https://steamcommunity.com/market/listings/730/")
	assert.Contains(t, body, "#CS2")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Sticker \*Foil\* \[Crown]`, escapeMarkdown("Sticker *Foil* [Crown]"))
	assert.Equal(t, "plain name", escapeMarkdown("plain name"))
}

type fakeLimiter struct {
	waitKeys    []string
	waitLimits  []int
	waitWindows []time.Duration
	err         error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, f.err
}

func (f *fakeLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	f.waitKeys = append(f.waitKeys, key)
	f.waitLimits = append(f.waitLimits, limit)
	f.waitWindows = append(f.waitWindows, window)
	return f.err
}

func TestPurchaseDispatcherUsesConfiguredRateLimit(t *testing.T) {
	sink := &fakeSink{result: domain.PurchaseResult{PurchaseID: "p-1", Status: "completed"}}
	limiter := &fakeLimiter{}
	d := NewPurchaseDispatcher(sink, nil, limiter, PurchaseConfig{
		Partner:         "1",
		Token:           "t",
		RateLimit:       30,
		RateLimitWindow: time.Minute,
	}, testLogger())

	require.NoError(t, d.Dispatch(context.Background(), domain.Opportunity{Name: "item", ListingID: "42"}))

	require.Len(t, limiter.waitKeys, 1)
	assert.Equal(t, "purchase", limiter.waitKeys[0])
	assert.Equal(t, 30, limiter.waitLimits[0])
	assert.Equal(t, time.Minute, limiter.waitWindows[0])
}

func TestPurchaseDispatcherSkipsLimiterWhenDisabled(t *testing.T) {
	sink := &fakeSink{result: domain.PurchaseResult{PurchaseID: "p-1", Status: "completed"}}
	limiter := &fakeLimiter{}
	d := NewPurchaseDispatcher(sink, nil, limiter, PurchaseConfig{
		Partner: "1", Token: "t", RateLimit: 0,
	}, testLogger())

	require.NoError(t, d.Dispatch(context.Background(), domain.Opportunity{Name: "item", ListingID: "42"}))
	assert.Empty(t, limiter.waitKeys)
	assert.Len(t, sink.requests, 1)
}

func TestPurchaseDispatcherSubmitsSingleListing(t *testing.T) {
	sink := &fakeSink{result: domain.PurchaseResult{PurchaseID: "p-1", Status: "completed"}}
	d := NewPurchaseDispatcher(sink, nil, nil, PurchaseConfig{
		Partner:         "12345",
		Token:           "abcdef",
		MaxPriceFactor:  1.0,
		SkipUnavailable: true,
	}, testLogger())

	opp := domain.Opportunity{Game: "cs2", Name: "item", ListingID: "42", BuyPrice: 10.5, ProfitPct: 25}
	require.NoError(t, d.Dispatch(context.Background(), opp))

	require.Len(t, sink.requests, 1)
	req := sink.requests[0]
	assert.Equal(t, []string{"42"}, req.ListingIDs)
	assert.Equal(t, "12345", req.Partner)
	assert.Equal(t, "abcdef", req.Token)
	assert.InDelta(t, 10.5, req.MaxPrice, 1e-9)
	assert.True(t, req.SkipUnavailable)
	assert.NotEmpty(t, req.CustomID)
}

func TestPurchaseDispatcherNoPriceCeilingWhenFactorZero(t *testing.T) {
	sink := &fakeSink{result: domain.PurchaseResult{PurchaseID: "p-1", Status: "completed"}}
	d := NewPurchaseDispatcher(sink, nil, nil, PurchaseConfig{Partner: "1", Token: "t"}, testLogger())

	opp := domain.Opportunity{Name: "item", ListingID: "42", BuyPrice: 10.5}
	require.NoError(t, d.Dispatch(context.Background(), opp))
	assert.Zero(t, sink.requests[0].MaxPrice)
}

func TestPurchaseDispatcherWrapsSinkError(t *testing.T) {
	sink := &fakeSink{err: domain.ErrRateLimited}
	d := NewPurchaseDispatcher(sink, nil, nil, PurchaseConfig{Partner: "1", Token: "t"}, testLogger())

	err := d.Dispatch(context.Background(), domain.Opportunity{Name: "item", ListingID: "42"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestWatcherDispatchesMatchingEvent(t *testing.T) {
	prices := &fakePriceStore{prices: map[string]float64{"item": 100}}
	disp := &fakeDispatcher{}
	w := NewWatcher(prices, disp, testParams(), "cs2_sales_data", testLogger())
	require.NoError(t, w.RefreshPrices(context.Background()))

	w.HandleEvent(context.Background(), domain.SkinEvent{
		Event: domain.EventSkinAdded, ID: "9", Name: "item", Price: 50,
	})

	require.Len(t, disp.dispatched, 1)
	assert.Equal(t, "9", disp.dispatched[0].ListingID)
	assert.InDelta(t, 71.2, disp.dispatched[0].ProfitPct, 1e-9)
}

func TestWatcherIgnoresOutOfBandAndUnknown(t *testing.T) {
	prices := &fakePriceStore{prices: map[string]float64{"item": 100}}
	disp := &fakeDispatcher{}
	w := NewWatcher(prices, disp, testParams(), "cs2_sales_data", testLogger())
	require.NoError(t, w.RefreshPrices(context.Background()))

	// Too expensive: ratio below the minimum.
	w.HandleEvent(context.Background(), domain.SkinEvent{Event: domain.EventSkinAdded, ID: "1", Name: "item", Price: 80})
	// No reference price for this name.
	w.HandleEvent(context.Background(), domain.SkinEvent{Event: domain.EventSkinAdded, ID: "2", Name: "other", Price: 50})
	// Deletions carry no actionable listing.
	w.HandleEvent(context.Background(), domain.SkinEvent{Event: domain.EventSkinDeleted, ID: "3", Name: "item", Price: 50})

	assert.Empty(t, disp.dispatched)
}

type fakeExportSource struct {
	raw []byte
	err error
}

func (f *fakeExportSource) RawExport(ctx context.Context) ([]byte, error) {
	return f.raw, f.err
}

type fakeArchiver struct {
	archived [][]byte
	pruned   []time.Time
	err      error
}

func (f *fakeArchiver) ArchiveSnapshot(ctx context.Context, game string, raw []byte, taken time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, raw)
	return "snapshots/" + game + "/test.json", nil
}

func (f *fakeArchiver) Prune(ctx context.Context, game string, before time.Time) (int, error) {
	f.pruned = append(f.pruned, before)
	return 1, nil
}

func TestArchiveLoopArchivesAndPrunes(t *testing.T) {
	source := &fakeExportSource{raw: []byte(`[{"id":1}]`)}
	arch := &fakeArchiver{}
	l := NewArchiveLoop(source, arch, "cs2", 90, testLogger())

	require.NoError(t, l.ArchiveOnce(context.Background()))

	require.Len(t, arch.archived, 1)
	assert.Equal(t, source.raw, arch.archived[0])
	require.Len(t, arch.pruned, 1)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -90), arch.pruned[0], time.Minute)
}

func TestArchiveLoopSkipsPruneWithoutRetention(t *testing.T) {
	source := &fakeExportSource{raw: []byte(`[]`)}
	arch := &fakeArchiver{}
	l := NewArchiveLoop(source, arch, "cs2", 0, testLogger())

	require.NoError(t, l.ArchiveOnce(context.Background()))
	assert.Empty(t, arch.pruned)
}

func TestArchiveLoopPropagatesFetchError(t *testing.T) {
	source := &fakeExportSource{err: errors.New("export 502")}
	arch := &fakeArchiver{}
	l := NewArchiveLoop(source, arch, "cs2", 90, testLogger())

	require.Error(t, l.ArchiveOnce(context.Background()))
	assert.Empty(t, arch.archived)
}

func TestOrchestratorStopsCleanlyOnCancel(t *testing.T) {
	prices := &fakePriceStore{prices: map[string]float64{}}
	listings := &fakeListingSource{listings: map[string]domain.Listing{}}
	queue := arbitrage.NewQueue(10)

	r := NewRefresher(prices, listings, nil, queue, testParams(), "cs2_sales_data", testLogger())
	d := NewDrainer(queue, &fakeDispatcher{}, DrainPolicy{Interval: time.Millisecond}, testLogger())
	o := NewOrchestrator(r, d, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("orchestrator did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, prices.calls, 1)
}
