package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkosilov/skinsbot/internal/domain"
	"github.com/pkosilov/skinsbot/internal/notify"
	"github.com/pkosilov/skinsbot/internal/platform/lisskins"
)

// Dispatcher consumes a single opportunity popped from the queue.
type Dispatcher interface {
	// Name identifies the dispatcher in logs.
	Name() string
	// Dispatch handles one opportunity. A non-nil error marks the attempt
	// as failed; the drainer decides how long to pause afterwards.
	Dispatch(ctx context.Context, opp domain.Opportunity) error
}

// FormatOpportunity renders an opportunity as a Markdown alert with the
// marketplace and Steam listing links. Figures are rounded to two
// decimals for display only.
func FormatOpportunity(opp domain.Opportunity) (title, body string) {
	title = fmt.Sprintf("%.1f%% | %s", opp.ProfitPct, opp.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", escapeMarkdown(opp.Name))
	fmt.Fprintf(&b, "Buy: %.2f USD\n", opp.BuyPrice)
	fmt.Fprintf(&b, "Reference: %.2f USD\n", opp.ReferencePrice)
	fmt.Fprintf(&b, "Net after fee: %.2f USD\n", opp.NetSell)
	fmt.Fprintf(&b, "Profit: %.2f USD (%.1f%%)\n\n", opp.ProfitAbs, opp.ProfitPct)
	fmt.Fprintf(&b, "[lis-skins](%s) | [Steam](%s)\n\n",
		lisskins.ItemURL(opp.Game, opp.Name),
		lisskins.SteamMarketURL(opp.Name))
	fmt.Fprintf(&b, "#%s", strings.ToUpper(opp.Game))
	return title, b.String()
}

// escapeMarkdown neutralises the Markdown control characters that show
// up in item names, mainly '*' from StatTrak and souvenir stars.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "[", "\\[", "`", "\\`")
	return r.Replace(s)
}

// NotifyDispatcher forwards opportunities to the notifier as alerts.
type NotifyDispatcher struct {
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewNotifyDispatcher(notifier *notify.Notifier, logger *slog.Logger) *NotifyDispatcher {
	return &NotifyDispatcher{
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_dispatcher")),
	}
}

func (d *NotifyDispatcher) Name() string { return "notify" }

func (d *NotifyDispatcher) Dispatch(ctx context.Context, opp domain.Opportunity) error {
	title, body := FormatOpportunity(opp)
	if err := d.notifier.Notify(ctx, notify.EventOpportunity, title, body); err != nil {
		return fmt.Errorf("pipeline: notify opportunity %s: %w", opp.Name, err)
	}
	d.logger.Info("opportunity alert sent",
		slog.String("item", opp.Name),
		slog.Float64("profit_pct", opp.ProfitPct))
	return nil
}

// PurchaseDispatcher submits a buy order for each opportunity and
// confirms successful purchases through the notifier. The rate limiter
// caps submissions across replicas; notifier may be nil when running
// without alerting configured.
type PurchaseDispatcher struct {
	sink            domain.PurchaseSink
	notifier        *notify.Notifier
	limiter         domain.RateLimiter
	partner         string
	token           string
	maxPriceFactor  float64
	skipUnavailable bool
	rateLimit       int
	rateWindow      time.Duration
	logger          *slog.Logger
}

// PurchaseConfig carries the trade parameters forwarded verbatim to the
// marketplace buy endpoint. MaxPriceFactor scales the observed listing
// price into the max_price guard; zero disables the guard. RateLimit and
// RateLimitWindow bound buy submissions across replicas when a limiter is
// present; a non-positive limit disables the throttle.
type PurchaseConfig struct {
	Partner         string
	Token           string
	MaxPriceFactor  float64
	SkipUnavailable bool
	RateLimit       int
	RateLimitWindow time.Duration
}

func NewPurchaseDispatcher(sink domain.PurchaseSink, notifier *notify.Notifier, limiter domain.RateLimiter, cfg PurchaseConfig, logger *slog.Logger) *PurchaseDispatcher {
	return &PurchaseDispatcher{
		sink:            sink,
		notifier:        notifier,
		limiter:         limiter,
		partner:         cfg.Partner,
		token:           cfg.Token,
		maxPriceFactor:  cfg.MaxPriceFactor,
		skipUnavailable: cfg.SkipUnavailable,
		rateLimit:       cfg.RateLimit,
		rateWindow:      cfg.RateLimitWindow,
		logger:          logger.With(slog.String("component", "purchase_dispatcher")),
	}
}

func (d *PurchaseDispatcher) Name() string { return "purchase" }

func (d *PurchaseDispatcher) Dispatch(ctx context.Context, opp domain.Opportunity) error {
	if d.limiter != nil && d.rateLimit > 0 {
		if err := d.limiter.Wait(ctx, "purchase", d.rateLimit, d.rateWindow); err != nil {
			return fmt.Errorf("pipeline: purchase rate limit: %w", err)
		}
	}

	req := domain.PurchaseRequest{
		ListingIDs:      []string{opp.ListingID},
		Partner:         d.partner,
		Token:           d.token,
		SkipUnavailable: d.skipUnavailable,
		CustomID:        uuid.NewString(),
	}
	if d.maxPriceFactor > 0 {
		req.MaxPrice = opp.BuyPrice * d.maxPriceFactor
	}

	result, err := d.sink.SubmitPurchase(ctx, req)
	if err != nil {
		return fmt.Errorf("pipeline: buy %s (listing %s): %w", opp.Name, opp.ListingID, err)
	}

	d.logger.Info("purchase submitted",
		slog.String("item", opp.Name),
		slog.String("listing_id", opp.ListingID),
		slog.String("purchase_id", result.PurchaseID),
		slog.String("status", result.Status),
		slog.Float64("buy_price", opp.BuyPrice),
		slog.Float64("profit_pct", opp.ProfitPct))

	if d.notifier != nil {
		title := fmt.Sprintf("Bought %s", opp.Name)
		body := fmt.Sprintf("*%s*\n\nPaid: %.2f USD\nExpected profit: %.2f USD (%.1f%%)\nPurchase ID: `%s` (%s)",
			escapeMarkdown(opp.Name), opp.BuyPrice, opp.ProfitAbs, opp.ProfitPct, result.PurchaseID, result.Status)
		if nerr := d.notifier.Notify(ctx, notify.EventPurchase, title, body); nerr != nil {
			d.logger.Warn("purchase confirmation alert failed", slog.Any("error", nerr))
		}
	}
	return nil
}

var (
	_ Dispatcher = (*NotifyDispatcher)(nil)
	_ Dispatcher = (*PurchaseDispatcher)(nil)
)
