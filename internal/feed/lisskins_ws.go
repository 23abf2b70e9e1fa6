// Package feed maintains the live marketplace event stream. It wraps
// the Centrifugo WebSocket client with token refresh and reconnect
// handling so downstream consumers only see a stream of skin events.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkosilov/skinsbot/internal/domain"
	"github.com/pkosilov/skinsbot/internal/platform/lisskins"
)

// reconnectDelay is the fixed pause between reconnect attempts.
const reconnectDelay = 2 * time.Second

// TokenFunc returns a fresh WebSocket connection token. Tokens are
// short-lived, so one is requested per connection attempt.
type TokenFunc func(ctx context.Context) (string, error)

// SkinEventHandler receives each decoded marketplace event.
type SkinEventHandler func(ctx context.Context, ev domain.SkinEvent)

// LisSkinsFeed connects to the lis-skins Centrifugo endpoint,
// subscribes to the obtained-skins channel, and invokes the handler on
// each event. It reconnects with a fresh token on disconnect.
type LisSkinsFeed struct {
	wsURL     string
	token     TokenFunc
	handler   SkinEventHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewLisSkinsFeed creates a feed. wsURL may be empty to use the
// production endpoint.
func NewLisSkinsFeed(wsURL string, token TokenFunc, handler SkinEventHandler, logger *slog.Logger) *LisSkinsFeed {
	if wsURL == "" {
		wsURL = lisskins.DefaultWSURL
	}
	return &LisSkinsFeed{
		wsURL:   wsURL,
		token:   token,
		handler: handler,
		logger:  logger.With(slog.String("component", "lisskins_ws_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects and consumes events until ctx is cancelled or Close is
// called. Disconnects and token failures trigger a reconnect after a
// short delay.
func (f *LisSkinsFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("ws feed disconnected, reconnecting",
				slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *LisSkinsFeed) runConnection(ctx context.Context) error {
	token, err := f.token(ctx)
	if err != nil {
		return err
	}

	client := lisskins.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnSkinEvent(func(ev domain.SkinEvent) {
		f.handler(ctx, ev)
	})

	if err := client.Connect(ctx, token); err != nil {
		return err
	}
	f.logger.Info("ws feed subscribed", slog.String("channel", lisskins.SkinsChannel))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	case <-client.Done():
		return domain.ErrWSDisconnect
	}
}

// Close stops the feed.
func (f *LisSkinsFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
