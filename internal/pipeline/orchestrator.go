package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the refresh and drain loops as one unit. Either
// loop returning an error tears down the other through the shared
// group context.
type Orchestrator struct {
	refresher *Refresher
	drainer   *Drainer
	interval  time.Duration
	logger    *slog.Logger
}

func NewOrchestrator(refresher *Refresher, drainer *Drainer, refreshInterval time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		refresher: refresher,
		drainer:   drainer,
		interval:  refreshInterval,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run blocks until the context is cancelled or one of the loops fails.
// Context cancellation is the expected shutdown path and is not
// reported as an error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.refresher.RunLoop(gctx, o.interval)
	})
	g.Go(func() error {
		return o.drainer.RunLoop(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		o.logger.Info("pipeline stopped")
		return nil
	}
	return err
}
