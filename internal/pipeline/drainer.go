package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkosilov/skinsbot/internal/arbitrage"
)

// Drainer pops one opportunity from the queue per tick and hands it to
// the dispatcher. After a dispatch it pauses for an outcome-dependent
// duration before the next tick, which throttles purchase bursts
// without slowing down an idle queue.
type Drainer struct {
	queue      *arbitrage.Queue
	dispatcher Dispatcher
	logger     *slog.Logger

	interval     time.Duration
	successPause time.Duration
	failurePause time.Duration
}

// DrainPolicy sets the drainer timing. Interval is the base tick; the
// pauses are added after a dispatch attempt depending on its outcome
// and may be zero.
type DrainPolicy struct {
	Interval     time.Duration
	SuccessPause time.Duration
	FailurePause time.Duration
}

func NewDrainer(queue *arbitrage.Queue, dispatcher Dispatcher, policy DrainPolicy, logger *slog.Logger) *Drainer {
	return &Drainer{
		queue:      queue,
		dispatcher: dispatcher,
		logger: logger.With(
			slog.String("component", "drainer"),
			slog.String("dispatcher", dispatcher.Name())),
		interval:     policy.Interval,
		successPause: policy.SuccessPause,
		failurePause: policy.FailurePause,
	}
}

// DrainOne pops and dispatches a single opportunity. It returns the
// extra pause to apply before the next tick, which is zero when the
// queue was empty.
func (d *Drainer) DrainOne(ctx context.Context) time.Duration {
	opp, ok := d.queue.Take()
	if !ok {
		return 0
	}

	if err := d.dispatcher.Dispatch(ctx, opp); err != nil {
		d.logger.Error("dispatch failed",
			slog.String("item", opp.Name),
			slog.Any("error", err))
		return d.failurePause
	}
	return d.successPause
}

// RunLoop drains the queue until the context is cancelled. An empty
// queue is the normal idle state, not an error.
func (d *Drainer) RunLoop(ctx context.Context) error {
	d.logger.Info("drain loop started",
		slog.Duration("interval", d.interval),
		slog.Duration("success_pause", d.successPause),
		slog.Duration("failure_pause", d.failurePause))

	for {
		pause := d.DrainOne(ctx)
		if err := sleepCtx(ctx, d.interval+pause); err != nil {
			d.logger.Info("drain loop stopped")
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
