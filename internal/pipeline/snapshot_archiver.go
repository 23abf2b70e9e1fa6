package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// ExportSource supplies the raw marketplace export bytes.
type ExportSource interface {
	RawExport(ctx context.Context) ([]byte, error)
}

// ArchiveLoop periodically stores the raw marketplace export in blob
// storage and prunes archives past the retention window. It is the whole
// of dump mode.
type ArchiveLoop struct {
	source    ExportSource
	archiver  domain.SnapshotArchiver
	game      string
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiveLoop builds an ArchiveLoop. retentionDays <= 0 disables
// pruning.
func NewArchiveLoop(source ExportSource, archiver domain.SnapshotArchiver, game string, retentionDays int, logger *slog.Logger) *ArchiveLoop {
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &ArchiveLoop{
		source:    source,
		archiver:  archiver,
		game:      game,
		retention: retention,
		logger:    logger.With(slog.String("component", "archive_loop")),
	}
}

// ArchiveOnce fetches the export, uploads it, and prunes old archives.
func (l *ArchiveLoop) ArchiveOnce(ctx context.Context) error {
	raw, err := l.source.RawExport(ctx)
	if err != nil {
		return err
	}

	key, err := l.archiver.ArchiveSnapshot(ctx, l.game, raw, time.Now().UTC())
	if err != nil {
		return err
	}
	l.logger.Info("snapshot archived",
		slog.String("key", key),
		slog.Int("bytes", len(raw)))

	if l.retention > 0 {
		cutoff := time.Now().UTC().Add(-l.retention)
		deleted, err := l.archiver.Prune(ctx, l.game, cutoff)
		if err != nil {
			l.logger.Warn("snapshot prune failed", slog.Any("error", err))
		} else if deleted > 0 {
			l.logger.Info("old snapshots pruned", slog.Int("deleted", deleted))
		}
	}
	return nil
}

// RunLoop archives immediately and then on every interval tick until the
// context is cancelled. Failures are logged; the next tick retries.
func (l *ArchiveLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	l.logger.Info("archive loop started", slog.Duration("interval", interval))

	if err := l.ArchiveOnce(ctx); err != nil {
		l.logger.Error("archive cycle failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := l.ArchiveOnce(ctx); err != nil {
				l.logger.Error("archive cycle failed", slog.Any("error", err))
			}
		}
	}
}
