package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// multipartThreshold: exports above this size go through the multipart
// uploader instead of a single PutObject.
const multipartThreshold = 8 * 1024 * 1024

// Archiver implements domain.SnapshotArchiver. It stores raw marketplace
// exports under snapshots/{game}/{timestamp}.json and prunes archives older
// than the retention cutoff.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewArchiver creates an Archiver using the given writer and reader.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader) *Archiver {
	return &Archiver{writer: writer, reader: reader}
}

func snapshotPrefix(game string) string {
	return "snapshots/" + game + "/"
}

// ArchiveSnapshot uploads the raw export bytes and returns the object path.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, game string, raw []byte, taken time.Time) (string, error) {
	path := fmt.Sprintf("%s%s.json", snapshotPrefix(game), taken.UTC().Format("2006-01-02T15-04-05Z"))

	if int64(len(raw)) > multipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(raw), multipartThreshold); err != nil {
			return "", fmt.Errorf("s3blob: archive snapshot %s: %w", game, err)
		}
		return path, nil
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(raw), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive snapshot %s: %w", game, err)
	}
	return path, nil
}

// Prune deletes archived snapshots last modified before the cutoff and
// returns the number of objects removed.
func (a *Archiver) Prune(ctx context.Context, game string, before time.Time) (int, error) {
	objects, err := a.reader.List(ctx, snapshotPrefix(game))
	if err != nil {
		return 0, fmt.Errorf("s3blob: prune snapshots %s: %w", game, err)
	}

	deleted := 0
	for _, obj := range objects {
		if !obj.LastModified.Before(before) {
			continue
		}
		if err := a.reader.Delete(ctx, obj.Path); err != nil {
			return deleted, fmt.Errorf("s3blob: prune snapshots %s: %w", game, err)
		}
		deleted++
	}

	return deleted, nil
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*Archiver)(nil)
