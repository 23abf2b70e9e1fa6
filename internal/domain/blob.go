package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobObject describes a stored object.
type BlobObject struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobReader lists and deletes stored objects. Reading archived snapshots
// back is done out of band; the bot itself only needs listing for retention
// pruning.
type BlobReader interface {
	List(ctx context.Context, prefix string) ([]BlobObject, error)
	Delete(ctx context.Context, path string) error
}

// SnapshotArchiver uploads raw marketplace exports to cold storage and
// prunes archives older than the retention window.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, game string, raw []byte, taken time.Time) (string, error)
	Prune(ctx context.Context, game string, before time.Time) (int, error)
}
