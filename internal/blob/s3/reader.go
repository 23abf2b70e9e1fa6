package s3blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// Reader implements domain.BlobReader using an S3-compatible backend. The
// bot only lists and deletes objects (retention pruning); reading archived
// snapshots back is done with external tooling.
type Reader struct {
	client *s3.Client
	bucket string
}

// NewReader creates a new Reader for the given client's configured bucket.
func NewReader(c *Client) *Reader {
	return &Reader{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// List returns metadata for all objects whose key starts with the given
// prefix, following continuation tokens until all matches are collected.
func (r *Reader) List(ctx context.Context, prefix string) ([]domain.BlobObject, error) {
	var objects []domain.BlobObject

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list prefix %s: %w", prefix, err)
		}

		for _, obj := range page.Contents {
			object := domain.BlobObject{
				Path: aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				object.LastModified = *obj.LastModified
			}
			objects = append(objects, object)
		}
	}

	return objects, nil
}

// Delete removes the object at the given path. Deleting a missing object is
// not an error in S3.
func (r *Reader) Delete(ctx context.Context, path string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("s3blob: delete %s: %w", path, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BlobReader = (*Reader)(nil)
