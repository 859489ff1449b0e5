// Package storage persists media blobs. Metadata lives in the database;
// the bytes go either to a local directory or to S3-compatible object
// storage, selected at startup.
package storage

import (
	"context"
	"io"
)

// Store is the blob backend the media handlers write through.
type Store interface {
	// Save writes the blob under key. The reader must be seekable so
	// failed uploads can be retried from the start.
	Save(ctx context.Context, key, contentType string, size int64, r io.ReadSeeker) error

	// URL returns a fetchable URL for the blob: a static path for local
	// storage, a time-limited presigned URL for S3.
	URL(ctx context.Context, key string) (string, error)

	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Type reports which storage_type value rows written through this
	// store should carry.
	Type() string
}
