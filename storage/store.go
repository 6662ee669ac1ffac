// Package storage persists study outputs as named blobs.
//
// Keys are slash-separated relative paths such as "models/model.gob.zst".
// LocalStore writes under a directory; package storage/minio writes to an
// S3-compatible bucket.
package storage

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist. Implementations return
// an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// BlobStore stores whole blobs by key.
type BlobStore interface {
	// Put writes data under key, replacing any previous blob atomically.
	Put(ctx context.Context, key string, data []byte) error
	// Get reads the blob stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the sorted keys starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
