// Package storage defines the interface for object storage operations and the
// codec between public photo URLs and bucket-relative object paths.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, Supabase, AWS S3).
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBucketNotFound is returned by Upload when the configured bucket does not
// exist. It signals a deployment problem rather than a transient failure, so
// handlers surface it with a message naming the bucket.
var ErrBucketNotFound = errors.New("storage bucket not found")

// Storage is the interface for uploading and removing photo objects.
type Storage interface {
	// Upload streams data to the store under the given key. Keys are unique
	// per upload (see PathCodec.Encode), so uploads never overwrite.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key. Callers invoking Delete as
	// post-commit cleanup log the error and swallow it.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
