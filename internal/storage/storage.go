// Package storage uploads pipeline results to object storage and resolves
// their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Store is the object-storage collaborator used by the pipeline.
type Store interface {
	// Upload streams body to bucket/key. With upsert set an existing
	// object under the same key is replaced.
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string, upsert bool) error

	// PublicURL returns the public address of bucket/key. It never fails
	// and does not check that the object exists.
	PublicURL(bucket, key string) string
}

// Error wraps a failure reported by the storage service.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
