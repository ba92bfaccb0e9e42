// Package storage holds the object store backends. Objects are addressed by
// opaque keys and never listed.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectMissing = errors.New("object missing")

type ObjectStore interface {
	// Put stores size bytes read from body under key.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Get opens the object stored under key. It returns ErrObjectMissing if
	// there's none. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
