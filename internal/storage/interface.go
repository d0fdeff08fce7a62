package storage

import (
	"context"
	"io"
)

// Storage holds uploaded documents between intake and the worker that
// consumes them. Keys are owned by a single job; the worker deletes the
// object once the document's text has been consumed.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
