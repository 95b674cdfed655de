package core

import (
	"context"
	"io"
)

// FileStore stores opaque blobs (video tutorials) by name.
// Retrieve returns a NotFound error for unknown names; callers must close the stream.
type FileStore interface {
	Store(ctx context.Context, name string, r io.Reader) error
	Retrieve(ctx context.Context, name string) (io.ReadCloser, error)
}
