package ports

import (
	"context"
	"errors"
	"io"
)

// Common storage errors
var (
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectMetadata represents metadata associated with stored objects
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	UserMetadata  map[string]string
}

// Storage abstracts the object store a symbol cache is mirrored into and
// restored from, so the filesystem and S3 adapters are interchangeable.
type Storage interface {
	// Put stores an object under key
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get retrieves an object by key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
