// Package storage provides blob storage backends for unpacked archive
// contents. Keys are archive-scoped slash-separated paths.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Backend is the narrow blob-store contract the ingestion pipeline
// consumes. Implementations must be safe for concurrent readers.
type Backend interface {
	// Write stores data under key, creating parent prefixes as needed.
	Write(ctx context.Context, key string, data []byte) error
	// Read returns the full contents stored under key.
	Read(ctx context.Context, key string) ([]byte, error)
	// OpenStream opens a reader for key. Used by streaming extraction so
	// large files never have to be materialized in memory.
	OpenStream(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// ResolveURI returns a URI for key suitable for external consumption.
	ResolveURI(key string) string
}
