// Package blobstore abstracts the persistence substrate that index artifacts
// are written to and restored from.
//
// Artifacts are named blobs addressed by flat keys. Implementations must be
// safe for concurrent use.
//
// Built-in implementations:
//
//   - Local: local filesystem, atomic publish via temp file + rename
//   - Memory: in-memory store for tests
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible object stores
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// BlobStore reads and writes named blobs.
type BlobStore interface {
	// Open opens an existing blob for sequential reading.
	// Returns ErrNotFound if the blob does not exist.
	Open(ctx context.Context, name string) (Blob, error)

	// Create starts a new blob write. Nothing is visible under name until
	// Commit; a Close without Commit discards the write.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Reader
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a pending blob write.
//
// Commit publishes the written bytes under the blob's name; until then no
// reader can observe a partial artifact. Close releases resources and, if
// Commit was not called, discards the write.
type WritableBlob interface {
	io.Writer
	Commit() error
	io.Closer
}
