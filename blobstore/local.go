package blobstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Compile time check to ensure Local satisfies the BlobStore interface.
var _ BlobStore = (*Local)(nil)

// Local implements BlobStore on the local filesystem.
//
// Commit is atomic: bytes are staged in a temp file in the same directory,
// flushed and fsynced, then renamed over the target; the directory is fsynced
// afterwards so the rename survives a crash.
type Local struct {
	root string
}

// NewLocal creates a store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("blobstore: empty root directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &Local{root: dir}, nil
}

// Root returns the root directory of the store.
func (s *Local) Root() string {
	return s.root
}

func (s *Local) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("blobstore: invalid blob name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

// Open opens a blob for reading.
func (s *Local) Open(_ context.Context, name string) (Blob, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err // os.ErrNotExist satisfies ErrNotFound
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &localBlob{f: f, size: info.Size()}, nil
}

// Create stages a new blob write in a temp file next to the target.
func (s *Local) Create(_ context.Context, name string) (WritableBlob, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.root, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	_ = tmp.Chmod(0o644)

	return &localWritableBlob{
		f:      tmp,
		buf:    bufio.NewWriterSize(tmp, 256*1024),
		target: path,
		dir:    s.root,
	}, nil
}

// Delete removes a blob; missing blobs are ignored.
func (s *Local) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns blob names with the given prefix, excluding staged temp files.
func (s *Local) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".tmp-") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

type localBlob struct {
	f    *os.File
	size int64
}

func (b *localBlob) Read(p []byte) (int, error) { return b.f.Read(p) }
func (b *localBlob) Close() error               { return b.f.Close() }
func (b *localBlob) Size() int64                { return b.size }

type localWritableBlob struct {
	f         *os.File
	buf       *bufio.Writer
	target    string
	dir       string
	committed bool
	closed    bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *localWritableBlob) Commit() error {
	if w.committed {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	if err := os.Rename(w.f.Name(), w.target); err != nil {
		return err
	}
	w.committed = true
	w.closed = true

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(w.dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func (w *localWritableBlob) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.f.Close()
	return os.Remove(w.f.Name())
}
