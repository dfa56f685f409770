// Package minio provides a blobstore.BlobStore backed by MinIO or any
// S3-compatible object store.
package minio

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/medivault/recall/blobstore"
)

// Compile time check to ensure Store satisfies the BlobStore interface.
var _ blobstore.BlobStore = (*Store)(nil)

// Store implements blobstore.BlobStore for MinIO.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a MinIO blob store. prefix is prepended to all keys.
func New(client *minio.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Connect dials a MinIO endpoint with static credentials and returns a store.
func Connect(endpoint, accessKey, secretKey, bucket, prefix string, secure bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}
	return New(client, bucket, prefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens a blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	return &minioBlob{obj: obj, size: info.Size}, nil
}

// Create buffers the blob in memory and uploads it on Commit.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &minioWritableBlob{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    s.key(name),
	}, nil
}

// Delete removes a blob; missing blobs are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns blob names with the given prefix, relative to the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(strings.TrimPrefix(obj.Key, s.prefix), "/")
		names = append(names, name)
	}
	return names, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

type minioBlob struct {
	obj  *minio.Object
	size int64
}

func (b *minioBlob) Read(p []byte) (int, error) { return b.obj.Read(p) }
func (b *minioBlob) Close() error               { return b.obj.Close() }
func (b *minioBlob) Size() int64                { return b.size }

type minioWritableBlob struct {
	ctx       context.Context
	client    *minio.Client
	bucket    string
	key       string
	buf       bytes.Buffer
	committed bool
}

func (w *minioWritableBlob) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *minioWritableBlob) Commit() error {
	if w.committed {
		return nil
	}
	_, err := w.client.PutObject(w.ctx, w.bucket, w.key,
		bytes.NewReader(w.buf.Bytes()), int64(w.buf.Len()), minio.PutObjectOptions{})
	if err != nil {
		return err
	}
	w.committed = true
	return nil
}

func (w *minioWritableBlob) Close() error {
	w.buf.Reset()
	return nil
}
