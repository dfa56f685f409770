// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
package s3

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/medivault/recall/blobstore"
)

// Compile time check to ensure Store satisfies the BlobStore interface.
var _ blobstore.BlobStore = (*Store)(nil)

// Store implements blobstore.BlobStore for Amazon S3.
//
// Object stores have no atomic rename; Commit maps to a single PutObject,
// which S3 applies atomically per key.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 blob store. prefix is prepended to all keys
// (e.g. "recall/").
func New(client *s3.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewFromDefaultConfig creates a store using the ambient AWS configuration
// (environment, shared config, instance role).
func NewFromDefaultConfig(ctx context.Context, bucket, prefix string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return New(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens a blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &s3Blob{body: out, size: size}, nil
}

// Create buffers the blob in memory and uploads it on Commit.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &s3WritableBlob{
		ctx:      ctx,
		uploader: manager.NewUploader(s.client),
		bucket:   s.bucket,
		key:      s.key(name),
	}, nil
}

// Delete removes a blob; missing blobs are ignored (S3 deletes are idempotent).
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// List returns blob names with the given prefix, relative to the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(strings.TrimPrefix(*obj.Key, s.prefix), "/")
			names = append(names, name)
		}
	}
	return names, nil
}

type s3Blob struct {
	body *s3.GetObjectOutput
	size int64
}

func (b *s3Blob) Read(p []byte) (int, error) { return b.body.Body.Read(p) }
func (b *s3Blob) Close() error               { return b.body.Body.Close() }
func (b *s3Blob) Size() int64                { return b.size }

type s3WritableBlob struct {
	ctx       context.Context
	uploader  *manager.Uploader
	bucket    string
	key       string
	buf       bytes.Buffer
	committed bool
}

func (w *s3WritableBlob) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3WritableBlob) Commit() error {
	if w.committed {
		return nil
	}
	_, err := w.uploader.Upload(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return err
	}
	w.committed = true
	return nil
}

func (w *s3WritableBlob) Close() error {
	w.buf.Reset()
	return nil
}
