package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tenant-validation/internal/shared/storage/object"
)

// Options configures the S3-compatible endpoint.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Region skips the bucket-location lookup when set.
	Region string
}

// NewClient creates a minio client for the endpoint.
func NewClient(opts Options) (*minio.Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// EnsureBucket creates bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// Store implements object.Store on an S3-compatible server.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates a minio-backed store.
func New(client *minio.Client, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	return &Store{client: client, bucket: bucket}, nil
}

func (s *Store) Save(ctx context.Context, ownerID, fileName string, r io.Reader) (object.Stored, error) {
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return object.Stored{}, fmt.Errorf("build key: %w", err)
	}
	mime, body, err := object.Sniff(r)
	if err != nil {
		return object.Stored{}, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{ContentType: mime})
	if err != nil {
		return object.Stored{}, fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return object.Stored{Key: key, SizeBytes: info.Size, MimeType: mime}, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return openObject(ctx, s.client, s.bucket, key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return nil
}

// Mirror copies objects between two buckets on the same server.
type Mirror struct {
	client       *minio.Client
	sourceBucket string
	targetBucket string
}

func NewMirror(client *minio.Client, sourceBucket, targetBucket string) *Mirror {
	return &Mirror{client: client, sourceBucket: sourceBucket, targetBucket: targetBucket}
}

func (m *Mirror) Bucket() string { return m.targetBucket }

func (m *Mirror) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.targetBucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("minio stat object bucket=%s key=%s: %w", m.targetBucket, key, err)
}

func (m *Mirror) Copy(ctx context.Context, sourceKey, targetKey string) error {
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.targetBucket, Object: targetKey},
		minio.CopySrcOptions{Bucket: m.sourceBucket, Object: sourceKey},
	)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", object.ErrNotFound, sourceKey)
		}
		return fmt.Errorf("minio copy %s/%s -> %s/%s: %w", m.sourceBucket, sourceKey, m.targetBucket, targetKey, err)
	}
	return nil
}

func (m *Mirror) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return openObject(ctx, m.client, m.targetBucket, key)
}

// openObject stats first because GetObject defers errors to the first Read.
func openObject(ctx context.Context, client *minio.Client, bucket, key string) (io.ReadCloser, error) {
	if _, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", object.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("minio stat object bucket=%s key=%s: %w", bucket, key, err)
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", bucket, key, err)
	}
	return obj, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

var (
	_ object.Store  = (*Store)(nil)
	_ object.Mirror = (*Mirror)(nil)
)
