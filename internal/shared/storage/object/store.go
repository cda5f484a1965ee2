package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open and Exists implementations for missing keys.
var ErrNotFound = errors.New("object not found")

// Stored describes a blob written by Save.
type Stored struct {
	Key       string
	SizeBytes int64
	MimeType  string
}

// Store is the origin blob store for uploaded tenant documents.
type Store interface {
	Save(ctx context.Context, ownerID, fileName string, r io.Reader) (Stored, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Location addresses an object inside a specific bucket.
type Location struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Mirror replicates origin objects into the bucket the OCR service reads from,
// which may live in another region.
type Mirror interface {
	// Bucket is the mirror's target bucket name.
	Bucket() string
	Exists(ctx context.Context, key string) (bool, error)
	// Copy performs a server-side copy of an origin key to a target key.
	Copy(ctx context.Context, sourceKey, targetKey string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
