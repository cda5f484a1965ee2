package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tenant-validation/internal/shared/storage/object"
)

// Mirror copies objects from the origin bucket into a bucket in the OCR
// region. The copy is issued by the target-region client.
type Mirror struct {
	target       API
	sourceBucket string
	sourcePrefix string
	targetBucket string
	kmsKeyID     string
}

// NewMirror builds a cross-region mirror. targetClient must be configured for
// the target bucket's region.
func NewMirror(targetClient API, sourceBucket, sourcePrefix, targetBucket, kmsKeyID string) (*Mirror, error) {
	if sourceBucket == "" || targetBucket == "" {
		return nil, fmt.Errorf("mirror requires source and target buckets")
	}
	return &Mirror{
		target:       targetClient,
		sourceBucket: sourceBucket,
		sourcePrefix: strings.Trim(strings.TrimSpace(sourcePrefix), "/"),
		targetBucket: targetBucket,
		kmsKeyID:     strings.TrimSpace(kmsKeyID),
	}, nil
}

func (m *Mirror) Bucket() string { return m.targetBucket }

// Exists reports whether key is already present in the target bucket.
func (m *Mirror) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.target.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.targetBucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head object bucket=%s key=%s: %w", m.targetBucket, key, err)
}

// Copy performs a server-side copy of sourceKey into targetKey.
func (m *Mirror) Copy(ctx context.Context, sourceKey, targetKey string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(m.targetBucket),
		Key:        aws.String(targetKey),
		CopySource: aws.String(copySource(m.sourceBucket, applyPrefix(m.sourcePrefix, sourceKey))),
	}
	if m.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(m.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	if _, err := m.target.CopyObject(ctx, input); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", object.ErrNotFound, sourceKey)
		}
		return fmt.Errorf("s3 copy object %s -> %s/%s: %w", sourceKey, m.targetBucket, targetKey, err)
	}
	return nil
}

func (m *Mirror) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return getObject(ctx, m.target, m.targetBucket, key)
}

var _ object.Mirror = (*Mirror)(nil)
