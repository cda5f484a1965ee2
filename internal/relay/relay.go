// Package relay makes origin blobs readable from the OCR service's region.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenant-validation/internal/shared/metrics"
	"tenant-validation/internal/shared/storage/object"
	"tenant-validation/internal/shared/telemetry"
)

// CachePrefix namespaces relayed copies inside the OCR bucket.
const CachePrefix = "ocr-cache/"

// ErrCopyFailed wraps any failure to place the blob in the OCR bucket.
var ErrCopyFailed = errors.New("relay copy failed")

// Result reports where the blob can be read and whether a copy was made.
type Result struct {
	Location object.Location
	Copied   bool
}

// Relay copies blobs into the OCR bucket on demand.
type Relay struct {
	mirror object.Mirror
}

func New(mirror object.Mirror) *Relay {
	return &Relay{mirror: mirror}
}

// Key returns the relay key for an origin key.
func Key(sourceKey string) string {
	return CachePrefix + strings.TrimLeft(sourceKey, "/")
}

// EnsureAvailable copies sourceKey into the OCR bucket unless it is already
// there. Calling it twice for the same key performs at most one copy.
func (r *Relay) EnsureAvailable(ctx context.Context, sourceKey string) (Result, error) {
	if strings.TrimSpace(sourceKey) == "" {
		return Result{}, fmt.Errorf("%w: empty source key", ErrCopyFailed)
	}
	target := Key(sourceKey)
	loc := object.Location{Bucket: r.mirror.Bucket(), Key: target}

	exists, err := r.mirror.Exists(ctx, target)
	if err != nil {
		// fall through to the copy; a failing copy is reported below
		telemetry.Warn("relay.exists_check_failed", map[string]any{"key": target, "error": err})
	}
	if exists {
		return Result{Location: loc}, nil
	}

	if err := r.mirror.Copy(ctx, sourceKey, target); err != nil {
		telemetry.Error("relay.copy", map[string]any{
			"source_key": sourceKey,
			"target":     target,
			"bucket":     loc.Bucket,
			"error":      err,
		})
		return Result{Location: loc}, fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}
	metrics.IncRelayCopy()
	telemetry.Info("relay.copy", map[string]any{
		"source_key": sourceKey,
		"target":     target,
		"bucket":     loc.Bucket,
	})
	return Result{Location: loc, Copied: true}, nil
}
