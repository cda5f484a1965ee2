// Package face compares a selfie against the photo on an ID document.
package face

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tenant-validation/internal/shared/metrics"
	"tenant-validation/internal/shared/telemetry"
)

//go:generate mockgen -source=face.go -destination=comparer_mock.go -package=face

// State is the outcome of a comparison against a threshold.
type State string

const (
	StateOK   State = "ok"
	StateWarn State = "warn"
	StateFail State = "fail"
)

// WarnMargin is how far below the threshold a match still counts as a warning.
const WarnMargin = 5.0

const DefaultThreshold = 90.0

var (
	ErrInvalidInput = errors.New("face: source and target keys are required")
	ErrService      = errors.New("face service error")
)

const (
	ErrorCodeService = "FACE_SERVICE_ERROR"
	ErrorCodeStorage = "STORAGE_ERROR"
)

// Match is one face found in the target image.
type Match struct {
	Similarity float64
}

// Comparer calls the external face similarity service. Matches below
// threshold may be omitted by the service.
type Comparer interface {
	CompareFaces(ctx context.Context, source, target []byte, threshold float64) ([]Match, error)
}

// Opener reads stored images.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Result is what gets stored in the face validation payload.
type Result struct {
	Similarity float64 `json:"similarity"`
	MatchCount int     `json:"matchCount"`
	Threshold  float64 `json:"threshold"`
	State      State   `json:"state"`
}

// Classify applies the threshold rules: at or above t is ok, within
// WarnMargin below t is warn, anything else fails. No match always fails.
func Classify(similarity float64, matches int, threshold float64) State {
	switch {
	case matches < 1:
		return StateFail
	case similarity >= threshold:
		return StateOK
	case similarity >= threshold-WarnMargin:
		return StateWarn
	default:
		return StateFail
	}
}

// Evaluator downloads both images and asks the Comparer once.
type Evaluator struct {
	images   Opener
	comparer Comparer
}

func NewEvaluator(images Opener, comparer Comparer) *Evaluator {
	return &Evaluator{images: images, comparer: comparer}
}

// Compare returns the best match between source and target. A threshold of
// zero or less uses DefaultThreshold.
func (e *Evaluator) Compare(ctx context.Context, sourceKey, targetKey string, threshold float64) (Result, error) {
	if sourceKey == "" || targetKey == "" {
		return Result{}, ErrInvalidInput
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	started := time.Now()

	source, err := e.read(ctx, sourceKey)
	if err != nil {
		return Result{}, err
	}
	target, err := e.read(ctx, targetKey)
	if err != nil {
		return Result{}, err
	}

	// Ask with the warn floor so near misses come back.
	serviceThreshold := threshold - WarnMargin
	if serviceThreshold < 0 {
		serviceThreshold = 0
	}
	matches, err := e.comparer.CompareFaces(ctx, source, target, serviceThreshold)
	metrics.IncFaceCompare()
	if err != nil {
		telemetry.Warn("face.compare", map[string]any{
			"source_key": sourceKey,
			"error":      err.Error(),
		})
		return Result{}, fmt.Errorf("%w: %v", ErrService, err)
	}

	res := Result{Threshold: threshold, MatchCount: len(matches)}
	for _, m := range matches {
		if m.Similarity > res.Similarity {
			res.Similarity = m.Similarity
		}
	}
	res.State = Classify(res.Similarity, res.MatchCount, threshold)

	telemetry.Info("face.compare", map[string]any{
		"source_key":  sourceKey,
		"similarity":  res.Similarity,
		"matches":     res.MatchCount,
		"state":       string(res.State),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return res, nil
}

func (e *Evaluator) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := e.images.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("face: open %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("face: read %s: %w", key, err)
	}
	return data, nil
}

// ErrorCode maps a Compare error to the code stored in payloads.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrService):
		return ErrorCodeService
	default:
		return ErrorCodeStorage
	}
}
