package face

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tenant-validation/internal/shared/storage/object"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		sim     float64
		matches int
		want    State
	}{
		{"at threshold", 90, 1, StateOK},
		{"above threshold", 99.2, 2, StateOK},
		{"just below threshold", 89.99, 1, StateWarn},
		{"at warn floor", 85, 1, StateWarn},
		{"below warn floor", 84.99, 1, StateFail},
		{"no matches", 95, 0, StateFail},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.sim, tt.matches, 90))
		})
	}
}

func body(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func TestEvaluatorPicksBestMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := NewMockOpener(ctrl)
	comparer := NewMockComparer(ctrl)

	images.EXPECT().Open(gomock.Any(), "selfie.jpg").Return(body("selfie"), nil)
	images.EXPECT().Open(gomock.Any(), "ine.jpg").Return(body("ine"), nil)
	comparer.EXPECT().
		CompareFaces(gomock.Any(), []byte("selfie"), []byte("ine"), 85.0).
		Return([]Match{{Similarity: 86.5}, {Similarity: 91.2}}, nil)

	res, err := NewEvaluator(images, comparer).Compare(context.Background(), "selfie.jpg", "ine.jpg", 90)
	require.NoError(t, err)
	assert.Equal(t, 91.2, res.Similarity)
	assert.Equal(t, 2, res.MatchCount)
	assert.Equal(t, StateOK, res.State)
	assert.Equal(t, 90.0, res.Threshold)
}

func TestEvaluatorDefaultThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := NewMockOpener(ctrl)
	comparer := NewMockComparer(ctrl)

	images.EXPECT().Open(gomock.Any(), gomock.Any()).Return(body("x"), nil).Times(2)
	comparer.EXPECT().CompareFaces(gomock.Any(), gomock.Any(), gomock.Any(), 85.0).Return(nil, nil)

	res, err := NewEvaluator(images, comparer).Compare(context.Background(), "a", "b", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, res.Threshold)
	assert.Equal(t, StateFail, res.State)
	assert.Zero(t, res.MatchCount)
}

func TestEvaluatorServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := NewMockOpener(ctrl)
	comparer := NewMockComparer(ctrl)

	images.EXPECT().Open(gomock.Any(), gomock.Any()).Return(body("x"), nil).Times(2)
	comparer.EXPECT().CompareFaces(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("throttled"))

	_, err := NewEvaluator(images, comparer).Compare(context.Background(), "a", "b", 90)
	require.ErrorIs(t, err, ErrService)
	assert.Equal(t, ErrorCodeService, ErrorCode(err))
}

func TestEvaluatorMissingImageSkipsService(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := NewMockOpener(ctrl)
	comparer := NewMockComparer(ctrl)

	images.EXPECT().Open(gomock.Any(), "a").Return(nil, object.ErrNotFound)

	_, err := NewEvaluator(images, comparer).Compare(context.Background(), "a", "b", 90)
	require.ErrorIs(t, err, object.ErrNotFound)
	assert.Equal(t, ErrorCodeStorage, ErrorCode(err))
}

func TestEvaluatorRequiresKeys(t *testing.T) {
	_, err := NewEvaluator(nil, nil).Compare(context.Background(), "", "b", 90)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
