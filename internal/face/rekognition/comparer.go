// Package rekognition adapts AWS Rekognition CompareFaces to face.Comparer.
package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"tenant-validation/internal/face"
)

// API is the subset of the Rekognition client used here.
type API interface {
	CompareFaces(ctx context.Context, in *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

type Comparer struct {
	api API
}

func New(ctx context.Context, region string) (*Comparer, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Comparer{api: rekognition.NewFromConfig(cfg)}, nil
}

func NewWithAPI(api API) *Comparer {
	return &Comparer{api: api}
}

func (c *Comparer) CompareFaces(ctx context.Context, source, target []byte, threshold float64) ([]face.Match, error) {
	out, err := c.api.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: source},
		TargetImage:         &types.Image{Bytes: target},
		SimilarityThreshold: aws.Float32(float32(threshold)),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition compare: %w", err)
	}
	matches := make([]face.Match, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		matches = append(matches, face.Match{Similarity: float64(aws.ToFloat32(m.Similarity))})
	}
	return matches, nil
}

var _ face.Comparer = (*Comparer)(nil)
