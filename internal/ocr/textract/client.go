// Package textract adapts AWS Textract to the ocr.Client contract.
package textract

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"tenant-validation/internal/ocr"
	"tenant-validation/internal/shared/storage/object"
)

// API is the subset of the Textract client used here.
type API interface {
	DetectDocumentText(ctx context.Context, in *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
	AnalyzeDocument(ctx context.Context, in *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
	StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
	StartDocumentAnalysis(ctx context.Context, in *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	GetDocumentAnalysis(ctx context.Context, in *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

const pageSize = 1000

// Client implements ocr.Client.
type Client struct {
	api API
}

// New loads AWS config for region and returns a Textract-backed client.
func New(ctx context.Context, region string) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{api: textract.NewFromConfig(cfg)}, nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

func (c *Client) DetectText(ctx context.Context, data []byte) (ocr.TextPage, error) {
	out, err := c.api.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return ocr.TextPage{}, fmt.Errorf("textract detect: %w", err)
	}
	lines, words := textBlocks(out.Blocks)
	return ocr.TextPage{Lines: lines, Words: words}, nil
}

func (c *Client) AnalyzeForms(ctx context.Context, data []byte) (map[string]string, error) {
	out, err := c.api.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: data},
		FeatureTypes: []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeTables},
	})
	if err != nil {
		return nil, fmt.Errorf("textract analyze: %w", err)
	}
	return keyValues(out.Blocks), nil
}

func (c *Client) StartTextJob(ctx context.Context, loc object.Location) (string, error) {
	out, err := c.api.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
		DocumentLocation: documentLocation(loc),
	})
	if err != nil {
		return "", fmt.Errorf("textract start text job %s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return aws.ToString(out.JobId), nil
}

func (c *Client) GetTextJob(ctx context.Context, jobID, nextToken string) (ocr.JobPage, error) {
	in := &textract.GetDocumentTextDetectionInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(pageSize),
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}
	out, err := c.api.GetDocumentTextDetection(ctx, in)
	if err != nil {
		return ocr.JobPage{}, fmt.Errorf("textract get text job %s: %w", jobID, err)
	}
	lines, words := textBlocks(out.Blocks)
	return ocr.JobPage{
		State:     ocr.JobState(out.JobStatus),
		Message:   aws.ToString(out.StatusMessage),
		Lines:     lines,
		Words:     words,
		NextToken: aws.ToString(out.NextToken),
	}, nil
}

func (c *Client) StartFormJob(ctx context.Context, loc object.Location) (string, error) {
	out, err := c.api.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: documentLocation(loc),
		FeatureTypes:     []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeTables},
	})
	if err != nil {
		return "", fmt.Errorf("textract start analysis %s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return aws.ToString(out.JobId), nil
}

func (c *Client) GetFormJob(ctx context.Context, jobID, nextToken string) (ocr.JobPage, error) {
	in := &textract.GetDocumentAnalysisInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(pageSize),
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}
	out, err := c.api.GetDocumentAnalysis(ctx, in)
	if err != nil {
		return ocr.JobPage{}, fmt.Errorf("textract get analysis %s: %w", jobID, err)
	}
	return ocr.JobPage{
		State:      ocr.JobState(out.JobStatus),
		Message:    aws.ToString(out.StatusMessage),
		FormBlocks: formBlocks(out.Blocks),
		NextToken:  aws.ToString(out.NextToken),
	}, nil
}

func documentLocation(loc object.Location) *types.DocumentLocation {
	return &types.DocumentLocation{
		S3Object: &types.S3Object{
			Bucket: aws.String(loc.Bucket),
			Name:   aws.String(loc.Key),
		},
	}
}

func textBlocks(blocks []types.Block) (lines, words []string) {
	for _, b := range blocks {
		text := strings.TrimSpace(aws.ToString(b.Text))
		if text == "" {
			continue
		}
		switch b.BlockType {
		case types.BlockTypeLine:
			lines = append(lines, text)
		case types.BlockTypeWord:
			words = append(words, text)
		}
	}
	return lines, words
}

func keyValues(blocks []types.Block) map[string]string {
	return ocr.ResolveForms(formBlocks(blocks))
}

// formBlocks keeps the blocks a form needs: key and value sets, words and
// selection marks.
func formBlocks(blocks []types.Block) []ocr.FormBlock {
	var out []ocr.FormBlock
	for _, b := range blocks {
		fb := ocr.FormBlock{ID: aws.ToString(b.Id)}
		switch b.BlockType {
		case types.BlockTypeKeyValueSet:
			fb.Kind = ocr.BlockValue
			if hasEntity(b, types.EntityTypeKey) {
				fb.Kind = ocr.BlockKey
			}
		case types.BlockTypeWord:
			fb.Kind = ocr.BlockWord
			fb.Text = aws.ToString(b.Text)
		case types.BlockTypeSelectionElement:
			fb.Kind = ocr.BlockSelection
			fb.Selected = b.SelectionStatus == types.SelectionStatusSelected
		default:
			continue
		}
		for _, rel := range b.Relationships {
			switch rel.Type {
			case types.RelationshipTypeChild:
				fb.Children = append(fb.Children, rel.Ids...)
			case types.RelationshipTypeValue:
				fb.Values = append(fb.Values, rel.Ids...)
			}
		}
		out = append(out, fb)
	}
	return out
}

func hasEntity(b types.Block, want types.EntityType) bool {
	for _, e := range b.EntityTypes {
		if e == want {
			return true
		}
	}
	return false
}

var _ ocr.Client = (*Client)(nil)
