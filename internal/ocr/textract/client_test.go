package textract

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"tenant-validation/internal/ocr"
	"tenant-validation/internal/shared/storage/object"
)

type fakeAPI struct {
	API
	detectBlocks []types.Block
	pages        []*textract.GetDocumentTextDetectionOutput
	gotTokens    []string
	startInput   *textract.StartDocumentTextDetectionInput
	analyses     []*textract.GetDocumentAnalysisOutput
}

func (f *fakeAPI) DetectDocumentText(_ context.Context, _ *textract.DetectDocumentTextInput, _ ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	return &textract.DetectDocumentTextOutput{Blocks: f.detectBlocks}, nil
}

func (f *fakeAPI) StartDocumentTextDetection(_ context.Context, in *textract.StartDocumentTextDetectionInput, _ ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error) {
	f.startInput = in
	return &textract.StartDocumentTextDetectionOutput{JobId: aws.String("job-1")}, nil
}

func (f *fakeAPI) GetDocumentTextDetection(_ context.Context, in *textract.GetDocumentTextDetectionInput, _ ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error) {
	f.gotTokens = append(f.gotTokens, aws.ToString(in.NextToken))
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

func (f *fakeAPI) GetDocumentAnalysis(_ context.Context, in *textract.GetDocumentAnalysisInput, _ ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error) {
	f.gotTokens = append(f.gotTokens, aws.ToString(in.NextToken))
	out := f.analyses[0]
	f.analyses = f.analyses[1:]
	return out, nil
}

func word(id, text string) types.Block {
	return types.Block{Id: aws.String(id), BlockType: types.BlockTypeWord, Text: aws.String(text)}
}

func TestDetectTextSplitsLinesAndWords(t *testing.T) {
	api := &fakeAPI{detectBlocks: []types.Block{
		{BlockType: types.BlockTypePage},
		{BlockType: types.BlockTypeLine, Text: aws.String("NOMBRE GOMEZ PEREZ JUAN")},
		word("w1", "NOMBRE"),
		word("w2", "GOMEZ"),
	}}
	page, err := NewWithAPI(api).DetectText(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(page.Lines) != 1 || len(page.Words) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestTextJobUsesRelayLocationAndTokens(t *testing.T) {
	api := &fakeAPI{pages: []*textract.GetDocumentTextDetectionOutput{
		{JobStatus: types.JobStatusSucceeded, NextToken: aws.String("t2"), Blocks: []types.Block{
			{BlockType: types.BlockTypeLine, Text: aws.String("ABONO")},
		}},
	}}
	c := NewWithAPI(api)

	id, err := c.StartTextJob(context.Background(), object.Location{Bucket: "ocr-us", Key: "ocr-cache/a.pdf"})
	if err != nil || id != "job-1" {
		t.Fatalf("start: %q %v", id, err)
	}
	if got := aws.ToString(api.startInput.DocumentLocation.S3Object.Name); got != "ocr-cache/a.pdf" {
		t.Fatalf("unexpected object name %q", got)
	}

	page, err := c.GetTextJob(context.Background(), id, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if page.State != ocr.JobSucceeded || page.NextToken != "t2" || page.Lines[0] != "ABONO" {
		t.Fatalf("unexpected page %+v", page)
	}
	if api.gotTokens[0] != "t1" {
		t.Fatalf("token not forwarded: %v", api.gotTokens)
	}
}

func TestKeyValuesResolvesRelationships(t *testing.T) {
	blocks := []types.Block{
		{
			Id:          aws.String("k1"),
			BlockType:   types.BlockTypeKeyValueSet,
			EntityTypes: []types.EntityType{types.EntityTypeKey},
			Relationships: []types.Relationship{
				{Type: types.RelationshipTypeChild, Ids: []string{"w1", "w2"}},
				{Type: types.RelationshipTypeValue, Ids: []string{"v1"}},
			},
		},
		{
			Id:            aws.String("v1"),
			BlockType:     types.BlockTypeKeyValueSet,
			EntityTypes:   []types.EntityType{types.EntityTypeValue},
			Relationships: []types.Relationship{{Type: types.RelationshipTypeChild, Ids: []string{"w3", "w4"}}},
		},
		word("w1", "APELLIDO"),
		word("w2", "PATERNO:"),
		word("w3", "GOMEZ"),
		word("w4", "LOPEZ"),
		{
			Id:            aws.String("k2"),
			BlockType:     types.BlockTypeKeyValueSet,
			EntityTypes:   []types.EntityType{types.EntityTypeKey},
			Relationships: []types.Relationship{{Type: types.RelationshipTypeValue, Ids: []string{"missing"}}},
		},
	}

	kv := keyValues(blocks)

	if len(kv) != 1 {
		t.Fatalf("expected one pair, got %v", kv)
	}
	if kv["APELLIDO PATERNO"] != "GOMEZ LOPEZ" {
		t.Fatalf("unexpected pairs %v", kv)
	}
}

func TestFormJobPairsSplitAcrossPages(t *testing.T) {
	api := &fakeAPI{analyses: []*textract.GetDocumentAnalysisOutput{
		{JobStatus: types.JobStatusSucceeded, NextToken: aws.String("t2"), Blocks: []types.Block{
			{BlockType: types.BlockTypePage},
			{
				Id:          aws.String("k1"),
				BlockType:   types.BlockTypeKeyValueSet,
				EntityTypes: []types.EntityType{types.EntityTypeKey},
				Relationships: []types.Relationship{
					{Type: types.RelationshipTypeChild, Ids: []string{"w1"}},
					{Type: types.RelationshipTypeValue, Ids: []string{"v1"}},
				},
			},
			word("w1", "CURP:"),
		}},
		{JobStatus: types.JobStatusSucceeded, Blocks: []types.Block{
			{
				Id:            aws.String("v1"),
				BlockType:     types.BlockTypeKeyValueSet,
				EntityTypes:   []types.EntityType{types.EntityTypeValue},
				Relationships: []types.Relationship{{Type: types.RelationshipTypeChild, Ids: []string{"w2"}}},
			},
			word("w2", "GOPJ800101HDFMRN09"),
		}},
	}}
	c := NewWithAPI(api)

	first, err := c.GetFormJob(context.Background(), "job-1", "")
	if err != nil {
		t.Fatalf("get page 1: %v", err)
	}
	if first.NextToken != "t2" || len(first.FormBlocks) != 2 {
		t.Fatalf("unexpected first page %+v", first)
	}
	if kv := ocr.ResolveForms(first.FormBlocks); kv["CURP"] != "" {
		t.Fatalf("value should not resolve from page 1 alone, got %v", kv)
	}

	second, err := c.GetFormJob(context.Background(), "job-1", first.NextToken)
	if err != nil {
		t.Fatalf("get page 2: %v", err)
	}
	kv := ocr.ResolveForms(append(first.FormBlocks, second.FormBlocks...))
	if kv["CURP"] != "GOPJ800101HDFMRN09" {
		t.Fatalf("expected CURP across pages, got %v", kv)
	}
}
