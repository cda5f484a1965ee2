// Package ocr runs text extraction over tenant documents with a line, word
// and form-analysis fallback ladder.
package ocr

import (
	"context"
	"sort"
	"strings"

	"tenant-validation/internal/shared/storage/object"
)

type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
)

// Trace steps recorded in ExtractionResult.PipelineTrace.
const (
	StepDownloadFailed     = "download-failed"
	StepUnsupportedMedia   = "unsupported-media"
	StepCopyOK             = "copy-ok"
	StepCopyCached         = "copy-cached"
	StepCopyFailed         = "copy-failed"
	StepDetectFailed       = "detect-failed"
	StepJobStarted         = "job-started"
	StepJobStartFailed     = "job-start-failed"
	StepJobTimeout         = "job-timeout"
	StepJobFailed          = "job-failed"
	StepLineTextOK         = "line-text-ok"
	StepLineTextEmpty      = "line-text-empty"
	StepWordFallbackUsed   = "word-fallback-used"
	StepWordFallbackEmpty  = "word-fallback-empty"
	StepFormJobStarted     = "form-job-started"
	StepFormJobTimeout     = "form-job-timeout"
	StepFormFallbackUsed   = "form-fallback-used"
	StepFormFallbackEmpty  = "form-fallback-empty"
	StepFormFallbackFailed = "form-fallback-failed"
	StepFormFallbackSkip   = "form-fallback-skipped"
)

// Tier names the ladder rung that produced text.
type Tier string

const (
	TierNone Tier = ""
	TierLine Tier = "line"
	TierWord Tier = "word"
	TierForm Tier = "form"
)

// Document is the subset of an uploaded document the orchestrator needs.
type Document struct {
	ID         string
	StorageKey string
	MimeType   string
	FileName   string
}

// ExtractionResult is the per-document outcome. It is never persisted on its
// own; validation payloads embed it.
type ExtractionResult struct {
	SourceDocumentID string            `json:"sourceDocumentId"`
	Mode             Mode              `json:"mode"`
	RawLines         []string          `json:"rawLines"`
	RawWords         []string          `json:"rawWords"`
	FormKeyValues    map[string]string `json:"formKeyValues"`
	PipelineTrace    []string          `json:"pipelineTrace"`
	Status           Status            `json:"status"`
	Tier             Tier              `json:"tier,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorCode        string            `json:"errorCode,omitempty"`
}

// HasText reports whether any ladder tier produced content.
func (r ExtractionResult) HasText() bool {
	return len(r.RawLines) > 0 || len(r.RawWords) > 0 || len(r.FormKeyValues) > 0
}

// Lines returns the best available text as lines: line tier first, then the
// word tier joined into one line, then "KEY: VALUE" form pairs in key order.
func (r ExtractionResult) Lines() []string {
	if len(r.RawLines) > 0 {
		return r.RawLines
	}
	if len(r.RawWords) > 0 {
		return []string{strings.Join(r.RawWords, " ")}
	}
	if len(r.FormKeyValues) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.FormKeyValues))
	for k := range r.FormKeyValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+r.FormKeyValues[k])
	}
	return out
}

// Text returns Lines joined by newlines.
func (r ExtractionResult) Text() string {
	return strings.Join(r.Lines(), "\n")
}

func (r *ExtractionResult) trace(step string) {
	r.PipelineTrace = append(r.PipelineTrace, step)
}

// JobState mirrors the OCR service's job lifecycle.
type JobState string

const (
	JobInProgress     JobState = "IN_PROGRESS"
	JobSucceeded      JobState = "SUCCEEDED"
	JobPartialSuccess JobState = "PARTIAL_SUCCESS"
	JobFailed         JobState = "FAILED"
)

// TextPage is a normalized detect-text response.
type TextPage struct {
	Lines []string
	Words []string
}

// JobPage is one page of an async job's results. Form jobs return either
// resolved KeyValues or raw FormBlocks, which are resolved after the last page.
type JobPage struct {
	State      JobState
	Message    string
	Lines      []string
	Words      []string
	KeyValues  map[string]string
	FormBlocks []FormBlock
	NextToken  string
}

// Client is the OCR vendor contract.
type Client interface {
	DetectText(ctx context.Context, data []byte) (TextPage, error)
	AnalyzeForms(ctx context.Context, data []byte) (map[string]string, error)
	StartTextJob(ctx context.Context, loc object.Location) (string, error)
	GetTextJob(ctx context.Context, jobID, nextToken string) (JobPage, error)
	StartFormJob(ctx context.Context, loc object.Location) (string, error)
	GetFormJob(ctx context.Context, jobID, nextToken string) (JobPage, error)
}
