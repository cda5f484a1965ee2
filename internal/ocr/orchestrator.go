package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tenant-validation/internal/relay"
	"tenant-validation/internal/shared/metrics"
	"tenant-validation/internal/shared/telemetry"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultJobTimeout   = 120 * time.Second
	defaultConcurrency  = 4
	maxImageBytes       = 10 << 20
)

// Opener reads origin blobs.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Relayer places origin blobs where the OCR service can read them.
type Relayer interface {
	EnsureAvailable(ctx context.Context, sourceKey string) (relay.Result, error)
}

// Options tunes polling and parallelism. Zero values take defaults.
type Options struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
	Concurrency  int
	Clock        Clock
}

// Orchestrator runs the extraction ladder for one or many documents.
type Orchestrator struct {
	client Client
	origin Opener
	relay  Relayer
	opts   Options
}

func NewOrchestrator(client Client, origin Opener, relayer Relayer, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Orchestrator{client: client, origin: origin, relay: relayer, opts: opts}
}

// ExtractAll extracts every document concurrently. Results keep input order
// and one document's failure never affects another's.
func (o *Orchestrator) ExtractAll(ctx context.Context, docs []Document) []ExtractionResult {
	results := make([]ExtractionResult, len(docs))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = ExtractionResult{
						SourceDocumentID: doc.ID,
						Status:           StatusFailed,
						Error:            fmt.Sprintf("panic: %v", rec),
						ErrorCode:        ErrorCodeService,
					}
				}
			}()
			results[i] = o.Extract(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Extract runs the ladder for one document.
func (o *Orchestrator) Extract(ctx context.Context, doc Document) ExtractionResult {
	start := time.Now()
	var res ExtractionResult
	switch {
	case isPDF(doc):
		res = o.extractAsync(ctx, doc)
	case isImage(doc):
		res = o.extractSync(ctx, doc)
	default:
		res = ExtractionResult{SourceDocumentID: doc.ID, Mode: ModeSync}
		o.fail(&res, StepUnsupportedMedia, fmt.Errorf("%w: %s", ErrUnsupportedMedia, doc.MimeType))
	}

	for _, step := range res.PipelineTrace {
		metrics.IncOCRStage(step)
	}
	if res.Status == StatusTimeout {
		metrics.IncOCRTimeout()
	}
	telemetry.Info("ocr.extract", map[string]any{
		"document_id": doc.ID,
		"mode":        res.Mode,
		"status":      res.Status,
		"tier":        res.Tier,
		"trace":       strings.Join(res.PipelineTrace, ","),
		"error_code":  res.ErrorCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res
}

func (o *Orchestrator) extractSync(ctx context.Context, doc Document) ExtractionResult {
	res := ExtractionResult{SourceDocumentID: doc.ID, Mode: ModeSync}

	data, err := o.download(ctx, doc.StorageKey)
	if err != nil {
		o.fail(&res, StepDownloadFailed, err)
		return res
	}

	page, err := o.client.DetectText(ctx, data)
	if err != nil {
		o.fail(&res, StepDetectFailed, err)
	} else if o.applyText(&res, page.Lines, page.Words) {
		return o.succeed(res)
	}

	kv, err := o.client.AnalyzeForms(ctx, data)
	switch {
	case err != nil:
		o.fail(&res, StepFormFallbackFailed, err)
		return res
	case len(kv) > 0:
		res.FormKeyValues = kv
		res.Tier = TierForm
		res.trace(StepFormFallbackUsed)
		return o.succeed(res)
	default:
		res.trace(StepFormFallbackEmpty)
		return o.settle(res)
	}
}

func (o *Orchestrator) extractAsync(ctx context.Context, doc Document) ExtractionResult {
	res := ExtractionResult{SourceDocumentID: doc.ID, Mode: ModeAsync}
	clock := o.opts.Clock
	deadline := clock.Now().Add(o.opts.JobTimeout)

	relayed, err := o.relay.EnsureAvailable(ctx, doc.StorageKey)
	if err != nil {
		o.fail(&res, StepCopyFailed, err)
		return res
	}
	if relayed.Copied {
		res.trace(StepCopyOK)
	} else {
		res.trace(StepCopyCached)
	}

	jobID, err := o.client.StartTextJob(ctx, relayed.Location)
	if err != nil {
		o.fail(&res, StepJobStartFailed, err)
	} else {
		res.trace(StepJobStarted)
		out := awaitJob(ctx, jobID, deadline, o.opts.PollInterval, clock, o.client.GetTextJob)
		switch out.Status {
		case StatusTimeout:
			o.timeout(&res, StepJobTimeout, out.Err)
		case StatusFailed:
			o.fail(&res, StepJobFailed, out.Err)
		default:
			if o.applyText(&res, out.Lines, out.Words) {
				return o.succeed(res)
			}
		}
	}

	if !clock.Now().Before(deadline) {
		res.trace(StepFormFallbackSkip)
		return o.settle(res)
	}

	formID, err := o.client.StartFormJob(ctx, relayed.Location)
	if err != nil {
		o.fail(&res, StepFormFallbackFailed, err)
		return o.settle(res)
	}
	res.trace(StepFormJobStarted)
	out := awaitJob(ctx, formID, deadline, o.opts.PollInterval, clock, o.client.GetFormJob)
	switch {
	case out.Status == StatusTimeout:
		o.timeout(&res, StepFormJobTimeout, out.Err)
	case out.Status == StatusFailed:
		o.fail(&res, StepFormFallbackFailed, out.Err)
	case len(out.KeyValues) > 0:
		res.FormKeyValues = out.KeyValues
		res.Tier = TierForm
		res.trace(StepFormFallbackUsed)
		return o.succeed(res)
	default:
		res.trace(StepFormFallbackEmpty)
	}
	return o.settle(res)
}

// applyText runs the line and word rungs. It reports whether either produced text.
func (o *Orchestrator) applyText(res *ExtractionResult, lines, words []string) bool {
	lines = nonEmpty(lines)
	if len(lines) > 0 {
		res.RawLines = lines
		res.RawWords = nonEmpty(words)
		res.Tier = TierLine
		res.trace(StepLineTextOK)
		return true
	}
	res.trace(StepLineTextEmpty)
	words = nonEmpty(words)
	if len(words) > 0 {
		res.RawWords = words
		res.Tier = TierWord
		res.trace(StepWordFallbackUsed)
		return true
	}
	res.trace(StepWordFallbackEmpty)
	return false
}

func (o *Orchestrator) fail(res *ExtractionResult, step string, err error) {
	res.trace(step)
	if res.Status != StatusTimeout {
		res.Status = StatusFailed
		res.Error = sanitizeError(err)
		res.ErrorCode = classifyFailure(err)
	}
	telemetry.Warn("ocr.stage", map[string]any{
		"document_id": res.SourceDocumentID,
		"step":        step,
		"error":       err,
	})
}

func (o *Orchestrator) timeout(res *ExtractionResult, step string, err error) {
	res.trace(step)
	res.Status = StatusTimeout
	res.Error = sanitizeError(err)
	res.ErrorCode = ErrorCodeTimeout
	telemetry.Warn("ocr.stage", map[string]any{
		"document_id": res.SourceDocumentID,
		"step":        step,
		"error":       err,
	})
}

// succeed clears errors from earlier rungs once a later rung produced text.
func (o *Orchestrator) succeed(res ExtractionResult) ExtractionResult {
	res.Status = StatusSucceeded
	res.Error = ""
	res.ErrorCode = ""
	return res
}

// settle finalizes a result that produced no text. A clean but empty answer
// from the service still counts as succeeded.
func (o *Orchestrator) settle(res ExtractionResult) ExtractionResult {
	if res.Status == "" {
		res.Status = StatusSucceeded
	}
	return res
}

func (o *Orchestrator) download(ctx context.Context, key string) ([]byte, error) {
	rc, err := o.origin.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("storage open %s: %w", key, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, maxImageBytes+1)); err != nil {
		return nil, fmt.Errorf("storage read %s: %w", key, err)
	}
	if buf.Len() > maxImageBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrUnsupportedMedia, maxImageBytes)
	}
	return buf.Bytes(), nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isPDF(doc Document) bool {
	mt := strings.ToLower(doc.MimeType)
	return mt == "application/pdf" || strings.EqualFold(path.Ext(doc.FileName), ".pdf") ||
		(mt == "" && strings.EqualFold(path.Ext(doc.StorageKey), ".pdf"))
}

func isImage(doc Document) bool {
	if strings.HasPrefix(strings.ToLower(doc.MimeType), "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(doc.FileName)) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff":
		return true
	}
	return false
}
