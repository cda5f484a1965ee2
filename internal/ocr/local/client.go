// Package local is a development OCR backend. PDFs with a text layer are read
// with ledongthuc/pdf, DOCX uploads through their document body, and
// plain-text payloads are split into lines. Images
// without a text layer yield empty results.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"tenant-validation/internal/ocr"
	"tenant-validation/internal/shared/storage/object"
)

const (
	linesPerPage = 50
	jobTTL       = 30 * time.Minute
)

// Opener reads relayed objects.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type job struct {
	state     ocr.JobState
	message   string
	lines     []string
	words     []string
	kv        map[string]string
	createdAt time.Time
}

// Client implements ocr.Client with in-process jobs.
type Client struct {
	source Opener

	mu   sync.RWMutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

func New(source Opener) *Client {
	return &Client{source: source, jobs: make(map[string]*job)}
}

func (c *Client) DetectText(ctx context.Context, data []byte) (ocr.TextPage, error) {
	if err := ctx.Err(); err != nil {
		return ocr.TextPage{}, err
	}
	lines, err := textLines(data)
	if err != nil {
		return ocr.TextPage{}, err
	}
	return ocr.TextPage{Lines: lines, Words: words(lines)}, nil
}

func (c *Client) AnalyzeForms(ctx context.Context, data []byte) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, err := textLines(data)
	if err != nil {
		return nil, err
	}
	return pairs(lines), nil
}

func (c *Client) StartTextJob(ctx context.Context, loc object.Location) (string, error) {
	return c.start(ctx, loc, false)
}

func (c *Client) StartFormJob(ctx context.Context, loc object.Location) (string, error) {
	return c.start(ctx, loc, true)
}

func (c *Client) GetTextJob(_ context.Context, jobID, nextToken string) (ocr.JobPage, error) {
	return c.page(jobID, nextToken, false)
}

func (c *Client) GetFormJob(_ context.Context, jobID, nextToken string) (ocr.JobPage, error) {
	return c.page(jobID, nextToken, true)
}

// Wait blocks until every started job has finished. Tests use it.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) start(ctx context.Context, loc object.Location, forms bool) (string, error) {
	rc, err := c.source.Open(ctx, loc.Key)
	if err != nil {
		return "", fmt.Errorf("local ocr open %s: %w", loc.Key, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("local ocr read %s: %w", loc.Key, err)
	}

	id := uuid.NewString()
	j := &job{state: ocr.JobInProgress, createdAt: time.Now()}
	c.mu.Lock()
	c.prune()
	c.jobs[id] = j
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		lines, err := textLines(data)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			j.state = ocr.JobFailed
			j.message = err.Error()
			return
		}
		if forms {
			j.kv = pairs(lines)
		} else {
			j.lines = lines
			j.words = words(lines)
		}
		j.state = ocr.JobSucceeded
	}()
	return id, nil
}

// page serves results linesPerPage at a time; NextToken is the next offset.
func (c *Client) page(jobID, nextToken string, forms bool) (ocr.JobPage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	j, ok := c.jobs[jobID]
	if !ok {
		return ocr.JobPage{}, fmt.Errorf("local ocr: unknown job %s", jobID)
	}
	if j.state != ocr.JobSucceeded {
		return ocr.JobPage{State: j.state, Message: j.message}, nil
	}
	if forms {
		return ocr.JobPage{State: j.state, KeyValues: j.kv}, nil
	}

	offset := 0
	if nextToken != "" {
		n, err := strconv.Atoi(nextToken)
		if err != nil || n < 0 {
			return ocr.JobPage{}, fmt.Errorf("local ocr: bad token %q", nextToken)
		}
		offset = n
	}
	end := offset + linesPerPage
	if end > len(j.lines) {
		end = len(j.lines)
	}
	out := ocr.JobPage{State: j.state}
	if offset < end {
		out.Lines = j.lines[offset:end]
	}
	if offset == 0 {
		out.Words = j.words
	}
	if end < len(j.lines) {
		out.NextToken = strconv.Itoa(end)
	}
	return out, nil
}

func (c *Client) prune() {
	cutoff := time.Now().Add(-jobTTL)
	for id, j := range c.jobs {
		if j.createdAt.Before(cutoff) && j.state != ocr.JobInProgress {
			delete(c.jobs, id)
		}
	}
}

func textLines(data []byte) ([]string, error) {
	var raw string
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		text, err := pdfText(data)
		if err != nil {
			return nil, err
		}
		raw = text
	case bytes.HasPrefix(data, zipMagic):
		text, err := docxText(data)
		if err != nil {
			return nil, err
		}
		raw = text
	case utf8.Valid(data) && printable(data):
		raw = string(data)
	default:
		return nil, nil
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if t := strings.Join(strings.Fields(line), " "); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func printable(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, r := range string(data) {
		if r == utf8.RuneError || (r < 0x20 && r != '\n' && r != '\r' && r != '\t') {
			return false
		}
	}
	return true
}

func words(lines []string) []string {
	var out []string
	for _, l := range lines {
		out = append(out, strings.Fields(l)...)
	}
	return out
}

// pairs reads "KEY: VALUE" lines.
func pairs(lines []string) map[string]string {
	out := make(map[string]string)
	for _, l := range lines {
		k, v, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if _, seen := out[k]; !seen {
			out[k] = v
		}
	}
	return out
}

var _ ocr.Client = (*Client)(nil)
