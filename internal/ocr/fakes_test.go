package ocr

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"tenant-validation/internal/relay"
	"tenant-validation/internal/shared/storage/object"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	c.now = c.now.Add(d)
	return nil
}

type fakeOpener map[string]string

func (f fakeOpener) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

type fakeRelay struct {
	err    error
	copied map[string]bool
	mu     sync.Mutex
}

func (f *fakeRelay) EnsureAvailable(_ context.Context, key string) (relay.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := object.Location{Bucket: "ocr-us", Key: relay.Key(key)}
	if f.err != nil {
		return relay.Result{Location: loc}, f.err
	}
	if f.copied == nil {
		f.copied = map[string]bool{}
	}
	first := !f.copied[key]
	f.copied[key] = true
	return relay.Result{Location: loc, Copied: first}, nil
}

// fakeClient answers by document content: the bytes (images) or the relayed
// key (PDFs) select a scripted response.
type fakeClient struct {
	detect    map[string]TextPage
	detectErr map[string]error
	forms     map[string]map[string]string

	// keyed by relayed object key
	textJobs map[string][]JobPage
	formJobs map[string][]JobPage
	startErr map[string]error

	mu      sync.Mutex
	jobs    map[string][]JobPage
	polls   map[string]int
	started []string
	seq     int
}

func (f *fakeClient) DetectText(_ context.Context, data []byte) (TextPage, error) {
	if err := f.detectErr[string(data)]; err != nil {
		return TextPage{}, err
	}
	return f.detect[string(data)], nil
}

func (f *fakeClient) AnalyzeForms(_ context.Context, data []byte) (map[string]string, error) {
	return f.forms[string(data)], nil
}

func (f *fakeClient) start(kind string, loc object.Location, script map[string][]JobPage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.startErr[kind+":"+loc.Key]; err != nil {
		return "", err
	}
	pages, ok := script[loc.Key]
	if !ok {
		return "", errors.New("no script for " + loc.Key)
	}
	f.seq++
	id := kind + "-" + loc.Key
	if f.jobs == nil {
		f.jobs = map[string][]JobPage{}
		f.polls = map[string]int{}
	}
	f.jobs[id] = pages
	f.started = append(f.started, id)
	return id, nil
}

// get returns scripted pages in order; the last page repeats once exhausted.
func (f *fakeClient) get(jobID string) (JobPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := f.jobs[jobID]
	i := f.polls[jobID]
	f.polls[jobID] = i + 1
	if i >= len(pages) {
		i = len(pages) - 1
	}
	return pages[i], nil
}

func (f *fakeClient) StartTextJob(_ context.Context, loc object.Location) (string, error) {
	return f.start("text", loc, f.textJobs)
}

func (f *fakeClient) GetTextJob(_ context.Context, jobID, _ string) (JobPage, error) {
	return f.get(jobID)
}

func (f *fakeClient) StartFormJob(_ context.Context, loc object.Location) (string, error) {
	return f.start("form", loc, f.formJobs)
}

func (f *fakeClient) GetFormJob(_ context.Context, jobID, _ string) (JobPage, error) {
	return f.get(jobID)
}
