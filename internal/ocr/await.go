package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type pollState int

const (
	statePolling pollState = iota
	stateCollecting
	stateDone
)

type jobResult struct {
	Status    Status
	Lines     []string
	Words     []string
	KeyValues map[string]string
	Pages     int
	Err       error

	blocks []FormBlock
}

func (r *jobResult) collect(page JobPage) {
	r.Pages++
	r.Lines = append(r.Lines, page.Lines...)
	r.Words = append(r.Words, page.Words...)
	r.blocks = append(r.blocks, page.FormBlocks...)
	for k, v := range page.KeyValues {
		if r.KeyValues == nil {
			r.KeyValues = make(map[string]string)
		}
		if _, seen := r.KeyValues[k]; !seen {
			r.KeyValues[k] = v
		}
	}
}

// resolveForms merges key/values from the collected blocks once every page is
// in, since a key and its value can sit on different pages.
func (r *jobResult) resolveForms() {
	if len(r.blocks) == 0 {
		return
	}
	for k, v := range ResolveForms(r.blocks) {
		if r.KeyValues == nil {
			r.KeyValues = make(map[string]string)
		}
		if _, seen := r.KeyValues[k]; !seen {
			r.KeyValues[k] = v
		}
	}
	r.blocks = nil
}

type fetchFunc func(ctx context.Context, jobID, nextToken string) (JobPage, error)

// awaitJob polls jobID every interval until it succeeds, fails or the
// deadline passes, then pages through every result page. The deadline also
// bounds paging.
func awaitJob(ctx context.Context, jobID string, deadline time.Time, interval time.Duration, clock Clock, fetch fetchFunc) jobResult {
	var res jobResult
	state := statePolling
	token := ""

	for state != stateDone {
		if !clock.Now().Before(deadline) {
			return jobResult{Status: StatusTimeout, Err: fmt.Errorf("%w: job %s", ErrJobTimeout, jobID)}
		}
		page, err := fetch(ctx, jobID, token)
		if err != nil {
			return jobResult{Status: StatusFailed, Err: fmt.Errorf("poll job %s: %w", jobID, err)}
		}

		switch state {
		case statePolling:
			switch page.State {
			case JobInProgress, "":
				wait := interval
				if remaining := deadline.Sub(clock.Now()); remaining < wait {
					wait = remaining
				}
				if wait <= 0 {
					continue
				}
				if err := clock.Sleep(ctx, wait); err != nil {
					if errors.Is(err, context.DeadlineExceeded) {
						return jobResult{Status: StatusTimeout, Err: fmt.Errorf("%w: job %s: %v", ErrJobTimeout, jobID, err)}
					}
					return jobResult{Status: StatusFailed, Err: fmt.Errorf("wait job %s: %w", jobID, err)}
				}
			case JobFailed:
				return jobResult{Status: StatusFailed, Err: fmt.Errorf("%w: job %s: %s", ErrJobFailed, jobID, page.Message)}
			case JobSucceeded, JobPartialSuccess:
				res.collect(page)
				token = page.NextToken
				state = stateCollecting
				if token == "" {
					state = stateDone
				}
			default:
				return jobResult{Status: StatusFailed, Err: fmt.Errorf("%w: job %s: unknown state %q", ErrJobFailed, jobID, page.State)}
			}
		case stateCollecting:
			res.collect(page)
			token = page.NextToken
			if token == "" {
				state = stateDone
			}
		}
	}

	res.resolveForms()
	res.Status = StatusSucceeded
	return res
}
