package validation

import (
	"context"
	"fmt"
	"strings"

	"tenant-validation/internal/shared/auth"
	"tenant-validation/internal/shared/metrics"
	"tenant-validation/internal/shared/telemetry"
)

// ResummarizeOptions scopes a resummarize pass. Empty OwnerID means every
// owner with stored records; empty Only means every category.
type ResummarizeOptions struct {
	OwnerID string
	Only    []Category
	DryRun  bool
}

// Change is one record whose verdict or summary a reducer now disagrees with.
type Change struct {
	OwnerID         string `json:"ownerId"`
	Category        string `json:"category"`
	PreviousEstado  string `json:"estadoAnterior"`
	Estado          string `json:"estado"`
	PreviousResumen string `json:"resumenAnterior"`
	Resumen         string `json:"resumen"`
}

// RecordError is a record whose payload could not be reduced.
type RecordError struct {
	OwnerID  string `json:"ownerId"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

type ResummarizeReport struct {
	Owners   int           `json:"owners"`
	Examined int           `json:"examined"`
	Changed  int           `json:"changed"`
	DryRun   bool          `json:"dryRun"`
	Changes  []Change      `json:"changes"`
	Errors   []RecordError `json:"errors"`
}

// Resummarize re-runs the reducers over stored payloads and rewrites records
// whose verdict or summary changed. No external service is called. Running it
// twice in a row changes nothing the second time. Concurrent passes are not
// serialized; the last write wins.
func (s *Service) Resummarize(ctx context.Context, actor auth.Actor, opts ResummarizeOptions) (ResummarizeReport, error) {
	report := ResummarizeReport{DryRun: opts.DryRun, Changes: []Change{}, Errors: []RecordError{}}
	if actor.ID == "" {
		actor = auth.System
	}

	var ownerIDs []string
	if id := strings.TrimSpace(opts.OwnerID); id != "" {
		ownerIDs = []string{id}
	} else {
		ids, err := s.Repo.ListOwnerIDs(ctx)
		if err != nil {
			return report, fmt.Errorf("list owners: %w", err)
		}
		ownerIDs = ids
	}

	only := make(map[Category]bool, len(opts.Only))
	for _, c := range opts.Only {
		only[c] = true
	}

	for _, ownerID := range ownerIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		records, err := s.Repo.ListByOwner(ctx, ownerID)
		if err != nil {
			return report, fmt.Errorf("list records for %s: %w", ownerID, err)
		}
		report.Owners++
		for _, rec := range records {
			if len(only) > 0 && !only[rec.Category] {
				continue
			}
			report.Examined++
			verdict, summary, err := Reduce(rec.Category, rec.Payload)
			if err != nil {
				report.Errors = append(report.Errors, RecordError{OwnerID: ownerID, Category: string(rec.Category), Error: err.Error()})
				continue
			}
			if verdict == rec.Verdict && summary == rec.Summary {
				continue
			}
			report.Changed++
			report.Changes = append(report.Changes, Change{
				OwnerID:         ownerID,
				Category:        string(rec.Category),
				PreviousEstado:  rec.Verdict.String(),
				Estado:          verdict.String(),
				PreviousResumen: rec.Summary,
				Resumen:         summary,
			})
			if opts.DryRun {
				continue
			}
			rec.Verdict, rec.Summary = verdict, summary
			rec.UpdatedAt = s.now()
			rec.UpdatedBy = actor.ID
			if err := s.Repo.Upsert(ctx, rec); err != nil {
				return report, fmt.Errorf("store %s record for %s: %w", rec.Category, ownerID, err)
			}
		}
	}

	if !opts.DryRun {
		metrics.AddResummarized(report.Changed)
	}
	telemetry.Info("validation.resummarize", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"owner_id":   opts.OwnerID,
		"owners":     report.Owners,
		"examined":   report.Examined,
		"changed":    report.Changed,
		"errors":     len(report.Errors),
		"dry_run":    opts.DryRun,
		"actor_id":   actor.ID,
	})
	return report, nil
}
