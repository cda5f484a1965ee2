package validation

import "context"

// Repo stores one record per (owner, category). Upsert is last-writer-wins.
type Repo interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, ownerID string, category Category) (Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
	ListOwnerIDs(ctx context.Context) ([]string, error)
}
