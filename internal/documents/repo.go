package documents

import (
	"context"
	"time"
)

// Repo persists document rows.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	// ListCurrent returns non-superseded documents ordered by creation time.
	ListCurrent(ctx context.Context, ownerID string) ([]Document, error)
	Supersede(ctx context.Context, ownerID, documentID string, at time.Time) error
}
