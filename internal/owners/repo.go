package owners

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("owner not found")
	ErrInvalidInput = errors.New("invalid owner")
)

// Directory is the read side of the owner records kept by the CRUD system.
// Upsert exists for seeding and local setups.
type Directory interface {
	Get(ctx context.Context, ownerID string) (Owner, error)
	Upsert(ctx context.Context, owner Owner) error
}
