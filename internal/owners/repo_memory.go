package owners

import (
	"context"
	"sync"
	"time"
)

type MemoryDirectory struct {
	mu     sync.RWMutex
	owners map[string]Owner
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{owners: make(map[string]Owner)}
}

func (d *MemoryDirectory) Upsert(ctx context.Context, owner Owner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if owner.ID == "" {
		return ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.owners[owner.ID]; ok {
		owner.CreatedAt = existing.CreatedAt
	} else {
		owner.CreatedAt = time.Now().UTC()
	}
	d.owners[owner.ID] = owner
	return nil
}

func (d *MemoryDirectory) Get(ctx context.Context, ownerID string) (Owner, error) {
	if err := ctx.Err(); err != nil {
		return Owner{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	owner, ok := d.owners[ownerID]
	if !ok {
		return Owner{}, ErrNotFound
	}
	return owner, nil
}
