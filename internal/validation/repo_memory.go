package validation

import (
	"context"
	"sort"
	"sync"
)

type recordKey struct {
	owner    string
	category Category
}

type MemoryRepo struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[recordKey]Record)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Payload = append([]byte(nil), rec.Payload...)
	r.records[recordKey{rec.OwnerID, rec.Category}] = rec
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID string, category Category) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[recordKey{ownerID, category}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for k, rec := range r.records {
		if k.owner == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r *MemoryRepo) ListOwnerIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for k := range r.records {
		if !seen[k.owner] {
			seen[k.owner] = true
			out = append(out, k.owner)
		}
	}
	sort.Strings(out)
	return out, nil
}
