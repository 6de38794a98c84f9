package flash

import (
	"context"
	"sync"
	"time"
)

// Repository stores flashes by an opaque token. Pull removes what it returns.
type Repository interface {
	Put(ctx context.Context, token string, f *Flash) error
	Pull(ctx context.Context, token string) (*Flash, error)
}

// MemoryRepository keeps flashes in process; used when Redis is not configured.
type MemoryRepository struct {
	mu    sync.Mutex
	store map[string]*Flash
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]*Flash{}}
}

func (r *MemoryRepository) Put(ctx context.Context, token string, f *Flash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for k, v := range r.store {
		if now.After(v.ExpiresAt) {
			delete(r.store, k)
		}
	}
	r.store[token] = f
	return nil
}

func (r *MemoryRepository) Pull(ctx context.Context, token string) (*Flash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.store[token]
	if !ok {
		return nil, nil
	}
	delete(r.store, token)
	if time.Now().UTC().After(f.ExpiresAt) {
		return nil, nil
	}
	return f, nil
}
