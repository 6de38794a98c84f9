// Package tagcache memoises tag name to id lookups in front of the document store.
// Tags are never deleted or renamed, so a cached id stays valid for its TTL.
package tagcache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/postboard/postboard/backend/go-services/internal/post/repository"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
	"github.com/postboard/postboard/backend/go-services/pkg/metrics"
)

const keyPrefix = "tag:"

// Cache maps tag names to ids.
type Cache struct {
	raw   *ristretto.Cache
	cache *cache.Cache[string]
	ttl   time.Duration
}

// New builds a ristretto-backed cache holding roughly maxEntries names.
func New(maxEntries int64, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	raw, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tag cache: %w", err)
	}
	return &Cache{
		raw:   raw,
		cache: cache.New[string](ristretto_store.NewRistretto(raw)),
		ttl:   ttl,
	}, nil
}

// Lookup returns the cached id for name.
func (c *Cache) Lookup(ctx context.Context, name string) (string, bool) {
	id, err := c.cache.Get(ctx, keyPrefix+name)
	if err != nil || id == "" {
		metrics.TagCacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	metrics.TagCacheLookups.WithLabelValues("hit").Inc()
	return id, true
}

// Remember stores id for name. Ristretto admits writes asynchronously.
func (c *Cache) Remember(ctx context.Context, name, id string) {
	err := c.cache.Set(ctx, keyPrefix+name, id, store.WithCost(1), store.WithExpiration(c.ttl))
	if err != nil {
		logger.Debugf("tag cache: set %q: %v", name, err)
	}
}

// Wait blocks until buffered writes are visible.
func (c *Cache) Wait() { c.raw.Wait() }

// Close releases the ristretto goroutines.
func (c *Cache) Close() { c.raw.Close() }

// Store decorates a repository.Store so FirstOrCreateTag consults the cache first.
// A hit returns a Tag carrying only ID and Name.
type Store struct {
	repository.Store
	cache *Cache
}

// Wrap returns s with tag lookups cached in c.
func Wrap(s repository.Store, c *Cache) *Store {
	return &Store{Store: s, cache: c}
}

func (s *Store) FirstOrCreateTag(ctx context.Context, name string) (*post.Tag, error) {
	if id, ok := s.cache.Lookup(ctx, name); ok {
		return &post.Tag{ID: id, Name: name}, nil
	}
	t, err := s.Store.FirstOrCreateTag(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Remember(ctx, name, t.ID)
	return t, nil
}
