// Package query caches backend search results for list pages and relation
// options. Concurrent loads of the same key share one backend call, and a
// mutation drops every cached entry of the affected kind.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"churchadmin/internal/cache"
	"churchadmin/internal/core"
	"churchadmin/internal/metrics"
)

// Key identifies a cached search. Params is the canonical encoding of the
// search so equal queries share an entry.
type Key struct {
	Kind   core.Kind
	Params string
}

// KeyFor builds the key of a backend search.
func KeyFor(kind core.Kind, q core.SearchQuery) Key {
	v := url.Values{}
	if q.Term != "" {
		v.Set("term", q.Term)
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	for k, val := range q.Filters {
		v.Set("f."+k, val)
	}
	return Key{Kind: kind, Params: v.Encode()}
}

func (k Key) String() string {
	return string(k.Kind) + "?" + k.Params
}

func (k Key) prefix() string { return string(k.Kind) + "?" }

// Loader fetches the value of a key from the backend.
type Loader func(ctx context.Context) ([]core.Record, error)

// Searcher is the backend read used by Search.
type Searcher interface {
	Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error)
}

type Cache struct {
	entries *cache.LRUCache[[]core.Record]
	group   singleflight.Group
	logger  *slog.Logger

	mu            sync.Mutex
	generation    map[core.Kind]uint64
	invalidations map[core.Kind]int
}

func New(size int, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:       cache.NewLRUCache[[]core.Record](size, ttl),
		logger:        logger,
		generation:    make(map[core.Kind]uint64),
		invalidations: make(map[core.Kind]int),
	}
}

func (c *Cache) gen(kind core.Kind) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation[kind]
}

// Fetch returns the cached value of key or runs loader once for every
// concurrent caller. A result loaded across an Invalidate of its kind is
// returned to the callers but not cached.
func (c *Cache) Fetch(ctx context.Context, key Key, loader Loader) ([]core.Record, error) {
	if rs, ok := c.entries.Get(key.String()); ok {
		metrics.RecordQueryLookup(string(key.Kind), "hit")
		return rs, nil
	}

	gen := c.gen(key.Kind)
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	v, err, shared := c.group.Do(flightKey, func() (any, error) {
		rs, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if c.gen(key.Kind) == gen {
			c.entries.Set(key.String(), rs)
		}
		return rs, nil
	})
	if shared {
		metrics.RecordQueryLookup(string(key.Kind), "shared")
	} else {
		metrics.RecordQueryLookup(string(key.Kind), "miss")
	}
	if err != nil {
		return nil, err
	}
	return v.([]core.Record), nil
}

// FetchDependent is Fetch gated on a parent selection. Without a parent it
// returns no records and never calls loader.
func (c *Cache) FetchDependent(ctx context.Context, key Key, parentID string, loader Loader) ([]core.Record, error) {
	if parentID == "" {
		return nil, nil
	}
	return c.Fetch(ctx, key, loader)
}

// Search is Fetch over a backend search.
func (c *Cache) Search(ctx context.Context, s Searcher, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	return c.Fetch(ctx, KeyFor(kind, q), func(ctx context.Context) ([]core.Record, error) {
		return s.Search(ctx, kind, q)
	})
}

// Invalidate drops every entry of kind.
func (c *Cache) Invalidate(kind core.Kind) {
	c.mu.Lock()
	c.generation[kind]++
	c.invalidations[kind]++
	c.mu.Unlock()

	n := c.entries.DeletePrefix(Key{Kind: kind}.prefix())
	metrics.RecordInvalidation(string(kind))
	c.logger.Debug("Query cache invalidated", "kind", kind, "entries", n)
}

// Invalidations reports how many times kind was invalidated.
func (c *Cache) Invalidations(kind core.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations[kind]
}

func (c *Cache) Len() int { return c.entries.Size() }

// CleanExpired implements cache.Cleaner.
func (c *Cache) CleanExpired() int { return c.entries.CleanExpired() }
