package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
)

type CacheEntry struct {
	Hostname   string
	IP         string
	ResolvedAt time.Time
}

// ResolveCache maps hostnames to their last successful resolution.
// It is bounded by size (least recently used entries go first) and swept
// by age through CleanExpired. Failed lookups are never stored.
type ResolveCache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, CacheEntry]
	now func() time.Time
}

func NewResolveCache(maxSize int) (*ResolveCache, error) {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	l, err := simplelru.NewLRU[string, CacheEntry](maxSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU: %w", err)
	}

	return &ResolveCache{
		lru: l,
		now: time.Now,
	}, nil
}

// Get returns the entry for hostname and marks it most recently used.
func (c *ResolveCache) Get(hostname string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(hostname)
}

func (c *ResolveCache) Set(hostname string, entry CacheEntry) {
	entry.Hostname = hostname
	if entry.ResolvedAt.IsZero() {
		entry.ResolvedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(hostname, entry)
}

// CleanExpired drops every entry resolved more than ttl ago, however
// recently it was read, and returns how many were removed.
func (c *ResolveCache) CleanExpired(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-ttl)
	removed := 0
	for _, hostname := range c.lru.Keys() {
		entry, ok := c.lru.Peek(hostname)
		if ok && entry.ResolvedAt.Before(cutoff) {
			c.lru.Remove(hostname)
			removed++
		}
	}
	return removed
}

func (c *ResolveCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
