// Package cache provides the query cache shared by the data services.
//
// Entries are keyed by a query tuple (endpoint plus parameters). A fresh entry
// is served as is; a stale entry is served immediately while one background
// fetch revalidates it. Concurrent misses for the same key share one upstream
// call. Errors are never stored.
package cache

import (
	"container/list"
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"nasa-explorer/internal/logging"
	"nasa-explorer/internal/metrics"

	"golang.org/x/sync/singleflight"
)

const revalidateTimeout = 30 * time.Second

// Policy controls freshness and retention
type Policy struct {
	// StaleTime is how long a stored value is served without revalidation.
	StaleTime time.Duration
	// GCTime removes entries that have not been read for this long.
	GCTime time.Duration
	// MaxEntries bounds the cache; the least recently used entry is evicted first.
	MaxEntries int
}

// DefaultPolicy is the policy used when none is configured
var DefaultPolicy = Policy{
	StaleTime:  60 * time.Second,
	GCTime:     5 * time.Minute,
	MaxEntries: 512,
}

// Stats is a point-in-time view of cache counters
type Stats struct {
	Hits      uint64 `json:"hits"`
	StaleHits uint64 `json:"stale_hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

type entry struct {
	key       string
	value     any
	fetchedAt time.Time
	readAt    time.Time
	seq       uint64
}

// QueryCache is a keyed stale-while-revalidate cache
type QueryCache struct {
	policy Policy
	now    func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	seq     uint64
	// floor holds the sequence at invalidation; older fetches are discarded.
	floor map[string]uint64
	stats Stats
}

// Option configures a QueryCache
type Option func(*QueryCache)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) {
		c.now = now
	}
}

// New creates a query cache; zero policy fields fall back to DefaultPolicy
func New(policy Policy, opts ...Option) *QueryCache {
	if policy.StaleTime < 0 {
		policy.StaleTime = 0
	}
	if policy.GCTime <= 0 {
		policy.GCTime = DefaultPolicy.GCTime
	}
	if policy.MaxEntries <= 0 {
		policy.MaxEntries = DefaultPolicy.MaxEntries
	}

	c := &QueryCache{
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		floor:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key encodes an endpoint and its parameters into a cache key
func Key(endpoint string, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, url.QueryEscape(endpoint))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p))
	}
	return strings.Join(parts, "|")
}

// Fetch returns the value for key, calling fn on a miss or to revalidate a stale entry
func Fetch[T any](ctx context.Context, c *QueryCache, key string, fn func(context.Context) (T, error)) (T, error) {
	load := func(ctx context.Context) (any, error) {
		return fn(ctx)
	}

	if v, state := c.lookup(key); state != lookupMiss {
		if typed, ok := v.(T); ok {
			if state == lookupStale {
				c.revalidate(ctx, key, load)
			}
			return typed, nil
		}
	}

	v, err := c.load(ctx, key, load)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

type lookupState int

const (
	lookupMiss lookupState = iota
	lookupFresh
	lookupStale
)

func (c *QueryCache) lookup(key string) (any, lookupState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	el, ok := c.entries[key]
	if ok && now.Sub(el.Value.(*entry).readAt) > c.policy.GCTime {
		c.removeLocked(el)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, lookupMiss
	}

	e := el.Value.(*entry)
	e.readAt = now
	c.lru.MoveToFront(el)

	if now.Sub(e.fetchedAt) < c.policy.StaleTime {
		c.stats.Hits++
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return e.value, lookupFresh
	}
	c.stats.StaleHits++
	metrics.CacheLookupsTotal.WithLabelValues("stale").Inc()
	return e.value, lookupStale
}

// load runs one shared fetch per key. The fetch is detached from the caller
// that started it; each caller stops waiting when its own ctx is done.
func (c *QueryCache) load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), revalidateTimeout)
		defer cancel()

		seq := c.nextSeq()
		v, err := fn(shared)
		if err != nil {
			return nil, err
		}
		c.store(key, v, seq)
		return v, nil
	})

	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *QueryCache) revalidate(ctx context.Context, key string, fn func(context.Context) (any, error)) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), revalidateTimeout)
	go func() {
		defer cancel()
		if _, err := c.load(bg, key, fn); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Background revalidation failed")
		}
	}()
}

func (c *QueryCache) nextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// store keeps v unless a fetch that started later already stored its result.
func (c *QueryCache) store(key string, v any, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.floor[key] {
		return false
	}
	delete(c.floor, key)

	now := c.now()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		if seq < e.seq {
			return false
		}
		e.value, e.fetchedAt, e.readAt, e.seq = v, now, now, seq
		c.lru.MoveToFront(el)
		return true
	}

	c.entries[key] = c.lru.PushFront(&entry{key: key, value: v, fetchedAt: now, readAt: now, seq: seq})
	for c.lru.Len() > c.policy.MaxEntries {
		c.removeLocked(c.lru.Back())
	}
	return true
}

func (c *QueryCache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.lru.Remove(el)
	delete(c.entries, e.key)
	c.stats.Evictions++
	metrics.CacheEvictionsTotal.Inc()
}

// Invalidate drops key so the next Fetch goes upstream; fetches already in flight are discarded
func (c *QueryCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.floor[key] = c.seq
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.lru.Remove(el)
	delete(c.entries, key)
	return true
}

// InvalidatePrefix drops every key starting with prefix and returns how many were removed
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	keys := make([]string, 0)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	n := 0
	for _, k := range keys {
		if c.Invalidate(k) {
			n++
		}
	}
	return n
}

// Sweep removes entries that have not been read within GCTime
func (c *QueryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.Sub(el.Value.(*entry).readAt) > c.policy.GCTime {
			c.removeLocked(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Stats returns the current counters
func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

// Serve runs the periodic sweep until ctx is done
func (c *QueryCache) Serve(ctx context.Context) error {
	interval := c.policy.GCTime / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logging.With("cache")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("Swept idle cache entries")
			}
		}
	}
}

func (c *QueryCache) String() string {
	return "query-cache"
}
