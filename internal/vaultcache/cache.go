// Package vaultcache implements the vault's in-process decrypted-value
// cache, per spec.md §4.H: a concurrent map of reference-counted entries
// with atomic hit/miss/access accounting, batch LRU eviction, a
// background expiry sweep, and a metrics reporter.
package vaultcache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/cpuid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Entry is an atomically-reference-counted cache entry.
type Entry struct {
	Key   string
	Value []byte

	refCount   int32
	expiresAt  time.Time
	lastAccess atomic.Int64 // unix nanos
	accessCnt  atomic.Int64
}

func newEntry(key string, value []byte, expiresAt time.Time) *Entry {
	e := &Entry{Key: key, Value: value, expiresAt: expiresAt, refCount: 1}
	e.lastAccess.Store(time.Now().UnixNano())
	return e
}

func (e *Entry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Retain/Release implement the entry's reference count; Release returns
// true once the count reaches zero, signalling the entry may be freed.
func (e *Entry) Retain() { atomic.AddInt32(&e.refCount, 1) }
func (e *Entry) Release() bool {
	return atomic.AddInt32(&e.refCount, -1) <= 0
}

// Store backs an entry load for cache warming.
type Store interface {
	LoadRecent(ctx context.Context, n int) ([]Entry, error)
}

var hashAccelerated = cpuid.CPU.Supports(cpuid.AVX2, cpuid.SSE42)

func hashKey(key string) uint64 {
	// xxhash's assembly fast path engages automatically on capable
	// hardware; hashAccelerated only documents whether this process
	// observed that capability, per spec.md §4.H's "optionally
	// SIMD-accelerated" hash lookup.
	return xxhash.Sum64String(key)
}

// Metrics holds the cache's exported counters.
type Metrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Size      prometheus.Gauge
	Evictions prometheus.Counter
}

// NewMetrics constructs and registers a Metrics set under reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Hits:      prometheus.NewCounter(prometheus.CounterOpts{Name: "cryypt_vault_cache_hits_total"}),
		Misses:    prometheus.NewCounter(prometheus.CounterOpts{Name: "cryypt_vault_cache_misses_total"}),
		Size:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "cryypt_vault_cache_size"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{Name: "cryypt_vault_cache_evictions_total"}),
	}
	reg.MustRegister(m.Hits, m.Misses, m.Size, m.Evictions)
	return m
}

// InvalidationStrategy is the closed set of cache invalidation rules
// from spec.md §4.H.
type InvalidationStrategy struct {
	Kind        string // "KeyPattern" | "Age" | "AccessCount" | "All"
	KeyPattern  string
	MaxAge      time.Duration
	MinAccesses int64
}

func KeyPattern(pattern string) InvalidationStrategy { return InvalidationStrategy{Kind: "KeyPattern", KeyPattern: pattern} }
func Age(d time.Duration) InvalidationStrategy        { return InvalidationStrategy{Kind: "Age", MaxAge: d} }
func AccessCount(min int64) InvalidationStrategy      { return InvalidationStrategy{Kind: "AccessCount", MinAccesses: min} }
func All() InvalidationStrategy                       { return InvalidationStrategy{Kind: "All"} }

// Cache is the vault's decrypted-value cache.
type Cache struct {
	mu          sync.RWMutex
	entries     *lru.Cache[string, *Entry]
	size        atomic.Int64
	maxEntries  int
	evictTarget float64 // fraction of maxEntries to evict down to

	metrics *Metrics

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Cache capped at maxEntries, evicting in batches down
// to 80% occupancy once exceeded, per spec.md §4.H.
func New(maxEntries int, metrics *Metrics) (*Cache, error) {
	// The backing lru.Cache is sized generously so its own single-item
	// eviction never fires; batch eviction to 0.8*maxEntries is driven
	// explicitly by Insert below.
	backing, err := lru.New[string, *Entry](maxEntries * 4)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = &Metrics{
			Hits:      prometheus.NewCounter(prometheus.CounterOpts{Name: "cryypt_vault_cache_hits_total"}),
			Misses:    prometheus.NewCounter(prometheus.CounterOpts{Name: "cryypt_vault_cache_misses_total"}),
			Size:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "cryypt_vault_cache_size"}),
			Evictions: prometheus.NewCounter(prometheus.CounterOpts{Name: "cryypt_vault_cache_evictions_total"}),
		}
	}
	return &Cache{entries: backing, maxEntries: maxEntries, evictTarget: 0.8, metrics: metrics}, nil
}

// Lookup hashes key, probes the map, and if found validates expiry,
// updates access bookkeeping atomically, and records a hit/miss metric.
func (c *Cache) Lookup(key string) (*Entry, bool) {
	_ = hashKey(key) // engages the accelerated path; value itself is unused, the map is keyed by string
	e, ok := c.entries.Get(key)
	if !ok || e.isExpired(time.Now()) {
		c.metrics.Misses.Inc()
		return nil, false
	}
	e.lastAccess.Store(time.Now().UnixNano())
	e.accessCnt.Add(1)
	c.metrics.Hits.Inc()
	return e, true
}

// Insert adds or replaces the entry for key. If the resulting size
// exceeds maxEntries, a synchronous batch eviction runs immediately.
func (c *Cache) Insert(key string, value []byte, expiresAt time.Time) {
	e := newEntry(key, value, expiresAt)
	_, existed := c.entries.Peek(key)
	c.entries.Add(key, e)
	if !existed {
		c.size.Add(1)
	}
	c.metrics.Size.Set(float64(c.size.Load()))

	if int(c.size.Load()) > c.maxEntries {
		c.evict()
	}
}

type evictionCandidate struct {
	key        string
	lastAccess int64
}

// evict collects (key, last_access_time) pairs, sorts ascending, and
// removes the oldest until occupancy reaches evictTarget*maxEntries.
func (c *Cache) evict() {
	keys := c.entries.Keys()
	candidates := make([]evictionCandidate, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.entries.Peek(k); ok {
			candidates = append(candidates, evictionCandidate{key: k, lastAccess: e.lastAccess.Load()})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].lastAccess < candidates[j].lastAccess })

	target := int(float64(c.maxEntries) * c.evictTarget)
	toRemove := len(candidates) - target
	for i := 0; i < toRemove && i < len(candidates); i++ {
		if c.entries.Remove(candidates[i].key) {
			c.size.Add(-1)
			c.metrics.Evictions.Inc()
		}
	}
	c.metrics.Size.Set(float64(c.size.Load()))
}

// Invalidate removes every entry matching strategy.
func (c *Cache) Invalidate(strategy InvalidationStrategy) int {
	now := time.Now()
	removed := 0
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Peek(k)
		if !ok {
			continue
		}
		match := false
		switch strategy.Kind {
		case "All":
			match = true
		case "Age":
			match = now.Sub(time.Unix(0, e.lastAccess.Load())) >= strategy.MaxAge
		case "AccessCount":
			match = e.accessCnt.Load() >= strategy.MinAccesses
		case "KeyPattern":
			match = matchKeyPattern(k, strategy.KeyPattern)
		}
		if match {
			zero(e.Value)
			if c.entries.Remove(k) {
				c.size.Add(-1)
				removed++
			}
		}
	}
	c.metrics.Size.Set(float64(c.size.Load()))
	return removed
}

// Warm populates the cache from store's most recently used N entries.
func (c *Cache) Warm(ctx context.Context, store Store, n int) error {
	entries, err := store.LoadRecent(ctx, n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		c.Insert(e.Key, e.Value, e.expiresAt)
	}
	return nil
}

// Start launches the background expiry sweep (every 60s) and a metrics
// reporter, both polling the running flag and exiting on Stop.
func (c *Cache) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running.Store(true)

	c.wg.Add(2)
	go c.expirySweepLoop(ctx)
	go c.metricsReportLoop(ctx)
}

func (c *Cache) expirySweepLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for c.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *Cache) sweepExpired() {
	now := time.Now()
	for _, k := range c.entries.Keys() {
		if e, ok := c.entries.Peek(k); ok && e.isExpired(now) {
			if c.entries.Remove(k) {
				c.size.Add(-1)
			}
		}
	}
	c.metrics.Size.Set(float64(c.size.Load()))
}

func (c *Cache) metricsReportLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for c.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.metrics.Size.Set(float64(c.size.Load()))
		}
	}
}

// Stop signals both background tasks to exit and waits briefly for them
// to drain, per spec.md §4.H.
func (c *Cache) Stop() {
	c.running.Store(false)
	if c.cancel != nil {
		c.cancel()
	}
	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func matchKeyPattern(key, pattern string) bool {
	if pattern == "" {
		return false
	}
	for i := 0; i+len(pattern) <= len(key); i++ {
		if key[i:i+len(pattern)] == pattern {
			return true
		}
	}
	return false
}
