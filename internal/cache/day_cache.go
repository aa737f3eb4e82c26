// Package cache provides a read-through day cache in front of a repository.
//
// Durable backends answer a day lookup with a network round trip. The cache
// keeps recently fetched days in memory for a TTL. A background worker evicts
// expired entries and watches the backing store for a replaced simulation;
// when the stored generation changes, the cache drops every entry.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/star/solarweather/internal/metrics"
	"github.com/star/solarweather/internal/repository"
	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

// Config holds cache configuration.
type Config struct {
	TTL        time.Duration // How long a fetched day is served from memory
	MaxEntries int           // Upper bound on cached days, 0 means unbounded
	Interval   time.Duration // Maintenance interval (default: TTL/2, at least 1s)
}

// CacheEntry wraps a day with the time it was fetched.
type CacheEntry struct {
	Day       weather.Day
	FetchedAt time.Time
}

// DayCache is a read-through cache of days. It implements repository.Repository
// and is safe for concurrent use by multiple goroutines.
type DayCache struct {
	mu      sync.RWMutex
	entries map[int]*CacheEntry
	summary *simulation.Summary
	epoch   uint64 // bumped whenever the entries are replaced

	config Config
	next   repository.Repository
	logger *slog.Logger
	now    func() time.Time

	// Generation of the cached data, the ID of the stored simulation.
	generation atomic.Pointer[uuid.UUID]

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewDayCache creates a day cache in front of next.
func NewDayCache(config Config, next repository.Repository, logger *slog.Logger) *DayCache {
	if config.Interval <= 0 {
		config.Interval = max(config.TTL/2, time.Second)
	}

	logger.Info("cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
		"interval_seconds", config.Interval.Seconds(),
	)

	return &DayCache{
		entries: make(map[int]*CacheEntry),
		config:  config,
		next:    next,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchDay returns the day from memory, or fetches it from the backing store.
// Errors are never cached.
func (c *DayCache) FetchDay(ctx context.Context, n int) (weather.Day, error) {
	d, epoch, ok := c.get(n)
	if ok {
		return d, nil
	}

	d, err := c.next.FetchDay(ctx, n)
	if err != nil {
		return d, err
	}
	c.put(d, epoch)
	return d, nil
}

// get returns the cached day if it has not expired, along with the epoch
// the lookup observed.
func (c *DayCache) get(n int) (weather.Day, uint64, bool) {
	cutoff := c.now().Add(-c.config.TTL)

	c.mu.RLock()
	entry, ok := c.entries[n]
	epoch := c.epoch
	c.mu.RUnlock()

	if ok && entry.FetchedAt.After(cutoff) {
		c.hits.Add(1)
		metrics.IncCacheHit()
		return entry.Day, epoch, true
	}

	c.misses.Add(1)
	metrics.IncCacheMiss()
	return weather.Day{}, epoch, false
}

// put stores a day in the cache, evicting the oldest entry when full.
// A day fetched before the entries were replaced belongs to an older
// generation and is dropped.
func (c *DayCache) put(d weather.Day, epoch uint64) {
	entry := &CacheEntry{Day: d, FetchedAt: c.now()}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	var evicted int
	if _, ok := c.entries[d.Number]; !ok && c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		evicted = c.evictOldestLocked()
	}
	c.entries[d.Number] = entry
	count := len(c.entries)
	c.mu.Unlock()

	c.recordEvictions(evicted)
	metrics.SetCacheEntries(count)
}

// evictOldestLocked removes the least recently fetched entry. Caller must hold mu.
func (c *DayCache) evictOldestLocked() int {
	oldest := -1
	var oldestAt time.Time
	for n, e := range c.entries {
		if oldest < 0 || e.FetchedAt.Before(oldestAt) {
			oldest, oldestAt = n, e.FetchedAt
		}
	}
	if oldest < 0 {
		return 0
	}
	delete(c.entries, oldest)
	return 1
}

// FetchSummary returns the cached summary, fetching it once per generation.
func (c *DayCache) FetchSummary(ctx context.Context) (simulation.Summary, error) {
	c.mu.RLock()
	s := c.summary
	c.mu.RUnlock()
	if s != nil {
		return *s, nil
	}

	summary, err := c.next.FetchSummary(ctx)
	if err != nil {
		return summary, err
	}

	c.mu.Lock()
	c.summary = &summary
	c.mu.Unlock()
	c.generation.CompareAndSwap(nil, &summary.ID)
	return summary, nil
}

// Store writes through to the backing store and starts a new generation.
func (c *DayCache) Store(ctx context.Context, s *simulation.Simulation) error {
	if err := c.next.Store(ctx, s); err != nil {
		return err
	}
	c.replaceAll(&s.Summary)
	id := s.ID
	c.generation.Store(&id)
	return nil
}

func (c *DayCache) Exists(ctx context.Context) (bool, error) {
	c.mu.RLock()
	cached := c.summary != nil
	c.mu.RUnlock()
	if cached {
		return true, nil
	}
	return c.next.Exists(ctx)
}

// Reset resets the backing store, if supported, and clears the cache.
func (c *DayCache) Reset(ctx context.Context) error {
	if r, ok := c.next.(repository.Resetter); ok {
		if err := r.Reset(ctx); err != nil {
			return err
		}
	}
	c.replaceAll(nil)
	c.generation.Store(nil)
	return nil
}

func (c *DayCache) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

func (c *DayCache) Close() error {
	return c.next.Close()
}

// evictExpired removes entries fetched before now - TTL.
func (c *DayCache) evictExpired() int {
	cutoff := c.now().Add(-c.config.TTL)
	var removed int

	c.mu.Lock()
	for n, e := range c.entries {
		if !e.FetchedAt.After(cutoff) {
			delete(c.entries, n)
			removed++
		}
	}
	count := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.recordEvictions(removed)
		metrics.SetCacheEntries(count)
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// replaceAll drops every cached day and replaces the cached summary.
func (c *DayCache) replaceAll(summary *simulation.Summary) {
	c.mu.Lock()
	dropped := len(c.entries)
	c.entries = make(map[int]*CacheEntry)
	c.summary = summary
	c.epoch++
	c.mu.Unlock()

	c.recordEvictions(dropped)
	metrics.SetCacheEntries(0)
}

func (c *DayCache) recordEvictions(n int) {
	if n == 0 {
		return
	}
	c.evictions.Add(int64(n))
	metrics.AddCacheEvictions(n)
}

// Stats returns current cache statistics.
func (c *DayCache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.entries)
	var oldest, newest time.Time
	for _, e := range c.entries {
		if oldest.IsZero() || e.FetchedAt.Before(oldest) {
			oldest = e.FetchedAt
		}
		if newest.IsZero() || e.FetchedAt.After(newest) {
			newest = e.FetchedAt
		}
	}
	c.mu.RUnlock()

	stats := CacheStats{
		Entries:   count,
		Oldest:    oldest,
		Newest:    newest,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if id := c.generation.Load(); id != nil {
		stats.Generation = id.String()
	}
	return stats
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Entries    int       `json:"entries"`
	Oldest     time.Time `json:"oldest"`
	Newest     time.Time `json:"newest"`
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Evictions  int64     `json:"evictions"`
	Generation string    `json:"generation,omitempty"`
}
