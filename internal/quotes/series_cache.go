package quotes

import (
	"fmt"
	"sync"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

// seriesEntry is one cached OHLCV history.
type seriesEntry struct {
	candles    []models.Candle
	insertedAt time.Time
	expiresAt  time.Time
	lastAccess time.Time
	seq        uint64 // insertion order, tie-breaker for eviction
}

// SeriesCache holds historical OHLCV series keyed by (symbol, start, end)
// with TTL expiry and a bounded entry count evicted least-recently-accessed.
type SeriesCache struct {
	mu       sync.Mutex
	entries  map[string]*seriesEntry
	capacity int
	ttl      time.Duration
	seq      uint64
	logger   *zap.Logger
	now      func() time.Time
}

// NewSeriesCache creates a series cache with the given capacity and TTL.
func NewSeriesCache(capacity int, ttl time.Duration, logger *zap.Logger) *SeriesCache {
	return &SeriesCache{
		entries:  make(map[string]*seriesEntry),
		capacity: capacity,
		ttl:      ttl,
		logger:   logger.Named("series-cache"),
		now:      time.Now,
	}
}

// key derives the deterministic cache key. A requested end time within
// one second of "now" collapses to an "ongoing" token so repeated
// queries for a still-accruing history reuse one slot instead of
// minting a new slot every call.
func (c *SeriesCache) key(symbol string, start, end time.Time) string {
	endTok := fmt.Sprintf("%d", end.Unix())
	age := c.now().Sub(end)
	if age < 0 {
		age = -age
	}
	if age <= time.Second {
		endTok = "ongoing"
	}
	return fmt.Sprintf("%s:%d:%s", symbol, start.Unix(), endTok)
}

// Get returns the cached candles for the window, or nil on a miss.
// Expired entries count as misses even before they are purged. A hit
// refreshes the entry's last-access time.
func (c *SeriesCache) Get(symbol string, start, end time.Time) []models.Candle {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(symbol, start, end)
	e, ok := c.entries[k]
	if !ok {
		return nil
	}
	now := c.now()
	if now.After(e.expiresAt) {
		return nil
	}
	e.lastAccess = now
	return e.candles
}

// Put stores candles for the window, sweeping expired entries first and
// evicting the least-recently-accessed entry if the cache is full.
func (c *SeriesCache) Put(symbol string, start, end time.Time, candles []models.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	k := c.key(symbol, start, end)
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked()
	}

	c.seq++
	c.entries[k] = &seriesEntry{
		candles:    candles,
		insertedAt: now,
		expiresAt:  now.Add(c.ttl),
		lastAccess: now,
		seq:        c.seq,
	}
}

// evictLocked removes the single entry with the oldest last access,
// breaking ties by insertion order.
func (c *SeriesCache) evictLocked() {
	var victim string
	var victimEntry *seriesEntry
	for k, e := range c.entries {
		if victimEntry == nil ||
			e.lastAccess.Before(victimEntry.lastAccess) ||
			(e.lastAccess.Equal(victimEntry.lastAccess) && e.seq < victimEntry.seq) {
			victim = k
			victimEntry = e
		}
	}
	if victimEntry != nil {
		delete(c.entries, victim)
		c.logger.Debug("Evicted series cache entry", zap.String("key", victim))
	}
}

// Len returns the number of cached series.
func (c *SeriesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear purges all entries.
func (c *SeriesCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*seriesEntry)
}
