package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

// Status describes how a batch of quotes was resolved: entirely from
// fresh data, from stale data after a fetch failure, or not at all.
type Status int

const (
	StatusFresh Status = iota
	StatusDegraded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// fetchCall tracks one in-flight batch fetch so concurrent callers can
// await its completion instead of issuing their own request.
type fetchCall struct {
	done chan struct{}
}

// Cache holds the most recently fetched quote per symbol with a fixed
// time-to-live. At most one external batch fetch is outstanding at a
// time; a caller arriving while a fetch is in flight awaits that fetch
// and then re-evaluates its own symbol set against the refreshed cache.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]models.Quote
	pending       *fetchCall
	source        Source
	ttl           time.Duration
	failureWindow time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewCache creates a quote cache in front of the given source. Entries
// older than ttl are refetched; after a fetch failure, entries are still
// served for an extra failureWindow before being treated as gone.
func NewCache(source Source, ttl, failureWindow time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		entries:       make(map[string]models.Quote),
		source:        source,
		ttl:           ttl,
		failureWindow: failureWindow,
		logger:        logger.Named("quote-cache"),
		now:           time.Now,
	}
}

// GetQuotes returns the latest quote for each requested symbol,
// fetching only the symbols whose cached entry is stale or missing.
// A fetch failure degrades to previously cached values when they are
// within the failure-tolerance window; StatusFailed with an error is
// returned only when nothing can be served at all.
func (c *Cache) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, Status, error) {
	for {
		c.mu.Lock()
		now := c.now()
		result := make(map[string]models.Quote, len(symbols))
		var stale []string
		for _, sym := range symbols {
			if e, ok := c.entries[sym]; ok && now.Sub(e.FetchedAt) < c.ttl {
				result[sym] = e
			} else {
				stale = append(stale, sym)
			}
		}

		if len(stale) == 0 {
			c.mu.Unlock()
			return result, StatusFresh, nil
		}

		if c.pending != nil {
			// Another caller's batch fetch is outstanding. Await it and
			// re-partition: it may or may not have covered our symbols.
			p := c.pending
			c.mu.Unlock()
			select {
			case <-p.done:
				continue
			case <-ctx.Done():
				return nil, StatusFailed, ctx.Err()
			}
		}

		call := &fetchCall{done: make(chan struct{})}
		c.pending = call
		c.mu.Unlock()

		fetched, err := c.source.FetchQuotes(ctx, stale)

		c.mu.Lock()
		c.pending = nil
		now = c.now()
		if err == nil {
			for sym, q := range fetched {
				q.FetchedAt = now
				q.LastUpdated = "just now"
				c.entries[sym] = q
			}
		}
		close(call.done)

		if err != nil {
			// Transient failure: do not invalidate, serve what we still
			// have within the tolerance window.
			degraded := make(map[string]models.Quote, len(symbols))
			for _, sym := range symbols {
				if e, ok := c.entries[sym]; ok && now.Sub(e.FetchedAt) < c.ttl+c.failureWindow {
					e.LastUpdated = humanAge(now.Sub(e.FetchedAt))
					degraded[sym] = e
				}
			}
			c.mu.Unlock()

			c.logger.Warn("Quote fetch failed, serving cached values",
				zap.Int("requested", len(symbols)),
				zap.Int("served", len(degraded)),
				zap.Error(err),
			)
			if len(degraded) == 0 {
				return map[string]models.Quote{}, StatusFailed, fmt.Errorf("quote fetch failed with no cached fallback: %w", err)
			}
			return degraded, StatusDegraded, nil
		}

		for _, sym := range stale {
			if e, ok := c.entries[sym]; ok {
				result[sym] = e
			}
			// Symbols the source does not know simply stay absent;
			// valuation falls back to the entry price.
		}
		c.mu.Unlock()
		return result, StatusFresh, nil
	}
}

// Clear purges all cached entries. An in-flight fetch is unaffected and
// will repopulate the cache when it completes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]models.Quote)
}

// Len returns the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// humanAge renders a fetch age for display, e.g. "12 minutes ago".
func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
}
