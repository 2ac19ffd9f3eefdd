package quotes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource is a scriptable Source for cache tests.
type fakeSource struct {
	mu      sync.Mutex
	prices  map[string]float64
	err     error
	fetches int
	block   chan struct{} // when set, FetchQuotes waits on it
	entered chan struct{} // signalled when a fetch starts
}

func (f *fakeSource) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	f.mu.Lock()
	f.fetches++
	block := f.block
	entered := f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Quote)
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = models.Quote{Symbol: s, Price: p}
		}
	}
	return out, nil
}

func (f *fakeSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func newTestCache(src Source) (*Cache, *time.Time) {
	c := NewCache(src, 30*time.Minute, 2*time.Hour, zap.NewNop())
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetQuotesFetchesOncePerTTL(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 180, "MSFT": 420}}
	cache, _ := newTestCache(src)

	q1, status, err := cache.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, status)
	assert.InDelta(t, 180.0, q1["AAPL"].Price, 1e-9)
	assert.InDelta(t, 420.0, q1["MSFT"].Price, 1e-9)

	// Second request inside the TTL must not hit the source again.
	q2, status, err := cache.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, status)
	assert.Equal(t, q1["AAPL"].Price, q2["AAPL"].Price)
	assert.Equal(t, 1, src.fetchCount())
}

func TestGetQuotesRefetchesStale(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 180}}
	cache, now := newTestCache(src)

	_, _, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	*now = now.Add(31 * time.Minute)
	src.mu.Lock()
	src.prices["AAPL"] = 185
	src.mu.Unlock()

	q, status, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, status)
	assert.InDelta(t, 185.0, q["AAPL"].Price, 1e-9)
	assert.Equal(t, 2, src.fetchCount())
}

func TestGetQuotesOnlyFetchesMissingSymbols(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 180, "MSFT": 420}}
	cache, _ := newTestCache(src)

	_, _, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	// MSFT is missing; AAPL is fresh. The second fetch is for MSFT only.
	q, status, err := cache.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, status)
	assert.Len(t, q, 2)
	assert.Equal(t, 2, src.fetchCount())
}

func TestGetQuotesServesStaleOnFetchFailure(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 180}}
	cache, now := newTestCache(src)

	_, _, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	*now = now.Add(45 * time.Minute) // past TTL, inside failure window
	src.mu.Lock()
	src.err = errors.New("connection refused")
	src.mu.Unlock()

	q, status, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err, "transient failures must not surface when stale data exists")
	assert.Equal(t, StatusDegraded, status)
	assert.InDelta(t, 180.0, q["AAPL"].Price, 1e-9)
}

func TestGetQuotesFailsWithNoFallback(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	cache, _ := newTestCache(src)

	q, status, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, status)
	assert.Empty(t, q)
}

func TestGetQuotesExpiresBeyondFailureWindow(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 180}}
	cache, now := newTestCache(src)

	_, _, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	*now = now.Add(3 * time.Hour) // past TTL + failure window
	src.mu.Lock()
	src.err = errors.New("connection refused")
	src.mu.Unlock()

	q, status, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, status)
	assert.Empty(t, q)
}

func TestClear(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 180}}
	cache, _ := newTestCache(src)

	_, _, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())

	_, _, err = cache.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.fetchCount())
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	src := &fakeSource{
		prices:  map[string]float64{"AAPL": 180},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	cache, _ := newTestCache(src)

	results := make(chan float64, 2)
	for i := 0; i < 2; i++ {
		go func() {
			q, _, err := cache.GetQuotes(context.Background(), []string{"AAPL"})
			assert.NoError(t, err)
			results <- q["AAPL"].Price
		}()
	}

	// One goroutine reaches the source; the other awaits the in-flight call.
	<-src.entered
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	src.mu.Lock()
	src.block = nil
	src.mu.Unlock()

	for i := 0; i < 2; i++ {
		assert.InDelta(t, 180.0, <-results, 1e-9)
	}
	assert.Equal(t, 1, src.fetchCount())
}
