package quotes

import (
	"context"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

// History serves OHLCV series through the series cache, reaching the
// external source only on misses.
type History struct {
	source Source
	cache  *SeriesCache
	logger *zap.Logger
}

// NewHistory creates a history service over the given source and cache.
func NewHistory(source Source, cache *SeriesCache, logger *zap.Logger) *History {
	return &History{
		source: source,
		cache:  cache,
		logger: logger.Named("history"),
	}
}

// GetSeries returns the OHLCV history for the window. Fetch errors
// propagate: unlike last-price quotes there is no sensible stand-in for
// an entire candle series, so the caller decides how to degrade.
func (h *History) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle, error) {
	if candles := h.cache.Get(symbol, start, end); candles != nil {
		return candles, nil
	}

	candles, err := h.source.FetchSeries(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	h.cache.Put(symbol, start, end, candles)
	h.logger.Debug("Fetched series",
		zap.String("symbol", symbol),
		zap.Int("candles", len(candles)),
	)
	return candles, nil
}
