package metrics

import (
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestExposureBuckets(t *testing.T) {
	now := time.Date(2024, 6, 7, 15, 0, 0, 0, time.UTC)
	capital := 50000.0

	openedToday := &models.Trade{
		Ticker: "A", Status: models.StatusOpen, Direction: models.DirectionLong,
		EntryPrice: 100, TotalShares: 10, RemainingShares: 10,
		InitialPositionRisk: 1.0,
		OpenedAt:            now.Add(-2 * time.Hour),
	}
	openedThisWeek := &models.Trade{
		Ticker: "B", Status: models.StatusOpen, Direction: models.DirectionLong,
		EntryPrice: 200, TotalShares: 10, RemainingShares: 10,
		InitialPositionRisk: 2.0,
		OpenedAt:            now.AddDate(0, 0, -3),
	}
	openedLastMonth := &models.Trade{
		Ticker: "C", Status: models.StatusOpen, Direction: models.DirectionLong,
		EntryPrice: 300, TotalShares: 10, RemainingShares: 10,
		InitialPositionRisk: 3.0,
		RealizedPnL:         500, // partial exit, counts in open bucket profit
		OpenedAt:            now.AddDate(0, 0, -30),
	}
	closed := &models.Trade{
		Ticker: "D", Status: models.StatusClosed, Direction: models.DirectionLong,
		EntryPrice: 100, RealizedPnL: 9999,
		OpenedAt: now.Add(-time.Hour),
	}

	valued := []ValuedTrade{
		{Trade: openedToday, Metrics: TradeMetrics{UnrealizedPnL: 250}},
		{Trade: openedThisWeek, Metrics: TradeMetrics{UnrealizedPnL: -500}},
		{Trade: openedLastMonth, Metrics: TradeMetrics{UnrealizedPnL: 1000}},
		{Trade: closed, Metrics: TradeMetrics{}},
	}

	e := Exposure(valued, capital, now)

	// Daily: trade A only. Profit 250/50000*100 = 0.5%.
	assert.InDelta(t, 1.0, e.DailyRisk, 1e-9)
	assert.InDelta(t, 0.5, e.DailyProfit, 1e-9)
	assert.InDelta(t, -0.5, e.DailyDelta, 1e-9)

	// New (7 days): A and B. Profit (250-500)/50000*100 = -0.5%.
	assert.InDelta(t, 3.0, e.NewRisk, 1e-9)
	assert.InDelta(t, -0.5, e.NewProfit, 1e-9)
	assert.InDelta(t, -3.5, e.NewDelta, 1e-9)

	// Open: A, B, C. Unrealized (250-500+1000) plus C's realized 500:
	// 1250/50000*100 = 2.5%.
	assert.InDelta(t, 6.0, e.OpenRisk, 1e-9)
	assert.InDelta(t, 2.5, e.OpenProfit, 1e-9)
	assert.InDelta(t, -3.5, e.OpenDelta, 1e-9)
}

func TestExposureZeroCapital(t *testing.T) {
	now := time.Now()
	valued := []ValuedTrade{{
		Trade: &models.Trade{
			Ticker: "A", Status: models.StatusOpen, Direction: models.DirectionLong,
			EntryPrice: 100, InitialPositionRisk: 1.5, OpenedAt: now,
		},
		Metrics: TradeMetrics{UnrealizedPnL: 100},
	}}

	e := Exposure(valued, 0, now)
	assert.InDelta(t, 1.5, e.OpenRisk, 1e-9)
	assert.Equal(t, 0.0, e.OpenProfit, "zero capital must not divide")
}

func TestExposureEmpty(t *testing.T) {
	assert.Equal(t, ExposureMetrics{}, Exposure(nil, 50000, time.Now()))
}
