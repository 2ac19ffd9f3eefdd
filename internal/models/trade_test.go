package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func action(typ string, shares, price float64, at time.Time) TradeAction {
	return TradeAction{Type: typ, Shares: shares, Price: price, Timestamp: at}
}

func TestNewTradeComputesInitialRisk(t *testing.T) {
	at := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	tr, err := NewTrade("u1", "AAPL", DirectionLong, "stock", action(ActionBuy, 50, 100, at), 0.10, 25000)
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, tr.Status)
	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.Equal(t, 50.0, tr.TotalShares)
	assert.Equal(t, 50.0, tr.RemainingShares)
	assert.InDelta(t, 500.0, tr.InitialRiskAmount, 1e-9) // 100 * 0.10 * 50
	assert.InDelta(t, 2.0, tr.InitialPositionRisk, 1e-9) // 500 / 25000 * 100
	assert.InDelta(t, 90.0, tr.StopLoss, 1e-9)
	assert.Equal(t, at, tr.OpenedAt)
}

func TestNewTradeRejectsSell(t *testing.T) {
	_, err := NewTrade("u1", "AAPL", DirectionLong, "stock", action(ActionSell, 50, 100, time.Now()), 0.10, 25000)
	assert.Error(t, err)
}

func TestApplyActionWeightedAverageEntry(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "MSFT", DirectionLong, "stock", action(ActionBuy, 100, 100, at), 0.05, 50000)
	require.NoError(t, err)

	require.NoError(t, tr.ApplyAction(action(ActionBuy, 100, 110, at.Add(time.Hour))))

	assert.InDelta(t, 105.0, tr.EntryPrice, 1e-9)
	assert.Equal(t, 200.0, tr.TotalShares)
	assert.Equal(t, 200.0, tr.RemainingShares)
	assert.Equal(t, StatusOpen, tr.Status)
}

func TestApplyActionSellDoesNotTouchEntry(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "MSFT", DirectionLong, "stock", action(ActionBuy, 100, 100, at), 0.05, 50000)
	require.NoError(t, err)

	require.NoError(t, tr.ApplyAction(action(ActionSell, 40, 120, at.Add(time.Hour))))

	assert.InDelta(t, 100.0, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 800.0, tr.RealizedPnL, 1e-9) // (120-100)*40
	assert.Equal(t, 60.0, tr.RemainingShares)
	assert.Equal(t, StatusOpen, tr.Status)
	assert.Nil(t, tr.ClosedAt)
}

func TestPartialExitsAccumulateRealizedPnL(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "NVDA", DirectionLong, "stock", action(ActionBuy, 100, 50, at), 0.08, 25000)
	require.NoError(t, err)

	require.NoError(t, tr.ApplyAction(action(ActionSell, 50, 60, at.Add(time.Hour))))
	afterFirst := tr.RealizedPnL
	require.NoError(t, tr.ApplyAction(action(ActionSell, 50, 55, at.Add(2*time.Hour))))

	assert.InDelta(t, 500.0, afterFirst, 1e-9)
	assert.InDelta(t, 750.0, tr.RealizedPnL, 1e-9)
	assert.GreaterOrEqual(t, tr.RealizedPnL, afterFirst, "realized P&L only accumulates")
	assert.Equal(t, StatusClosed, tr.Status)
	assert.Equal(t, 0.0, tr.RemainingShares)
	assert.Equal(t, 0.0, tr.UnrealizedPnL)
	require.NotNil(t, tr.ClosedAt)
	assert.Equal(t, at.Add(2*time.Hour), *tr.ClosedAt)
}

func TestShortSellRealizedSign(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "TSLA", DirectionShort, "stock", action(ActionBuy, 10, 200, at), 0.05, 25000)
	require.NoError(t, err)

	// Covering lower than entry is a win for a short.
	require.NoError(t, tr.ApplyAction(action(ActionSell, 10, 180, at.Add(time.Hour))))
	assert.InDelta(t, 200.0, tr.RealizedPnL, 1e-9) // (180-200)*10*-1
}

func TestOversellRejected(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "AMD", DirectionLong, "stock", action(ActionBuy, 10, 100, at), 0.05, 25000)
	require.NoError(t, err)

	err = tr.ApplyAction(action(ActionSell, 11, 100, at.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrOversell)
	// Record untouched on rejection.
	assert.Equal(t, 10.0, tr.RemainingShares)
	assert.Equal(t, StatusOpen, tr.Status)
}

func TestApplyActionRejectedOnClosedTrade(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "INTC", DirectionLong, "stock", action(ActionBuy, 10, 40, at), 0.05, 25000)
	require.NoError(t, err)
	require.NoError(t, tr.ApplyAction(action(ActionSell, 10, 45, at.Add(time.Hour))))
	require.Equal(t, StatusClosed, tr.Status)

	// A closed trade stays closed; re-entering the ticker is a new trade.
	err = tr.ApplyAction(action(ActionBuy, 5, 42, at.Add(2*time.Hour)))
	assert.ErrorIs(t, err, ErrTradeClosed)
	err = tr.ApplyAction(action(ActionSell, 5, 42, at.Add(2*time.Hour)))
	assert.ErrorIs(t, err, ErrTradeClosed)

	assert.Equal(t, StatusClosed, tr.Status)
	assert.Equal(t, 0.0, tr.RemainingShares)
	assert.Equal(t, 10.0, tr.TotalShares)
}

func TestRemainingNeverExceedsTotal(t *testing.T) {
	at := time.Now()
	tr, err := NewTrade("u1", "SPY", DirectionLong, "etf", action(ActionBuy, 30, 400, at), 0.03, 100000)
	require.NoError(t, err)

	steps := []TradeAction{
		action(ActionBuy, 20, 410, at.Add(1*time.Hour)),
		action(ActionSell, 25, 420, at.Add(2*time.Hour)),
		action(ActionBuy, 10, 405, at.Add(3*time.Hour)),
		action(ActionSell, 35, 415, at.Add(4*time.Hour)),
	}
	for _, s := range steps {
		require.NoError(t, tr.ApplyAction(s))
		assert.LessOrEqual(t, tr.RemainingShares, tr.TotalShares)
		assert.Equal(t, tr.RemainingShares == 0, tr.Status == StatusClosed)
	}
	assert.Equal(t, StatusClosed, tr.Status)
}

func TestValid(t *testing.T) {
	testCases := []struct {
		name  string
		trade Trade
		want  bool
	}{
		{"complete record", Trade{Ticker: "AAPL", Status: StatusOpen, EntryPrice: 100}, true},
		{"missing ticker", Trade{Status: StatusOpen, EntryPrice: 100}, false},
		{"missing status", Trade{Ticker: "AAPL", EntryPrice: 100}, false},
		{"zero entry price", Trade{Ticker: "AAPL", Status: StatusOpen}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.trade.Valid())
		})
	}
}
