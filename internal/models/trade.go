package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"

	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"

	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// ErrOversell is returned when a SELL action exceeds the remaining shares.
var ErrOversell = errors.New("sell shares exceed remaining shares")

// ErrTradeClosed is returned when an action is applied to a closed trade.
// Re-entering a ticker is a new trade, never a reopened one.
var ErrTradeClosed = errors.New("trade is already closed")

// Trade represents one position: opened by one or more BUY actions and
// reduced or closed by one or more SELL actions. EntryPrice is the
// volume-weighted average of all BUY fills and is never touched by SELLs.
type Trade struct {
	gorm.Model
	UserID              string  `json:"user_id" gorm:"index"`
	Ticker              string  `json:"ticker" gorm:"index"`
	Direction           string  `json:"direction"` // "LONG" or "SHORT"
	AssetType           string  `json:"asset_type"`
	Status              string  `json:"status"` // "OPEN" or "CLOSED"
	EntryPrice          float64 `json:"entry_price"`
	TotalShares         float64 `json:"total_shares"`
	RemainingShares     float64 `json:"remaining_shares"`
	StopLoss            float64 `json:"stop_loss"`
	TrailingStop        float64 `json:"trailing_stop,omitempty"` // 0 means no trailing stop
	OpenRisk            float64 `json:"open_risk"`               // fractional stop distance from entry
	InitialRiskAmount   float64 `json:"initial_risk_amount"`
	InitialPositionRisk float64 `json:"initial_position_risk"` // % of capital at entry
	RealizedPnL         float64 `json:"realized_pnl" gorm:"column:realized_pnl"`
	UnrealizedPnL       float64 `json:"unrealized_pnl" gorm:"column:unrealized_pnl"`
	LastPrice           float64 `json:"last_price"`
	MarketValue         float64 `json:"market_value"`
	Notes               string  `json:"notes,omitempty"`
	OpenedAt            time.Time
	ClosedAt            *time.Time
	Actions             []TradeAction `json:"actions"`
}

// TradeAction is one fill in a trade's ordered action log.
type TradeAction struct {
	gorm.Model
	TradeID   uint    `json:"trade_id" gorm:"index"`
	Type      string  `json:"type"` // "BUY" or "SELL"
	Timestamp time.Time
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
}

// NewTrade creates a trade from its first BUY action. The initial risk
// amount is fixed here from the entry price and the fractional stop
// distance, and never recomputed.
func NewTrade(userID, ticker, direction, assetType string, first TradeAction, openRisk, capitalAtEntry float64) (*Trade, error) {
	if first.Type != ActionBuy {
		return nil, fmt.Errorf("trade %s must be created by a BUY action, got %s", ticker, first.Type)
	}
	t := &Trade{
		UserID:    userID,
		Ticker:    ticker,
		Direction: direction,
		AssetType: assetType,
		Status:    StatusOpen,
		OpenRisk:  openRisk,
		OpenedAt:  first.Timestamp,
	}
	t.InitialRiskAmount = first.Price * openRisk * first.Shares
	if capitalAtEntry > 0 {
		t.InitialPositionRisk = t.InitialRiskAmount / capitalAtEntry * 100
	}
	t.StopLoss = first.Price * (1 - t.Sign()*openRisk)
	if err := t.ApplyAction(first); err != nil {
		return nil, err
	}
	return t, nil
}

// Sign returns +1 for LONG trades and -1 for SHORT trades. P&L in price
// terms is always (price - entry) * shares * Sign().
func (t *Trade) Sign() float64 {
	if t.Direction == DirectionShort {
		return -1
	}
	return 1
}

// IsOpen reports whether the trade still has remaining shares.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// ApplyAction folds one fill into the trade. BUYs recompute the running
// weighted-average entry price; SELLs accumulate realized P&L and reduce
// the remaining shares. The trade flips to CLOSED exactly when remaining
// shares reach zero.
func (t *Trade) ApplyAction(a TradeAction) error {
	if t.Status == StatusClosed {
		return fmt.Errorf("%w: cannot apply %s to %s", ErrTradeClosed, a.Type, t.Ticker)
	}
	switch a.Type {
	case ActionBuy:
		combined := t.TotalShares + a.Shares
		if combined > 0 {
			t.EntryPrice = (t.EntryPrice*t.TotalShares + a.Price*a.Shares) / combined
		}
		t.TotalShares = combined
		t.RemainingShares += a.Shares
	case ActionSell:
		if a.Shares > t.RemainingShares {
			return fmt.Errorf("%w: selling %.4f of %.4f %s", ErrOversell, a.Shares, t.RemainingShares, t.Ticker)
		}
		t.RealizedPnL += (a.Price - t.EntryPrice) * a.Shares * t.Sign()
		t.RemainingShares -= a.Shares
		if t.RemainingShares == 0 {
			t.Status = StatusClosed
			t.UnrealizedPnL = 0
			ts := a.Timestamp
			t.ClosedAt = &ts
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	t.Actions = append(t.Actions, a)
	return nil
}

// Valid reports whether the record carries the fields every calculation
// depends on. Invalid records are dropped before any valuation runs.
func (t *Trade) Valid() bool {
	return t.Ticker != "" && t.Status != "" && t.EntryPrice > 0
}
