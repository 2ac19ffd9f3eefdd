package models

import (
	"time"

	"gorm.io/gorm"
)

// CapitalSnapshot is one point-in-time measurement of portfolio value.
// One row exists per user per trading day; intraday recomputes update the
// same row (day high/low widen, values overwrite) until end of day.
type CapitalSnapshot struct {
	gorm.Model
	UserID        string    `json:"user_id" gorm:"index:idx_user_day"`
	Day           time.Time `json:"day" gorm:"index:idx_user_day"`
	Capital       float64   `json:"capital"`
	HighWaterMark float64   `json:"high_water_mark"`
	Drawdown      float64   `json:"drawdown"`
	MaxDrawdown   float64   `json:"max_drawdown"`
	MaxRunup      float64   `json:"max_runup"`
	RealizedPnL   float64   `json:"realized_pnl" gorm:"column:realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl" gorm:"column:unrealized_pnl"`
	DayHigh       float64   `json:"day_high"`
	DayLow        float64   `json:"day_low"`
	TradeCount    int       `json:"trade_count"`
}
