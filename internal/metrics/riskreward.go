package metrics

import "trade-journal-go/internal/models"

// RiskRewardRatio expresses a trade's P&L as a multiple of the dollar
// amount initially at risk (the R-multiple). OpenRisk is a fractional
// stop distance from the entry price, so the initial risk per share is
// entryPrice * openRisk.
//
// Closed trades use realized P&L only; open trades add the supplied
// unrealized P&L. The ratio is only meaningful when a finite risk amount
// exists: missing fields or a zero total risk return 0, never Inf or NaN.
func RiskRewardRatio(t *models.Trade, unrealizedPnL float64) float64 {
	if t.OpenRisk == 0 || t.EntryPrice == 0 || t.TotalShares == 0 {
		return 0
	}
	totalRisk := t.EntryPrice * t.OpenRisk * t.TotalShares
	if totalRisk == 0 {
		return 0
	}
	if t.Status == models.StatusClosed {
		return t.RealizedPnL / totalRisk
	}
	return (t.RealizedPnL + unrealizedPnL) / totalRisk
}
