package metrics

import (
	"trade-journal-go/internal/models"
)

// CurrentCapital folds the trade set into the portfolio's current
// capital: starting capital plus all realized P&L (full and partial
// exits) plus unrealized P&L of open trades at the latest quotes. An
// open trade with no quote contributes no unrealized P&L, since its
// stand-in price is its own entry price.
func CurrentCapital(startingCapital float64, trades []*models.Trade, quotes map[string]models.Quote) float64 {
	capital := startingCapital
	for _, t := range trades {
		capital += t.RealizedPnL
		if !t.IsOpen() {
			continue
		}
		if q, ok := quotes[t.Ticker]; ok {
			capital += (q.Price - t.EntryPrice) * t.RemainingShares * t.Sign()
		}
	}
	return capital
}

// DrawdownStats summarizes high-water-mark-relative movement over a
// capital series.
type DrawdownStats struct {
	MaxDrawdown     float64 `json:"max_drawdown"`     // %
	MaxRunup        float64 `json:"max_runup"`        // %
	CurrentDrawdown float64 `json:"current_drawdown"` // %
	HighWaterMark   float64 `json:"high_water_mark"`
}

// DrawdownAndRunup walks time-ordered daily capital snapshots in a single
// left fold: drawdown is the day low's decline from the running
// high-water-mark, tracked as a running maximum; run-up is measured from
// the previous snapshot's value whenever a new high-water-mark is set.
// Snapshots are assumed already ordered by the store; no re-sorting.
func DrawdownAndRunup(snapshots []models.CapitalSnapshot) DrawdownStats {
	var s DrawdownStats
	if len(snapshots) == 0 {
		return s
	}

	first := snapshots[0]
	hwm := dayHigh(first)
	prev := first.Capital

	for _, snap := range snapshots[1:] {
		hi, lo := dayHigh(snap), dayLow(snap)

		if hi > hwm {
			if prev > 0 {
				runup := (hi - prev) / prev * 100
				if runup > s.MaxRunup {
					s.MaxRunup = runup
				}
			}
			hwm = hi
		}

		if hwm > 0 {
			dd := (hwm - lo) / hwm * 100
			if dd > s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
			s.CurrentDrawdown = dd
		}

		prev = snap.Capital
	}

	s.HighWaterMark = hwm
	return s
}

// Historical backfill rows may carry only a capital value; fall back to
// it when the intraday high/low were never recorded.

func dayHigh(s models.CapitalSnapshot) float64 {
	if s.DayHigh != 0 {
		return s.DayHigh
	}
	return s.Capital
}

func dayLow(s models.CapitalSnapshot) float64 {
	if s.DayLow != 0 {
		return s.DayLow
	}
	return s.Capital
}
