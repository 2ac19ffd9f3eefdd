package metrics

import "time"

// ExposureMetrics buckets open-position exposure as percentages of
// current capital: trades opened today (daily), in the trailing seven
// days (new), and all open trades (open). Risk per bucket sums each
// trade's initial position risk; profit sums unrealized P&L (plus
// realized P&L for the open bucket). Delta is profit minus risk, a
// simple measure of whether open exposure is net favorable.
type ExposureMetrics struct {
	DailyRisk   float64 `json:"daily_risk"`
	DailyProfit float64 `json:"daily_profit"`
	DailyDelta  float64 `json:"daily_delta"`
	NewRisk     float64 `json:"new_risk"`
	NewProfit   float64 `json:"new_profit"`
	NewDelta    float64 `json:"new_delta"`
	OpenRisk    float64 `json:"open_risk"`
	OpenProfit  float64 `json:"open_profit"`
	OpenDelta   float64 `json:"open_delta"`
}

// Exposure aggregates exposure over the open trades in valued.
// Closed trades are skipped; zero current capital zeroes the profit
// components rather than dividing.
func Exposure(valued []ValuedTrade, currentCapital float64, now time.Time) ExposureMetrics {
	var e ExposureMetrics

	for _, v := range valued {
		t := v.Trade
		if !t.IsOpen() {
			continue
		}

		risk := t.InitialPositionRisk
		var unrealizedPct, realizedPct float64
		if currentCapital > 0 {
			unrealizedPct = v.Metrics.UnrealizedPnL / currentCapital * 100
			realizedPct = t.RealizedPnL / currentCapital * 100
		}

		e.OpenRisk += risk
		e.OpenProfit += unrealizedPct + realizedPct

		if now.Sub(t.OpenedAt) <= 7*24*time.Hour {
			e.NewRisk += risk
			e.NewProfit += unrealizedPct
		}
		if sameDay(t.OpenedAt, now) {
			e.DailyRisk += risk
			e.DailyProfit += unrealizedPct
		}
	}

	e.DailyDelta = e.DailyProfit - e.DailyRisk
	e.NewDelta = e.NewProfit - e.NewRisk
	e.OpenDelta = e.OpenProfit - e.OpenRisk
	return e
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
