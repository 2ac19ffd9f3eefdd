package metrics

import (
	"trade-journal-go/internal/models"
)

// TradeMetrics is the derived, per-trade slice of a portfolio snapshot.
// All percentages are in percent units (21.6 means 21.6%).
type TradeMetrics struct {
	TradeID          uint    `json:"trade_id"`
	Ticker           string  `json:"ticker"`
	Status           string  `json:"status"`
	LastPrice        float64 `json:"last_price"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
	RealizedPnL      float64 `json:"realized_pnl"`
	RealizedPnLPct   float64 `json:"realized_pnl_pct"`
	TrimmedPct       float64 `json:"trimmed_pct"`
	CurrentRisk      float64 `json:"current_risk"`
	RiskReward       float64 `json:"risk_reward"`
	PortfolioWeight  float64 `json:"portfolio_weight"`
	PortfolioImpact  float64 `json:"portfolio_impact"`
	QuoteMissing     bool    `json:"quote_missing,omitempty"`
}

// ValuedTrade pairs a trade with its computed metrics.
type ValuedTrade struct {
	Trade   *models.Trade
	Metrics TradeMetrics
}

// Valuate computes the current market value, P&L, and risk figures for a
// single trade against a quote. A nil quote never fails the valuation:
// the entry price stands in for the current price. Division-by-zero
// shaped inputs (zero entry price, zero shares, zero capital) resolve to
// zero rather than NaN or Inf.
func Valuate(t *models.Trade, q *models.Quote, startingCapital, currentCapital float64) TradeMetrics {
	m := TradeMetrics{
		TradeID:     t.ID,
		Ticker:      t.Ticker,
		Status:      t.Status,
		RealizedPnL: t.RealizedPnL,
	}

	denom := t.EntryPrice * t.TotalShares
	if denom > 0 {
		m.RealizedPnLPct = t.RealizedPnL / denom * 100
	}

	if t.Status == models.StatusClosed {
		// Closed trades ignore quotes entirely.
		m.LastPrice = t.EntryPrice
		m.UnrealizedPnL = 0
		m.TrimmedPct = 100
		if startingCapital > 0 {
			m.PortfolioImpact = t.RealizedPnL / startingCapital * 100
		}
		m.RiskReward = RiskRewardRatio(t, 0)
		return m
	}

	price := t.EntryPrice
	if q != nil {
		price = q.Price
	} else {
		m.QuoteMissing = true
	}
	m.LastPrice = price

	sign := t.Sign()
	m.MarketValue = t.RemainingShares * price
	m.UnrealizedPnL = (price - t.EntryPrice) * t.RemainingShares * sign
	if t.EntryPrice > 0 {
		m.UnrealizedPnLPct = (price - t.EntryPrice) / t.EntryPrice * 100 * sign
	}
	if t.TotalShares > 0 {
		m.TrimmedPct = (t.TotalShares - t.RemainingShares) / t.TotalShares * 100
	}

	m.CurrentRisk = currentRisk(t, price)

	if currentCapital > 0 {
		m.PortfolioWeight = m.MarketValue / currentCapital * 100
	}
	if startingCapital > 0 {
		m.PortfolioImpact = (m.UnrealizedPnL + t.RealizedPnL) / startingCapital * 100
	}
	m.RiskReward = RiskRewardRatio(t, m.UnrealizedPnL)

	return m
}

// currentRisk measures the dollar amount lost if the stop is hit from the
// current price. A trailing stop overrides the original stop derived from
// the fractional open risk. Direction-aware: a LONG is at risk while the
// price sits above its stop, a SHORT while the stop sits above the price.
func currentRisk(t *models.Trade, price float64) float64 {
	stop := t.TrailingStop
	if stop == 0 {
		stop = t.EntryPrice * (1 - t.Sign()*t.OpenRisk)
	}
	risk := (price - stop) * t.RemainingShares * t.Sign()
	if risk < 0 {
		return 0
	}
	return risk
}
