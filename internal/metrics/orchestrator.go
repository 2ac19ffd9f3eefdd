package metrics

import (
	"context"
	"errors"
	"time"

	"trade-journal-go/internal/models"
	"trade-journal-go/internal/quotes"

	"go.uber.org/zap"
)

// ErrNilTrades is the one programmer-error input ComputeMetrics refuses:
// a nil trade list. An empty list is a valid, empty portfolio.
var ErrNilTrades = errors.New("nil trade list")

// QuoteProvider is the quote cache as the orchestrator sees it.
type QuoteProvider interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, quotes.Status, error)
	Clear()
}

// SettingsStore resolves per-user settings.
type SettingsStore interface {
	GetStartingCash(ctx context.Context, userID string) (float64, error)
}

// CapitalLedger reads the append-only daily capital snapshot sequence,
// time-ordered.
type CapitalLedger interface {
	ListSnapshots(ctx context.Context, userID string) ([]models.CapitalSnapshot, error)
}

// Performance aggregates closed-trade results.
type Performance struct {
	TotalTrades  int     `json:"total_trades"`
	ClosedTrades int     `json:"closed_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"` // %
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // magnitude, always >= 0
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	PayoffRatio  float64 `json:"payoff_ratio"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"` // signed, <= 0
}

// PortfolioMetrics is the derived, ephemeral portfolio view. It is
// recomputed on demand and never persisted as the source of truth; the
// trade and capital snapshot records stay authoritative.
type PortfolioMetrics struct {
	ComputedAt      time.Time       `json:"computed_at"`
	StartingCapital float64         `json:"starting_capital"`
	CurrentCapital  float64         `json:"current_capital"`
	RealizedPnL     float64         `json:"realized_pnl"`
	UnrealizedPnL   float64         `json:"unrealized_pnl"`
	QuoteStatus     string          `json:"quote_status"`
	Performance     Performance     `json:"performance"`
	Streaks         StreakSummary   `json:"streaks"`
	Exposure        ExposureMetrics `json:"exposure"`
	Drawdown        DrawdownStats   `json:"drawdown"`
	Trades          []TradeMetrics  `json:"trades"`
}

// Orchestrator composes the metric calculators into one consistent
// snapshot per request. It owns no trade state: inputs are never
// mutated, and the only side effect it triggers is a quote cache
// refresh.
type Orchestrator struct {
	quotes          QuoteProvider
	settings        SettingsStore
	ledger          CapitalLedger
	defaultStarting float64
	logger          *zap.Logger
	now             func() time.Time
}

// NewOrchestrator creates a metrics orchestrator. The settings store and
// ledger may be nil, in which case starting capital falls straight
// through to the default and drawdown stats stay zero.
func NewOrchestrator(q QuoteProvider, settings SettingsStore, ledger CapitalLedger, defaultStarting float64, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		quotes:          q,
		settings:        settings,
		ledger:          ledger,
		defaultStarting: defaultStarting,
		logger:          logger.Named("metrics"),
		now:             time.Now,
	}
}

// ComputeMetrics derives one portfolio snapshot from the given trades.
// Quotes are read once at the start so the whole computation sees a
// single consistent quote set. Missing or stale market data degrades the
// result instead of failing it; the only returned error is the
// programmer-error nil trade list.
func (o *Orchestrator) ComputeMetrics(ctx context.Context, userID string, trades []models.Trade, startingCapital float64) (*PortfolioMetrics, error) {
	if trades == nil {
		return nil, ErrNilTrades
	}
	now := o.now()

	// Drop malformed records before any numeric code sees them.
	valid := make([]*models.Trade, 0, len(trades))
	for i := range trades {
		if trades[i].Valid() {
			valid = append(valid, &trades[i])
		}
	}
	if dropped := len(trades) - len(valid); dropped > 0 {
		o.logger.Warn("Dropped invalid trade records", zap.Int("count", dropped))
	}

	starting := o.resolveStartingCapital(ctx, userID, startingCapital)

	// One consistent quote snapshot for the whole computation.
	quoteSet, quoteStatus := o.fetchQuotes(ctx, valid)

	current := CurrentCapital(starting, valid, quoteSet)

	pm := &PortfolioMetrics{
		ComputedAt:      now,
		StartingCapital: starting,
		CurrentCapital:  current,
		QuoteStatus:     quoteStatus.String(),
		Trades:          make([]TradeMetrics, 0, len(valid)),
	}

	valued := make([]ValuedTrade, 0, len(valid))
	closed := make([]*models.Trade, 0, len(valid))
	for _, t := range valid {
		var q *models.Quote
		if quote, ok := quoteSet[t.Ticker]; ok {
			q = &quote
		}
		m := Valuate(t, q, starting, current)
		valued = append(valued, ValuedTrade{Trade: t, Metrics: m})
		pm.Trades = append(pm.Trades, m)

		pm.RealizedPnL += t.RealizedPnL
		pm.UnrealizedPnL += m.UnrealizedPnL
		if !t.IsOpen() {
			closed = append(closed, t)
		}
	}

	pm.Performance = performance(valid, closed)
	pm.Exposure = Exposure(valued, current, now)
	pm.Streaks = Streaks(closed)
	pm.Drawdown = o.drawdown(ctx, userID)

	return pm, nil
}

// resolveStartingCapital picks the explicit argument, else the user's
// stored setting, else the configured default.
func (o *Orchestrator) resolveStartingCapital(ctx context.Context, userID string, explicit float64) float64 {
	if explicit > 0 {
		return explicit
	}
	if o.settings != nil {
		cash, err := o.settings.GetStartingCash(ctx, userID)
		if err != nil {
			o.logger.Warn("Failed to read starting cash setting, using default", zap.Error(err))
		} else if cash > 0 {
			return cash
		}
	}
	return o.defaultStarting
}

func (o *Orchestrator) fetchQuotes(ctx context.Context, trades []*models.Trade) (map[string]models.Quote, quotes.Status) {
	seen := make(map[string]struct{})
	var symbols []string
	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		if _, ok := seen[t.Ticker]; ok {
			continue
		}
		seen[t.Ticker] = struct{}{}
		symbols = append(symbols, t.Ticker)
	}
	if len(symbols) == 0 {
		return map[string]models.Quote{}, quotes.StatusFresh
	}

	quoteSet, status, err := o.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		// Degrade: every valuation falls back to its entry price.
		o.logger.Warn("Quote refresh failed, valuations fall back to entry prices",
			zap.Int("symbols", len(symbols)), zap.Error(err))
		return map[string]models.Quote{}, status
	}
	return quoteSet, status
}

func (o *Orchestrator) drawdown(ctx context.Context, userID string) DrawdownStats {
	if o.ledger == nil {
		return DrawdownStats{}
	}
	snapshots, err := o.ledger.ListSnapshots(ctx, userID)
	if err != nil {
		o.logger.Warn("Failed to read capital ledger, drawdown unavailable", zap.Error(err))
		return DrawdownStats{}
	}
	return DrawdownAndRunup(snapshots)
}

// performance aggregates win/loss statistics over closed trades. All
// ratio denominators are guarded: no losses means a zero profit factor
// and payoff ratio rather than infinity.
func performance(all, closed []*models.Trade) Performance {
	p := Performance{TotalTrades: len(all), ClosedTrades: len(closed)}

	var grossProfit, grossLoss float64
	for _, t := range closed {
		pnl := t.RealizedPnL
		if pnl > 0 {
			p.Wins++
			grossProfit += pnl
			if pnl > p.LargestWin {
				p.LargestWin = pnl
			}
		} else {
			p.Losses++
			grossLoss += -pnl
			if pnl < p.LargestLoss {
				p.LargestLoss = pnl
			}
		}
	}

	if p.ClosedTrades > 0 {
		p.WinRate = float64(p.Wins) / float64(p.ClosedTrades) * 100
	}
	if p.Wins > 0 {
		p.AvgWin = grossProfit / float64(p.Wins)
	}
	if p.Losses > 0 {
		p.AvgLoss = grossLoss / float64(p.Losses)
	}
	if grossLoss > 0 {
		p.ProfitFactor = grossProfit / grossLoss
	}
	if p.AvgLoss > 0 {
		p.PayoffRatio = p.AvgWin / p.AvgLoss
	}
	winFrac := p.WinRate / 100
	p.Expectancy = winFrac*p.AvgWin - (1-winFrac)*p.AvgLoss

	return p
}
