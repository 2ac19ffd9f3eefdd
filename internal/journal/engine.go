package journal

import (
	"context"
	"sync"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/metrics"
	"trade-journal-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the journal's recompute loop: on every tick it reloads the
// trade set, derives a fresh portfolio snapshot, persists the recomputed
// per-trade fields, and appends the day's capital measurement to the
// ledger. The derived snapshot is only a view; the trade and ledger rows
// stay authoritative.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger       *zap.Logger
	cfg          *config.Config
	store        *database.Store
	orchestrator *metrics.Orchestrator

	mu     sync.RWMutex
	latest *metrics.PortfolioMetrics
}

// NewEngine creates a journal engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, store *database.Store, orchestrator *metrics.Orchestrator) *Engine {
	return &Engine{
		UUID:         uuid.NewString(),
		Name:         "journal-engine",
		StartTime:    time.Now(),
		logger:       logger.Named("engine"),
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
	}
}

// Run starts the recompute loop and blocks until the context is done.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.Journal.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting metrics recompute loop", zap.Duration("interval", interval))

	// First snapshot right away instead of waiting a full interval.
	if err := e.Recompute(ctx); err != nil {
		e.logger.Error("Initial recompute failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping journal engine...")
			return
		case <-ticker.C:
			if err := e.Recompute(ctx); err != nil {
				e.logger.Error("Recompute failed", zap.Error(err))
			}
		}
	}
}

// Latest returns the most recently computed portfolio snapshot, or nil
// before the first recompute finishes.
func (e *Engine) Latest() *metrics.PortfolioMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Recompute runs one full metrics cycle.
func (e *Engine) Recompute(ctx context.Context) error {
	userID := e.cfg.Journal.UserID

	trades, err := e.store.ListTrades(ctx, userID)
	if err != nil {
		return err
	}

	pm, err := e.orchestrator.ComputeMetrics(ctx, userID, trades, e.cfg.Journal.StartingCapital)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.latest = pm
	e.mu.Unlock()

	e.logger.Info("Portfolio metrics recomputed",
		zap.Int("trades", len(pm.Trades)),
		zap.Float64("current_capital", pm.CurrentCapital),
		zap.String("quote_status", pm.QuoteStatus),
	)

	if e.cfg.Journal.PersistDerived {
		e.persistDerived(ctx, pm)
	}
	e.appendSnapshot(ctx, userID, pm)

	return nil
}

// persistDerived writes the recomputed per-trade fields back to the
// store. Write failures are logged and skipped, never retried inline: a
// stale derived column fixes itself on the next tick.
func (e *Engine) persistDerived(ctx context.Context, pm *metrics.PortfolioMetrics) {
	for _, tm := range pm.Trades {
		if tm.Status != models.StatusOpen {
			continue
		}
		err := e.store.UpdateTradeFields(ctx, tm.TradeID, map[string]interface{}{
			"last_price":     tm.LastPrice,
			"market_value":   tm.MarketValue,
			"unrealized_pnl": tm.UnrealizedPnL,
		})
		if err != nil {
			e.logger.Warn("Failed to persist derived trade fields",
				zap.Uint("trade_id", tm.TradeID),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) appendSnapshot(ctx context.Context, userID string, pm *metrics.PortfolioMetrics) {
	snap := models.CapitalSnapshot{
		UserID:        userID,
		Day:           pm.ComputedAt,
		Capital:       pm.CurrentCapital,
		HighWaterMark: pm.Drawdown.HighWaterMark,
		Drawdown:      pm.Drawdown.CurrentDrawdown,
		MaxDrawdown:   pm.Drawdown.MaxDrawdown,
		MaxRunup:      pm.Drawdown.MaxRunup,
		RealizedPnL:   pm.RealizedPnL,
		UnrealizedPnL: pm.UnrealizedPnL,
		TradeCount:    len(pm.Trades),
	}
	if err := e.store.AppendSnapshot(ctx, snap); err != nil {
		e.logger.Warn("Failed to append capital snapshot", zap.Error(err))
	}
}
