package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the journal's persistence layer: trades with their action
// logs, per-user settings, and the append-only capital ledger. Trade
// records are normalized here, at the store boundary, so downstream
// metric code never sees a half-formed record.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a store over an open database handle.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// ListTrades returns all of a user's trades with their action logs,
// oldest first.
func (s *Store) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc") }).
		Where("user_id = ?", userID).
		Order("opened_at asc").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// RecordAction applies one fill to the user's open trade in ticker,
// creating the trade when the fill is its first BUY. capitalAtEntry is
// only used at creation, to fix the initial position risk.
func (s *Store) RecordAction(ctx context.Context, userID, ticker, direction, assetType string, a models.TradeAction, openRisk, capitalAtEntry float64) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).
		Preload("Actions").
		Where("user_id = ? AND ticker = ? AND status = ?", userID, ticker, models.StatusOpen).
		First(&trade).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		created, nerr := models.NewTrade(userID, ticker, direction, assetType, a, openRisk, capitalAtEntry)
		if nerr != nil {
			return nil, nerr
		}
		if cerr := s.db.WithContext(ctx).Create(created).Error; cerr != nil {
			return nil, fmt.Errorf("failed to create trade for %s: %w", ticker, cerr)
		}
		s.logger.Info("Opened trade",
			zap.String("ticker", ticker),
			zap.String("direction", direction),
			zap.Float64("shares", a.Shares),
			zap.Float64("price", a.Price),
		)
		return created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up open trade for %s: %w", ticker, err)
	}

	if aerr := trade.ApplyAction(a); aerr != nil {
		return nil, aerr
	}
	if serr := s.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(&trade).Error; serr != nil {
		return nil, fmt.Errorf("failed to save trade %d: %w", trade.ID, serr)
	}
	return &trade, nil
}

// UpdateTradeFields persists recomputed derived fields on one trade.
// Callers treat failures as non-fatal; this only reports them.
func (s *Store) UpdateTradeFields(ctx context.Context, tradeID uint, fields map[string]interface{}) error {
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", tradeID).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to update trade %d: %w", tradeID, err)
	}
	return nil
}

// GetStartingCash returns the user's configured starting cash, or 0 when
// no setting row exists.
func (s *Store) GetStartingCash(ctx context.Context, userID string) (float64, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read settings: %w", err)
	}
	return setting.StartingCash, nil
}

// SetStartingCash stores the user's starting cash, creating the setting
// row on first use.
func (s *Store) SetStartingCash(ctx context.Context, userID string, cash float64) error {
	setting := models.Setting{UserID: userID}
	err := s.db.WithContext(ctx).
		Where(models.Setting{UserID: userID}).
		Assign(models.Setting{StartingCash: cash}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// AppendSnapshot records one capital measurement. Within one trading day
// the same row is updated: the day high/low widen and the closing values
// overwrite, so the ledger ends up with one finalized row per day.
func (s *Store) AppendSnapshot(ctx context.Context, snap models.CapitalSnapshot) error {
	day := snap.Day.Truncate(24 * time.Hour)
	snap.Day = day

	var existing models.CapitalSnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", snap.UserID, day).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if snap.DayHigh == 0 {
			snap.DayHigh = snap.Capital
		}
		if snap.DayLow == 0 {
			snap.DayLow = snap.Capital
		}
		if cerr := s.db.WithContext(ctx).Create(&snap).Error; cerr != nil {
			return fmt.Errorf("failed to append capital snapshot: %w", cerr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up capital snapshot: %w", err)
	}

	if snap.Capital > existing.DayHigh {
		existing.DayHigh = snap.Capital
	}
	if snap.Capital < existing.DayLow {
		existing.DayLow = snap.Capital
	}
	existing.Capital = snap.Capital
	existing.HighWaterMark = snap.HighWaterMark
	existing.Drawdown = snap.Drawdown
	existing.MaxDrawdown = snap.MaxDrawdown
	existing.MaxRunup = snap.MaxRunup
	existing.RealizedPnL = snap.RealizedPnL
	existing.UnrealizedPnL = snap.UnrealizedPnL
	existing.TradeCount = snap.TradeCount

	if uerr := s.db.WithContext(ctx).Save(&existing).Error; uerr != nil {
		return fmt.Errorf("failed to update capital snapshot: %w", uerr)
	}
	return nil
}

// ListSnapshots returns the user's capital ledger, oldest day first.
func (s *Store) ListSnapshots(ctx context.Context, userID string) ([]models.CapitalSnapshot, error) {
	var snapshots []models.CapitalSnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day asc").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list capital snapshots: %w", err)
	}
	return snapshots, nil
}
