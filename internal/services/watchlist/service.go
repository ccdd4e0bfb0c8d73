// Package watchlist provides per-user watchlist management
package watchlist

import (
	"context"
	"fmt"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
	"github.com/bobmcallan/alphatalk/internal/services/analysis"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	storage  interfaces.StorageManager
	analysis interfaces.AnalysisService
	logger   *common.Logger
}

// NewService creates a new watchlist service.
// analysisService may be nil, disabling background analysis on add.
func NewService(storage interfaces.StorageManager, analysisService interfaces.AnalysisService, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		analysis: analysisService,
		logger:   logger,
	}
}

// AddTicker adds a ticker to the user's watchlist. The first add of a ticker
// kicks off a background analysis run so the result is warm by the time the
// user asks for it; the add itself never fails on analysis errors.
func (s *Service) AddTicker(ctx context.Context, userID, rawTicker string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	ticker, err := analysis.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}

	added, err := s.storage.UserStore().AddTicker(ctx, userID, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to add ticker: %w", err)
	}

	if added {
		s.logger.Info().Str("user_id", userID).Str("ticker", ticker).Msg("Ticker added to watchlist")
		s.triggerAnalysis(ctx, ticker)
	}

	return s.storage.UserStore().ListTickers(ctx, userID)
}

// RemoveTicker removes a ticker from the user's watchlist. Removing an
// absent ticker is a no-op.
func (s *Service) RemoveTicker(ctx context.Context, userID, rawTicker string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	ticker, err := analysis.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}

	removed, err := s.storage.UserStore().RemoveTicker(ctx, userID, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to remove ticker: %w", err)
	}
	if removed {
		s.logger.Info().Str("user_id", userID).Str("ticker", ticker).Msg("Ticker removed from watchlist")
	}

	return s.storage.UserStore().ListTickers(ctx, userID)
}

// ListTickers returns the user's watched tickers.
func (s *Service) ListTickers(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.storage.UserStore().ListTickers(ctx, userID)
}

// GetUser returns the full user record.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.storage.UserStore().GetUser(ctx, userID)
}

// UsersWatching returns the IDs of users watching a ticker.
func (s *Service) UsersWatching(ctx context.Context, rawTicker string) ([]string, error) {
	ticker, err := analysis.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.storage.UserStore().ListUsersByTicker(ctx, ticker)
}

// triggerAnalysis starts a background warm-up run. Failures are logged only;
// the watchlist mutation has already committed.
func (s *Service) triggerAnalysis(ctx context.Context, ticker string) {
	if s.analysis == nil {
		return
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.analysis.GetOrRefresh(runCtx, ticker, interfaces.RefreshOptions{}); err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Watchlist analysis warm-up failed")
		}
	}()
}
