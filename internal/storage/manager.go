// Package storage provides the top-level StorageManager that coordinates
// the 2 storage areas: analysisdb and userdb.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/storage/analysisdb"
	"github.com/bobmcallan/alphatalk/internal/storage/userdb"
)

// Manager implements interfaces.StorageManager using 2 storage areas.
type Manager struct {
	analysis *analysisdb.Store
	user     *userdb.Store
	logger   *common.Logger
}

// NewManager creates a new StorageManager with the 2 storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	analysisStore, err := analysisdb.NewStore(logger, config.Storage.Analysis.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis store: %w", err)
	}

	userStore, err := userdb.NewStore(logger, config.Storage.User.Path)
	if err != nil {
		analysisStore.Close()
		return nil, fmt.Errorf("failed to create user store: %w", err)
	}

	logger.Info().
		Str("analysis", config.Storage.Analysis.Path).
		Str("user", config.Storage.User.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		analysis: analysisStore,
		user:     userStore,
		logger:   logger,
	}, nil
}

func (m *Manager) AnalysisStore() interfaces.AnalysisStore {
	return m.analysis
}

func (m *Manager) UserStore() interfaces.UserStore {
	return m.user
}

// Ping verifies both storage areas answer a trivial read.
func (m *Manager) Ping(ctx context.Context) error {
	if _, err := m.analysis.CountTickers(ctx); err != nil {
		return fmt.Errorf("analysis store ping failed: %w", err)
	}
	if _, err := m.user.CountUsers(ctx); err != nil {
		return fmt.Errorf("user store ping failed: %w", err)
	}
	return nil
}

func (m *Manager) Close() error {
	var firstErr error
	if err := m.analysis.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.user.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
