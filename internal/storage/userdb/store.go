// Package userdb implements UserStore using BadgerHold.
// Users are stored as single records embedding their watchlist, keyed by
// user ID, alongside system key-value entries.
package userdb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

// systemKV is a system-level key-value entry.
type systemKV struct {
	Key      string
	Value    string
	DateTime time.Time
}

// Store implements interfaces.UserStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger

	// mu serializes watchlist read-modify-write cycles so concurrent
	// mutations for the same user never lose updates.
	mu sync.Mutex
}

// NewStore creates a new UserStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create userdb path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open userdb at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("UserDB opened")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.Get(userID, &user); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("user '%s' not found: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}
	return &user, nil
}

func (s *Store) AddTicker(_ context.Context, userID, ticker string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var user models.User
	if err := s.db.Get(userID, &user); err != nil {
		if err != badgerhold.ErrNotFound {
			return false, fmt.Errorf("failed to get user '%s': %w", userID, err)
		}
		// First add creates the user
		user = models.User{UserID: userID, CreatedAt: now}
	}

	if user.HasTicker(ticker) {
		return false, nil
	}

	user.Tickers = append(user.Tickers, ticker)
	user.UpdatedAt = now

	if err := s.db.Upsert(userID, user); err != nil {
		return false, fmt.Errorf("failed to save user '%s': %w", userID, err)
	}

	s.logger.Debug().Str("user_id", userID).Str("ticker", ticker).Msg("Ticker added to watchlist")
	return true, nil
}

func (s *Store) RemoveTicker(_ context.Context, userID, ticker string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user models.User
	if err := s.db.Get(userID, &user); err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}

	if !user.HasTicker(ticker) {
		return false, nil
	}

	tickers := make([]string, 0, len(user.Tickers)-1)
	for _, t := range user.Tickers {
		if t != ticker {
			tickers = append(tickers, t)
		}
	}
	user.Tickers = tickers
	user.UpdatedAt = time.Now()

	if err := s.db.Upsert(userID, user); err != nil {
		return false, fmt.Errorf("failed to save user '%s': %w", userID, err)
	}

	s.logger.Debug().Str("user_id", userID).Str("ticker", ticker).Msg("Ticker removed from watchlist")
	return true, nil
}

func (s *Store) ListTickers(_ context.Context, userID string) ([]string, error) {
	var user models.User
	if err := s.db.Get(userID, &user); err != nil {
		if err == badgerhold.ErrNotFound {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}
	if user.Tickers == nil {
		return []string{}, nil
	}
	return user.Tickers, nil
}

func (s *Store) ListUsersByTicker(_ context.Context, ticker string) ([]string, error) {
	var users []models.User
	if err := s.db.Find(&users, nil); err != nil {
		return nil, fmt.Errorf("failed to list users for '%s': %w", ticker, err)
	}

	ids := make([]string, 0)
	for _, u := range users {
		if u.HasTicker(ticker) {
			ids = append(ids, u.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	var users []models.User
	if err := s.db.Find(&users, nil); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return len(users), nil
}

// --- System key-value ---

func (s *Store) GetSystemKV(_ context.Context, key string) (string, error) {
	var kv systemKV
	if err := s.db.Get(key, &kv); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get system kv '%s': %w", key, err)
	}
	return kv.Value, nil
}

func (s *Store) SetSystemKV(_ context.Context, key, value string) error {
	kv := systemKV{Key: key, Value: value, DateTime: time.Now()}
	if err := s.db.Upsert(key, kv); err != nil {
		return fmt.Errorf("failed to set system kv '%s': %w", key, err)
	}
	return nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check
var _ interfaces.UserStore = (*Store)(nil)
