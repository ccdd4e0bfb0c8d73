// Package interfaces defines service contracts for AlphaTalk
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/alphatalk/internal/models"
)

// StorageManager coordinates the storage areas.
type StorageManager interface {
	AnalysisStore() AnalysisStore
	UserStore() UserStore

	// Ping verifies storage connectivity (used by the health endpoint).
	Ping(ctx context.Context) error

	Close() error
}

// AnalysisStore persists analysis documents as append-only history with a
// latest-per-ticker index maintained alongside each write.
type AnalysisStore interface {
	// Save appends a new document and updates the ticker's latest index.
	Save(ctx context.Context, doc *models.AnalysisDocument) error

	// GetLatest returns the most recent document for a ticker.
	// Returns an error wrapping models.ErrNotFound when no document exists.
	GetLatest(ctx context.Context, ticker string) (*models.AnalysisDocument, error)

	// History returns stored documents for a ticker, newest first.
	// limit <= 0 means no limit.
	History(ctx context.Context, ticker string, limit int) ([]*models.AnalysisDocument, error)

	// DeleteOlderThan removes documents older than maxAge, always preserving
	// the most recent document per ticker. Returns the number deleted.
	DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int, error)

	// CountDocuments returns the total number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// CountTickers returns the number of tickers with at least one document.
	CountTickers(ctx context.Context) (int, error)

	Close() error
}

// UserStore persists users with embedded watchlists plus system-level KV.
// Ticker set mutations are atomic per user.
type UserStore interface {
	// GetUser returns the user record.
	// Returns an error wrapping models.ErrNotFound for unknown users.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// AddTicker adds a ticker to the user's set, creating the user on first
	// add. Returns false when the ticker was already present.
	AddTicker(ctx context.Context, userID, ticker string) (bool, error)

	// RemoveTicker removes a ticker from the user's set. Removing an absent
	// ticker is a no-op returning false.
	RemoveTicker(ctx context.Context, userID, ticker string) (bool, error)

	// ListTickers returns the user's watched tickers. Unknown users get an
	// empty list, not an error.
	ListTickers(ctx context.Context, userID string) ([]string, error)

	// ListUsersByTicker returns the IDs of users watching the ticker.
	ListUsersByTicker(ctx context.Context, ticker string) ([]string, error)

	// CountUsers returns the total number of user records.
	CountUsers(ctx context.Context) (int, error)

	// System key-value (runtime settings, API keys)
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error

	Close() error
}
