package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/alphatalk/internal/models"
)

// RefreshOptions controls staleness evaluation in GetOrRefresh.
type RefreshOptions struct {
	// Force skips the freshness check and always runs a new analysis.
	Force bool
}

// CleanupResult reports the outcome of a retention pass.
type CleanupResult struct {
	Deleted  int           `json:"deleted"`
	MaxAge   time.Duration `json:"max_age"`
	Duration time.Duration `json:"duration"`
}

// AnalysisService coordinates analysis runs, staleness, and retention.
type AnalysisService interface {
	// GetOrRefresh returns the latest document for the ticker, running a new
	// analysis when none exists or the latest is stale. Concurrent callers
	// for the same ticker share a single run.
	GetOrRefresh(ctx context.Context, ticker string, opts RefreshOptions) (*models.AnalysisDocument, error)

	// RunAnalysis always executes a fresh run, joining an in-flight run for
	// the same ticker if one exists.
	RunAnalysis(ctx context.Context, ticker string) (*models.AnalysisDocument, error)

	// TryRunAnalysis starts a run only when no run is in flight for the
	// ticker, otherwise returns ErrRunInProgress without blocking.
	TryRunAnalysis(ctx context.Context, ticker string) (*models.AnalysisDocument, error)

	// History returns stored documents for a ticker, newest first.
	History(ctx context.Context, ticker string, limit int) ([]*models.AnalysisDocument, error)

	// Cleanup deletes documents older than maxAge, preserving the latest
	// document per ticker. maxAge <= 0 uses the configured retention window.
	Cleanup(ctx context.Context, maxAge time.Duration) (*CleanupResult, error)

	// Stats reports document, ticker, and user counts.
	Stats(ctx context.Context) (*models.Stats, error)
}

// WatchlistService manages per-user ticker sets and triggers background
// analysis for newly watched tickers.
type WatchlistService interface {
	// AddTicker adds a ticker to the user's watchlist and returns the
	// updated list. First-time adds trigger a background analysis run.
	AddTicker(ctx context.Context, userID, ticker string) ([]string, error)

	// RemoveTicker removes a ticker from the user's watchlist and returns
	// the updated list.
	RemoveTicker(ctx context.Context, userID, ticker string) ([]string, error)

	// ListTickers returns the user's watched tickers.
	ListTickers(ctx context.Context, userID string) ([]string, error)

	// GetUser returns the full user record.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// UsersWatching returns the IDs of users watching the ticker.
	UsersWatching(ctx context.Context, ticker string) ([]string, error)
}

// AnalysisProvider produces one category of analysis for a ticker.
type AnalysisProvider interface {
	Category() models.Category
	Analyze(ctx context.Context, ticker string) (string, error)
}

// Synthesizer combines per-category analyses into a final report.
type Synthesizer interface {
	Synthesize(ctx context.Context, doc *models.AnalysisDocument) (string, error)
}
