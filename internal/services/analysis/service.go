// Package analysis coordinates analysis runs, staleness checks, and
// retention for the result cache.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

var (
	// ErrInvalidTicker is returned when a ticker fails normalization.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrRunInProgress is returned by TryRunAnalysis when a run for the
	// ticker is already in flight.
	ErrRunInProgress = errors.New("analysis run already in progress")

	// ErrPersistenceFailed wraps storage errors after a run completed. The
	// document is still returned to the caller alongside this error.
	ErrPersistenceFailed = errors.New("failed to persist analysis")
)

// Compile-time interface check
var _ interfaces.AnalysisService = (*Service)(nil)

// Service implements AnalysisService.
//
// Per-ticker run coordination uses singleflight: concurrent requests for the
// same ticker share one run, and a run keeps going even when the caller that
// started it goes away.
type Service struct {
	storage     interfaces.StorageManager
	providers   []interfaces.AnalysisProvider
	synthesizer interfaces.Synthesizer
	logger      *common.Logger

	ttl             time.Duration
	providerTimeout time.Duration
	cleanupMaxAge   time.Duration

	group singleflight.Group

	mu      sync.Mutex
	running map[string]struct{}
}

// NewService creates a new analysis service
func NewService(storage interfaces.StorageManager, providers []interfaces.AnalysisProvider, synthesizer interfaces.Synthesizer, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage:         storage,
		providers:       providers,
		synthesizer:     synthesizer,
		logger:          logger,
		ttl:             config.Analysis.GetTTL(),
		providerTimeout: config.Analysis.GetProviderTimeout(),
		cleanupMaxAge:   config.Analysis.GetCleanupMaxAge(),
		running:         make(map[string]struct{}),
	}
}

// GetOrRefresh returns the latest document when it is fresh, otherwise runs
// a new analysis. Storage read failures degrade to "never analyzed" so a
// corrupt cache entry cannot make a ticker permanently unanalyzable.
func (s *Service) GetOrRefresh(ctx context.Context, rawTicker string, opts interfaces.RefreshOptions) (*models.AnalysisDocument, error) {
	ticker, err := NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}

	if !opts.Force {
		latest, err := s.storage.AnalysisStore().GetLatest(ctx, ticker)
		switch {
		case err == nil:
			if common.IsFresh(latest.Timestamp, s.ttl) {
				s.logger.Debug().Str("ticker", ticker).Time("timestamp", latest.Timestamp).Msg("Serving fresh cached analysis")
				return latest, nil
			}
		case errors.Is(err, models.ErrNotFound):
			// Never analyzed
		default:
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Cache read failed, running fresh analysis")
		}
	}

	return s.runShared(ctx, ticker)
}

// RunAnalysis always runs a fresh analysis, joining an in-flight run for the
// same ticker if one exists.
func (s *Service) RunAnalysis(ctx context.Context, rawTicker string) (*models.AnalysisDocument, error) {
	ticker, err := NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.runShared(ctx, ticker)
}

// TryRunAnalysis starts a run only when none is in flight for the ticker.
func (s *Service) TryRunAnalysis(ctx context.Context, rawTicker string) (*models.AnalysisDocument, error) {
	ticker, err := NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, inFlight := s.running[ticker]
	s.mu.Unlock()
	if inFlight {
		return nil, fmt.Errorf("%w for '%s'", ErrRunInProgress, ticker)
	}

	return s.runShared(ctx, ticker)
}

// History returns stored documents for a ticker, newest first.
func (s *Service) History(ctx context.Context, rawTicker string, limit int) ([]*models.AnalysisDocument, error) {
	ticker, err := NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.storage.AnalysisStore().History(ctx, ticker, limit)
}

// Cleanup deletes documents past the retention window, keeping the latest
// document per ticker. maxAge <= 0 falls back to the configured window.
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration) (*interfaces.CleanupResult, error) {
	if maxAge <= 0 {
		maxAge = s.cleanupMaxAge
	}

	start := time.Now()
	deleted, err := s.storage.AnalysisStore().DeleteOlderThan(ctx, maxAge)
	if err != nil {
		return nil, fmt.Errorf("cleanup failed: %w", err)
	}

	result := &interfaces.CleanupResult{
		Deleted:  deleted,
		MaxAge:   maxAge,
		Duration: time.Since(start),
	}
	s.logger.Info().Int("deleted", deleted).Dur("duration", result.Duration).Msg("Analysis cleanup complete")
	return result, nil
}

// Stats reports document, ticker, and user counts.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	docs, err := s.storage.AnalysisStore().CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	tickers, err := s.storage.AnalysisStore().CountTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickers: %w", err)
	}
	users, err := s.storage.UserStore().CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return &models.Stats{
		TotalDocuments: docs,
		TotalTickers:   tickers,
		TotalUsers:     users,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// runShared deduplicates concurrent runs per ticker. The run itself is
// detached from the caller's context: a caller that gives up waiting
// abandons the shared result, but the run completes and persists.
func (s *Service) runShared(ctx context.Context, ticker string) (*models.AnalysisDocument, error) {
	runCtx := context.WithoutCancel(ctx)

	ch := s.group.DoChan(ticker, func() (interface{}, error) {
		s.mu.Lock()
		s.running[ticker] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.running, ticker)
			s.mu.Unlock()
		}()

		return s.execute(runCtx, ticker)
	})

	select {
	case res := <-ch:
		doc, _ := res.Val.(*models.AnalysisDocument)
		if res.Err != nil {
			return doc, res.Err
		}
		return doc, nil
	case <-ctx.Done():
		s.logger.Debug().Str("ticker", ticker).Msg("Caller abandoned in-flight analysis")
		return nil, ctx.Err()
	}
}

// execute runs all providers concurrently, synthesizes the final
// recommendation, and persists the document. Provider failures settle their
// slot as failed; the run as a whole still completes and is stored.
func (s *Service) execute(ctx context.Context, ticker string) (*models.AnalysisDocument, error) {
	start := time.Now()
	doc := models.NewAnalysisDocument(ticker)
	doc.Timestamp = start.UTC()

	s.logger.Info().Str("ticker", ticker).Msg("Starting analysis run")

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, provider := range s.providers {
		wg.Add(1)
		go func(p interfaces.AnalysisProvider) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
			defer cancel()

			content, err := p.Analyze(pctx, ticker)

			mu.Lock()
			defer mu.Unlock()
			slot := doc.Slot(p.Category())
			if err != nil {
				s.logger.Warn().Err(err).Str("ticker", ticker).Str("category", string(p.Category())).Msg("Analysis provider failed")
				*slot = models.FailedSlot(err.Error())
				return
			}
			*slot = models.SucceededSlot(content)
		}(provider)
	}
	wg.Wait()

	// Categories with no configured provider still settle: a started run
	// never leaves a slot pending.
	for _, c := range models.Categories {
		if !doc.Slot(c).Terminal() {
			*doc.Slot(c) = models.FailedSlot("no provider configured")
		}
	}

	s.synthesize(ctx, doc)

	s.logger.Info().
		Str("ticker", ticker).
		Int("succeeded", len(doc.Succeeded())).
		Dur("duration", time.Since(start)).
		Msg("Analysis run complete")

	if err := s.storage.AnalysisStore().Save(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to persist analysis")
		return doc, fmt.Errorf("%w for '%s': %s", ErrPersistenceFailed, ticker, err)
	}

	return doc, nil
}

// synthesize settles the final recommendation slot. The synthesizer sees
// partial results so the final report can weigh what is missing, but when
// zero categories succeeded there is nothing to synthesize from and the
// final slot fails without an LLM call.
func (s *Service) synthesize(ctx context.Context, doc *models.AnalysisDocument) {
	if s.synthesizer == nil {
		doc.Final = models.FailedSlot("no synthesizer configured")
		return
	}
	if len(doc.Succeeded()) == 0 {
		doc.Final = models.FailedSlot("no analyses succeeded")
		return
	}

	sctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	final, err := s.synthesizer.Synthesize(sctx, doc)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", doc.Ticker).Msg("Synthesis failed")
		doc.Final = models.FailedSlot(err.Error())
		return
	}
	doc.Final = models.SucceededSlot(final)
}
