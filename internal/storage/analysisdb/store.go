// Package analysisdb implements AnalysisStore using BadgerHold.
// Documents are stored append-only under a ticker+timestamp composite key,
// with a per-ticker latest entry maintained alongside each write.
package analysisdb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

// keySep is the composite key separator. Using a null byte prevents
// collisions with characters that may appear in tickers.
const keySep = "\x00"

// latestEntry is the per-ticker pointer to the newest document.
type latestEntry struct {
	Ticker string
	Doc    models.AnalysisDocument
}

// Store implements interfaces.AnalysisStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new AnalysisStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create analysisdb path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open analysisdb at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("AnalysisDB opened")
	return &Store{db: db, logger: logger}, nil
}

// docKey builds the storage key: ticker + \x00 + RFC3339Nano timestamp
func docKey(ticker string, ts time.Time) string {
	return ticker + keySep + ts.UTC().Format(time.RFC3339Nano)
}

// Save writes the document and its latest pointer in one transaction,
// so a reader never sees one without the other.
func (s *Store) Save(_ context.Context, doc *models.AnalysisDocument) error {
	key := docKey(doc.Ticker, doc.Timestamp)
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		if err := s.db.TxUpsert(tx, key, *doc); err != nil {
			return err
		}
		// Only advance the latest pointer; out-of-order saves keep history intact
		var latest latestEntry
		if err := s.db.TxGet(tx, doc.Ticker, &latest); err == nil && latest.Doc.Timestamp.After(doc.Timestamp) {
			return nil
		}
		return s.db.TxUpsert(tx, doc.Ticker, latestEntry{Ticker: doc.Ticker, Doc: *doc})
	})
	if err != nil {
		return fmt.Errorf("failed to save analysis for '%s': %w", doc.Ticker, err)
	}

	s.logger.Debug().Str("ticker", doc.Ticker).Time("timestamp", doc.Timestamp).Msg("Analysis saved")
	return nil
}

func (s *Store) GetLatest(_ context.Context, ticker string) (*models.AnalysisDocument, error) {
	var latest latestEntry
	if err := s.db.Get(ticker, &latest); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("no analysis for '%s': %w", ticker, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest analysis for '%s': %w", ticker, err)
	}
	doc := latest.Doc
	return &doc, nil
}

func (s *Store) History(_ context.Context, ticker string, limit int) ([]*models.AnalysisDocument, error) {
	var all []models.AnalysisDocument
	if err := s.db.Find(&all, badgerhold.Where("Ticker").Eq(ticker)); err != nil {
		return nil, fmt.Errorf("failed to list analyses for '%s': %w", ticker, err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	result := make([]*models.AnalysisDocument, len(all))
	for i := range all {
		doc := all[i]
		result[i] = &doc
	}
	return result, nil
}

func (s *Store) DeleteOlderThan(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	var all []models.AnalysisDocument
	if err := s.db.Find(&all, nil); err != nil {
		return 0, fmt.Errorf("failed to list analyses for cleanup: %w", err)
	}

	// Latest document per ticker is always retained
	newest := make(map[string]time.Time)
	for _, doc := range all {
		if doc.Timestamp.After(newest[doc.Ticker]) {
			newest[doc.Ticker] = doc.Timestamp
		}
	}

	count := 0
	for _, doc := range all {
		if !doc.Timestamp.Before(cutoff) {
			continue
		}
		if doc.Timestamp.Equal(newest[doc.Ticker]) {
			continue
		}
		if err := s.db.Delete(docKey(doc.Ticker, doc.Timestamp), models.AnalysisDocument{}); err != nil {
			return count, fmt.Errorf("failed to delete analysis for '%s': %w", doc.Ticker, err)
		}
		count++
	}

	s.logger.Debug().Int("deleted", count).Time("cutoff", cutoff).Msg("Analysis cleanup pass")
	return count, nil
}

func (s *Store) CountDocuments(_ context.Context) (int, error) {
	var all []models.AnalysisDocument
	if err := s.db.Find(&all, nil); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return len(all), nil
}

func (s *Store) CountTickers(_ context.Context) (int, error) {
	var entries []latestEntry
	if err := s.db.Find(&entries, nil); err != nil {
		return 0, fmt.Errorf("failed to count tickers: %w", err)
	}
	return len(entries), nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check
var _ interfaces.AnalysisStore = (*Store)(nil)
