// Package common provides shared utilities for AlphaTalk
package common

import "time"

// Freshness TTLs for cached data
const (
	FreshnessAnalysis = 1 * time.Hour      // analysis documents; a run refreshes all three categories together
	FreshnessEODBars  = 1 * time.Hour      // daily candles feeding the quant provider
	MaxAnalysisAge    = 7 * 24 * time.Hour // cleanup threshold for old documents
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
