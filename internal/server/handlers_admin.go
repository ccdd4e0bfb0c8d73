package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bobmcallan/alphatalk/internal/services/analysis"
)

// cleanupRequest is the optional POST /api/admin/cleanup body.
type cleanupRequest struct {
	MaxAge string `json:"max_age"`
}

// handleAdminStats handles GET /api/admin/stats.
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.app.AnalysisService.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute stats")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// handleAdminCleanup handles POST /api/admin/cleanup, running a retention
// pass on demand. An optional body overrides the configured age threshold:
// {"max_age": "72h"}.
func (s *Server) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var maxAge time.Duration
	if r.ContentLength > 0 {
		var req cleanupRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.MaxAge != "" {
			parsed, err := time.ParseDuration(req.MaxAge)
			if err != nil || parsed <= 0 {
				WriteError(w, http.StatusBadRequest, "max_age must be a positive duration (e.g. \"72h\")")
				return
			}
			maxAge = parsed
		}
	}

	result, err := s.app.AnalysisService.Cleanup(r.Context(), maxAge)
	if err != nil {
		s.logger.Error().Err(err).Msg("Cleanup failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":  result.Deleted,
		"max_age":  result.MaxAge.String(),
		"duration": result.Duration.String(),
	})
}

// handleAdminTickerUsers handles GET /api/admin/tickers/{ticker}/users,
// the reverse lookup from ticker to watching users.
func (s *Server) handleAdminTickerUsers(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	users, err := s.app.WatchlistService.UsersWatching(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidTicker) {
			WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_ticker")
			return
		}
		s.logger.Error().Err(err).Str("ticker", ticker).Msg("Reverse lookup failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if users == nil {
		users = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"users":  users,
		"count":  len(users),
	})
}
