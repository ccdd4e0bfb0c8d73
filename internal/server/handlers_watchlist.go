package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/alphatalk/internal/models"
	"github.com/bobmcallan/alphatalk/internal/services/analysis"
)

// watchlistResponse is the standard watchlist payload.
type watchlistResponse struct {
	UserID  string   `json:"user_id"`
	Tickers []string `json:"tickers"`
}

// addTickerRequest is the POST /api/users/{id}/watchlist body.
type addTickerRequest struct {
	Ticker string `json:"ticker"`
}

// handleUserGet handles GET /api/users/{id}.
func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request, userID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	user, err := s.app.WatchlistService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteErrorWithCode(w, http.StatusNotFound, "User not found: "+userID, "not_found")
			return
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get user")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

// handleWatchlist handles GET and POST /api/users/{id}/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request, userID string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		tickers, err := s.app.WatchlistService.ListTickers(ctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list watchlist")
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Tickers: tickers})

	case http.MethodPost:
		var req addTickerRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		tickers, err := s.app.WatchlistService.AddTicker(ctx, userID, req.Ticker)
		if err != nil {
			s.writeWatchlistError(w, userID, err)
			return
		}
		WriteJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Tickers: tickers})
	}
}

// handleWatchlistTicker handles DELETE /api/users/{id}/watchlist/{ticker}.
func (s *Server) handleWatchlistTicker(w http.ResponseWriter, r *http.Request, userID, ticker string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	tickers, err := s.app.WatchlistService.RemoveTicker(r.Context(), userID, ticker)
	if err != nil {
		s.writeWatchlistError(w, userID, err)
		return
	}
	WriteJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Tickers: tickers})
}

func (s *Server) writeWatchlistError(w http.ResponseWriter, userID string, err error) {
	if errors.Is(err, analysis.ErrInvalidTicker) {
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_ticker")
		return
	}
	s.logger.Error().Err(err).Str("user_id", userID).Msg("Watchlist request failed")
	WriteError(w, http.StatusInternalServerError, err.Error())
}
