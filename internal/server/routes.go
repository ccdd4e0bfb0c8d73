package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/alphatalk/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Analysis
	mux.HandleFunc("/api/analysis/", s.routeAnalysis)

	// Users and watchlists
	mux.HandleFunc("/api/users/", s.routeUsers)

	// Admin
	mux.HandleFunc("/api/admin/stats", s.handleAdminStats)
	mux.HandleFunc("/api/admin/cleanup", s.handleAdminCleanup)
	mux.HandleFunc("/api/admin/tickers/", s.routeAdminTickers)
}

// routeAnalysis dispatches /api/analysis/{ticker}[/subpath] to the
// appropriate handler.
func (s *Server) routeAnalysis(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/analysis/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}

	parts := strings.SplitN(path, "/", 2)
	ticker := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleAnalysis(w, r, ticker)
	case "history":
		s.handleAnalysisHistory(w, r, ticker)
	case "quant", "fundamental", "news":
		s.handleAnalysisCategory(w, r, ticker, subpath)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeUsers dispatches /api/users/{id}[/watchlist[/{ticker}]] to the
// appropriate handler.
func (s *Server) routeUsers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required in path")
		return
	}

	parts := strings.SplitN(path, "/", 3)
	userID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleUserGet(w, r, userID)
	case parts[1] == "watchlist" && len(parts) == 2:
		s.handleWatchlist(w, r, userID)
	case parts[1] == "watchlist" && len(parts) == 3:
		s.handleWatchlistTicker(w, r, userID, parts[2])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeAdminTickers dispatches /api/admin/tickers/{ticker}/users.
func (s *Server) routeAdminTickers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/admin/tickers/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 2 && parts[1] == "users" {
		s.handleAdminTickerUsers(w, r, parts[0])
		return
	}
	WriteError(w, http.StatusNotFound, "Not found")
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	if err := s.app.Storage.Ping(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Health check storage ping failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	config := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":      config.Environment,
		"analysis_ttl":     config.Analysis.GetTTL().String(),
		"provider_timeout": config.Analysis.GetProviderTimeout().String(),
		"cleanup_max_age":  config.Analysis.GetCleanupMaxAge().String(),
		"cleanup_schedule": config.Analysis.CleanupSchedule,
		"report_language":  config.Analysis.ReportLanguage,
		"gemini_model":     config.Clients.Gemini.Model,
		"eodhd_enabled":    s.app.MarketClient != nil,
		"gemini_enabled":   s.app.LLMClient != nil,
	})
}
