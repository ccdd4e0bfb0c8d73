package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
	"github.com/bobmcallan/alphatalk/internal/services/analysis"
)

// handleAnalysis handles GET and POST /api/analysis/{ticker}.
// GET serves the cached document, running a new analysis when stale or
// missing; ?force=true always runs. POST always runs; ?wait=false fails
// fast with 409 when a run is already in flight.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var doc *models.AnalysisDocument
	var err error

	switch r.Method {
	case http.MethodGet:
		force := r.URL.Query().Get("force") == "true"
		doc, err = s.app.AnalysisService.GetOrRefresh(ctx, ticker, interfaces.RefreshOptions{Force: force})
	case http.MethodPost:
		if r.URL.Query().Get("wait") == "false" {
			doc, err = s.app.AnalysisService.TryRunAnalysis(ctx, ticker)
		} else {
			doc, err = s.app.AnalysisService.RunAnalysis(ctx, ticker)
		}
	}

	if err != nil {
		s.writeAnalysisError(w, doc, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// handleAnalysisCategory handles GET /api/analysis/{ticker}/{category},
// serving the single-category projection of the document.
func (s *Server) handleAnalysisCategory(w http.ResponseWriter, r *http.Request, ticker, categoryName string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	category, ok := models.ParseCategory(categoryName)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Unknown analysis category: "+categoryName)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	doc, err := s.app.AnalysisService.GetOrRefresh(r.Context(), ticker, interfaces.RefreshOptions{Force: force})
	if err != nil && doc == nil {
		s.writeAnalysisError(w, nil, err)
		return
	}
	if err != nil {
		s.logPersistenceFailure(doc.Ticker, err)
	}

	WriteJSON(w, http.StatusOK, doc.Project(category))
}

// handleAnalysisHistory handles GET /api/analysis/{ticker}/history.
func (s *Server) handleAnalysisHistory(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	docs, err := s.app.AnalysisService.History(r.Context(), ticker, limit)
	if err != nil {
		s.writeAnalysisError(w, nil, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(docs),
		"analyses": docs,
	})
}

// writeAnalysisError maps service errors to HTTP responses. A completed run
// that failed only to persist is still served to the caller.
func (s *Server) writeAnalysisError(w http.ResponseWriter, doc *models.AnalysisDocument, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidTicker):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_ticker")
	case errors.Is(err, analysis.ErrRunInProgress):
		WriteErrorWithCode(w, http.StatusConflict, err.Error(), "run_in_progress")
	case errors.Is(err, models.ErrNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, analysis.ErrPersistenceFailed) && doc != nil:
		s.logPersistenceFailure(doc.Ticker, err)
		WriteJSON(w, http.StatusOK, doc)
	default:
		s.logger.Error().Err(err).Msg("Analysis request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) logPersistenceFailure(ticker string, err error) {
	s.logger.Error().Err(err).Str("ticker", ticker).Msg("Serving analysis that failed to persist")
}
