package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/alphatalk/internal/app"
	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
	"github.com/bobmcallan/alphatalk/internal/services/analysis"
)

// stubAnalysisService returns canned responses for handler tests.
type stubAnalysisService struct {
	doc     *models.AnalysisDocument
	docs    []*models.AnalysisDocument
	stats   *models.Stats
	cleanup *interfaces.CleanupResult
	err     error

	lastTicker string
	lastOpts   interfaces.RefreshOptions
	lastMaxAge time.Duration
	runCalls   int
	tryCalls   int
}

func (s *stubAnalysisService) GetOrRefresh(ctx context.Context, ticker string, opts interfaces.RefreshOptions) (*models.AnalysisDocument, error) {
	s.lastTicker = ticker
	s.lastOpts = opts
	return s.doc, s.err
}

func (s *stubAnalysisService) RunAnalysis(ctx context.Context, ticker string) (*models.AnalysisDocument, error) {
	s.lastTicker = ticker
	s.runCalls++
	return s.doc, s.err
}

func (s *stubAnalysisService) TryRunAnalysis(ctx context.Context, ticker string) (*models.AnalysisDocument, error) {
	s.lastTicker = ticker
	s.tryCalls++
	return s.doc, s.err
}

func (s *stubAnalysisService) History(ctx context.Context, ticker string, limit int) ([]*models.AnalysisDocument, error) {
	s.lastTicker = ticker
	return s.docs, s.err
}

func (s *stubAnalysisService) Cleanup(ctx context.Context, maxAge time.Duration) (*interfaces.CleanupResult, error) {
	s.lastMaxAge = maxAge
	return s.cleanup, s.err
}

func (s *stubAnalysisService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.stats, s.err
}

// stubWatchlistService returns canned responses for handler tests.
type stubWatchlistService struct {
	tickers []string
	users   []string
	user    *models.User
	err     error
}

func (s *stubWatchlistService) AddTicker(ctx context.Context, userID, ticker string) ([]string, error) {
	return s.tickers, s.err
}

func (s *stubWatchlistService) RemoveTicker(ctx context.Context, userID, ticker string) ([]string, error) {
	return s.tickers, s.err
}

func (s *stubWatchlistService) ListTickers(ctx context.Context, userID string) ([]string, error) {
	return s.tickers, s.err
}

func (s *stubWatchlistService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.user, s.err
}

func (s *stubWatchlistService) UsersWatching(ctx context.Context, ticker string) ([]string, error) {
	return s.users, s.err
}

// stubStorageManager only supports Ping for the health endpoint.
type stubStorageManager struct {
	pingErr error
}

func (s *stubStorageManager) AnalysisStore() interfaces.AnalysisStore { return nil }
func (s *stubStorageManager) UserStore() interfaces.UserStore         { return nil }
func (s *stubStorageManager) Ping(ctx context.Context) error          { return s.pingErr }
func (s *stubStorageManager) Close() error                            { return nil }

type testEnv struct {
	srv       *Server
	analysis  *stubAnalysisService
	watchlist *stubWatchlistService
	storage   *stubStorageManager
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger := common.NewSilentLogger()
	env := &testEnv{
		analysis:  &stubAnalysisService{},
		watchlist: &stubWatchlistService{},
		storage:   &stubStorageManager{},
	}
	a := &app.App{
		Config:           common.NewDefaultConfig(),
		Logger:           logger,
		Storage:          env.storage,
		AnalysisService:  env.analysis,
		WatchlistService: env.watchlist,
	}
	env.srv = &Server{app: a, logger: logger}
	return env
}

// do routes the request through the full mux so path dispatch is covered too.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	e.srv.registerRoutes(mux)
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func completedDoc(ticker string) *models.AnalysisDocument {
	doc := models.NewAnalysisDocument(ticker)
	doc.Timestamp = time.Now().UTC()
	doc.Quant = models.SucceededSlot("quant report")
	doc.Fundamental = models.SucceededSlot("fundamental report")
	doc.News = models.SucceededSlot("news report")
	doc.Final = models.SucceededSlot("final recommendation")
	return doc
}

func TestHandleHealth_OK(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	env := newTestServer(t)
	env.storage.pingErr = fmt.Errorf("badger closed")

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["status"] != "degraded" {
		t.Errorf("expected status 'degraded', got %q", resp["status"])
	}
}

func TestHandleVersion(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["version"] == "" {
		t.Error("expected non-empty version")
	}
}

func TestHandleConfig(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if resp["analysis_ttl"] != "1h0m0s" {
		t.Errorf("expected analysis_ttl '1h0m0s', got %v", resp["analysis_ttl"])
	}
	// No clients wired in the test app
	if resp["eodhd_enabled"] != false || resp["gemini_enabled"] != false {
		t.Errorf("expected clients disabled, got eodhd=%v gemini=%v", resp["eodhd_enabled"], resp["gemini_enabled"])
	}
}

func TestHandleAnalysis_Get(t *testing.T) {
	env := newTestServer(t)
	env.analysis.doc = completedDoc("AAPL")

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc models.AnalysisDocument
	decodeBody(t, rec, &doc)
	if doc.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %q", doc.Ticker)
	}
	if doc.Final.Content != "final recommendation" {
		t.Errorf("unexpected final slot: %+v", doc.Final)
	}
	if env.analysis.lastOpts.Force {
		t.Error("plain GET should not force a refresh")
	}
}

func TestHandleAnalysis_GetForce(t *testing.T) {
	env := newTestServer(t)
	env.analysis.doc = completedDoc("AAPL")

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL?force=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !env.analysis.lastOpts.Force {
		t.Error("expected force option to be set")
	}
}

func TestHandleAnalysis_PostRuns(t *testing.T) {
	env := newTestServer(t)
	env.analysis.doc = completedDoc("TSLA")

	rec := env.do(t, http.MethodPost, "/api/analysis/TSLA", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env.analysis.runCalls != 1 {
		t.Errorf("expected 1 RunAnalysis call, got %d", env.analysis.runCalls)
	}
	if env.analysis.tryCalls != 0 {
		t.Errorf("expected 0 TryRunAnalysis calls, got %d", env.analysis.tryCalls)
	}
}

func TestHandleAnalysis_PostNoWait(t *testing.T) {
	env := newTestServer(t)
	env.analysis.doc = completedDoc("TSLA")

	rec := env.do(t, http.MethodPost, "/api/analysis/TSLA?wait=false", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env.analysis.tryCalls != 1 {
		t.Errorf("expected 1 TryRunAnalysis call, got %d", env.analysis.tryCalls)
	}
}

func TestHandleAnalysis_InvalidTicker(t *testing.T) {
	env := newTestServer(t)
	env.analysis.err = fmt.Errorf("%w: 'no$good'", analysis.ErrInvalidTicker)

	rec := env.do(t, http.MethodGet, "/api/analysis/no$good", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != "invalid_ticker" {
		t.Errorf("expected code 'invalid_ticker', got %q", resp.Code)
	}
}

func TestHandleAnalysis_RunInProgress(t *testing.T) {
	env := newTestServer(t)
	env.analysis.err = fmt.Errorf("%w for 'AAPL'", analysis.ErrRunInProgress)

	rec := env.do(t, http.MethodPost, "/api/analysis/AAPL?wait=false", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != "run_in_progress" {
		t.Errorf("expected code 'run_in_progress', got %q", resp.Code)
	}
}

func TestHandleAnalysis_PersistenceFailureServesDocument(t *testing.T) {
	env := newTestServer(t)
	env.analysis.doc = completedDoc("AAPL")
	env.analysis.err = fmt.Errorf("%w for 'AAPL': disk full", analysis.ErrPersistenceFailed)

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite persistence failure, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc models.AnalysisDocument
	decodeBody(t, rec, &doc)
	if doc.Final.Content != "final recommendation" {
		t.Errorf("expected the completed document, got %+v", doc.Final)
	}
}

func TestHandleAnalysis_InternalError(t *testing.T) {
	env := newTestServer(t)
	env.analysis.err = fmt.Errorf("provider blew up")

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleAnalysisCategory(t *testing.T) {
	env := newTestServer(t)
	env.analysis.doc = completedDoc("AAPL")

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL/quant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var proj models.CategoryProjection
	decodeBody(t, rec, &proj)
	if proj.Category != models.CategoryQuant {
		t.Errorf("expected category quant, got %q", proj.Category)
	}
	if proj.Analysis.Content != "quant report" {
		t.Errorf("unexpected slot content: %+v", proj.Analysis)
	}
}

func TestHandleAnalysisCategory_Unknown(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL/sentiment", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subpath, got %d", rec.Code)
	}
}

func TestHandleAnalysisHistory(t *testing.T) {
	env := newTestServer(t)
	env.analysis.docs = []*models.AnalysisDocument{completedDoc("AAPL"), completedDoc("AAPL")}

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL/history?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Count    int                        `json:"count"`
		Analyses []*models.AnalysisDocument `json:"analyses"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || len(resp.Analyses) != 2 {
		t.Errorf("expected 2 documents, got count=%d len=%d", resp.Count, len(resp.Analyses))
	}
}

func TestHandleAnalysisHistory_BadLimit(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/analysis/AAPL/history?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUserGet_NotFound(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.err = fmt.Errorf("user 'ghost': %w", models.ErrNotFound)

	rec := env.do(t, http.MethodGet, "/api/users/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleUserGet(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.user = &models.User{UserID: "alice", Tickers: []string{"AAPL"}}

	rec := env.do(t, http.MethodGet, "/api/users/alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var user models.User
	decodeBody(t, rec, &user)
	if user.UserID != "alice" || len(user.Tickers) != 1 {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestHandleWatchlist_Add(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.tickers = []string{"AAPL", "TSLA"}

	rec := env.do(t, http.MethodPost, "/api/users/alice/watchlist", map[string]string{"ticker": "tsla"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp watchlistResponse
	decodeBody(t, rec, &resp)
	if resp.UserID != "alice" || len(resp.Tickers) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleWatchlist_AddInvalidTicker(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.err = fmt.Errorf("%w: ''", analysis.ErrInvalidTicker)

	rec := env.do(t, http.MethodPost, "/api/users/alice/watchlist", map[string]string{"ticker": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWatchlist_Get(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.tickers = []string{"AAPL"}

	rec := env.do(t, http.MethodGet, "/api/users/alice/watchlist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp watchlistResponse
	decodeBody(t, rec, &resp)
	if len(resp.Tickers) != 1 || resp.Tickers[0] != "AAPL" {
		t.Errorf("unexpected tickers: %v", resp.Tickers)
	}
}

func TestHandleWatchlistTicker_Delete(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.tickers = []string{}

	rec := env.do(t, http.MethodDelete, "/api/users/alice/watchlist/AAPL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleWatchlistTicker_MethodNotAllowed(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/users/alice/watchlist/AAPL", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleAdminStats(t *testing.T) {
	env := newTestServer(t)
	env.analysis.stats = &models.Stats{
		TotalDocuments: 10,
		TotalTickers:   4,
		TotalUsers:     2,
		GeneratedAt:    time.Now().UTC(),
	}

	rec := env.do(t, http.MethodGet, "/api/admin/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats models.Stats
	decodeBody(t, rec, &stats)
	if stats.TotalDocuments != 10 || stats.TotalTickers != 4 || stats.TotalUsers != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandleAdminCleanup(t *testing.T) {
	env := newTestServer(t)
	env.analysis.cleanup = &interfaces.CleanupResult{
		Deleted:  3,
		MaxAge:   168 * time.Hour,
		Duration: 25 * time.Millisecond,
	}

	rec := env.do(t, http.MethodPost, "/api/admin/cleanup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if resp["deleted"] != float64(3) {
		t.Errorf("expected deleted=3, got %v", resp["deleted"])
	}
	if resp["max_age"] != "168h0m0s" {
		t.Errorf("expected max_age '168h0m0s', got %v", resp["max_age"])
	}
}

func TestHandleAdminCleanup_MaxAgeOverride(t *testing.T) {
	env := newTestServer(t)
	env.analysis.cleanup = &interfaces.CleanupResult{
		Deleted:  1,
		MaxAge:   72 * time.Hour,
		Duration: time.Millisecond,
	}

	rec := env.do(t, http.MethodPost, "/api/admin/cleanup", map[string]string{"max_age": "72h"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.analysis.lastMaxAge != 72*time.Hour {
		t.Errorf("max age passed to Cleanup = %v, want 72h", env.analysis.lastMaxAge)
	}
}

func TestHandleAdminCleanup_BadMaxAge(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/admin/cleanup", map[string]string{"max_age": "yesterday"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAdminCleanup_GetRejected(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/admin/cleanup", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleAdminTickerUsers(t *testing.T) {
	env := newTestServer(t)
	env.watchlist.users = []string{"alice", "bob"}

	rec := env.do(t, http.MethodGet, "/api/admin/tickers/AAPL/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Ticker string   `json:"ticker"`
		Users  []string `json:"users"`
		Count  int      `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || len(resp.Users) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleAdminTickerUsers_NobodyWatching(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/admin/tickers/ZZZZ/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Users []string `json:"users"`
		Count int      `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Users == nil || resp.Count != 0 {
		t.Errorf("expected empty (non-nil) users, got %+v", resp)
	}
}

func TestRouteAnalysis_EmptyTicker(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/analysis/", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing ticker, got %d", rec.Code)
	}
}
