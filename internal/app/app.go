// Package app wires configuration, storage, clients, services, and the MCP
// server into a single application core.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/alphatalk/internal/clients/eodhd"
	"github.com/bobmcallan/alphatalk/internal/clients/gemini"
	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/providers"
	"github.com/bobmcallan/alphatalk/internal/services/analysis"
	"github.com/bobmcallan/alphatalk/internal/services/watchlist"
	"github.com/bobmcallan/alphatalk/internal/storage"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	LLMClient        interfaces.LLMClient
	MarketClient     interfaces.MarketDataClient
	AnalysisService  interfaces.AnalysisService
	WatchlistService interfaces.WatchlistService
	MCPServer        *server.MCPServer
	StartupTime      time.Time

	cleanupStop func()
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, services, and the MCP server.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Load configuration - check provided path, ALPHATALK_CONFIG, then
	// binary dir, then fallback for development
	if configPath == "" {
		configPath = os.Getenv("ALPHATALK_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "alphatalk.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/alphatalk.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to the binary directory
	if config.Storage.Analysis.Path != "" && !filepath.IsAbs(config.Storage.Analysis.Path) {
		config.Storage.Analysis.Path = filepath.Join(binDir, config.Storage.Analysis.Path)
	}
	if config.Storage.User.Path != "" && !filepath.IsAbs(config.Storage.User.Path) {
		config.Storage.User.Path = filepath.Join(binDir, config.Storage.User.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()
	kvStore := storageManager.UserStore()

	// Resolve API keys: env > system KV > config file
	eodhdKey, err := common.ResolveAPIKey(ctx, kvStore, "eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil || eodhdKey == "" {
		logger.Warn().Msg("EODHD API key not configured - quantitative analysis will run without market data")
	}

	geminiKey, err := common.ResolveAPIKey(ctx, kvStore, "gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil || geminiKey == "" {
		logger.Warn().Msg("Gemini API key not configured - AI analysis will be unavailable")
	}

	// Initialize API clients
	var marketClient interfaces.MarketDataClient
	if eodhdKey != "" {
		marketClient = eodhd.NewClient(eodhdKey,
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	}

	var llmClient interfaces.LLMClient
	if geminiKey != "" {
		geminiClient, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			llmClient = geminiClient
		}
	}

	// Initialize services
	analysisService := analysis.NewService(
		storageManager,
		buildProviders(llmClient, marketClient, config, logger),
		buildSynthesizer(llmClient, config),
		config,
		logger,
	)
	watchlistService := watchlist.NewService(storageManager, analysisService, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"alphatalk",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		LLMClient:        llmClient,
		MarketClient:     marketClient,
		AnalysisService:  analysisService,
		WatchlistService: watchlistService,
		MCPServer:        mcpServer,
		StartupTime:      startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// buildProviders assembles the per-category analysis providers. Without an
// LLM client there is nothing to run, so the list is empty and every run
// settles with failed slots.
func buildProviders(llm interfaces.LLMClient, market interfaces.MarketDataClient, config *common.Config, logger *common.Logger) []interfaces.AnalysisProvider {
	if llm == nil {
		return nil
	}
	language := config.Analysis.ReportLanguage
	return []interfaces.AnalysisProvider{
		providers.NewQuantProvider(llm, market, language, logger),
		providers.NewFundamentalProvider(llm, market, language, logger),
		providers.NewNewsProvider(llm, market, language, logger),
	}
}

func buildSynthesizer(llm interfaces.LLMClient, config *common.Config) interfaces.Synthesizer {
	if llm == nil {
		return nil
	}
	return providers.NewReportSynthesizer(llm, config.Analysis.ReportLanguage)
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.cleanupStop != nil {
		a.cleanupStop()
		a.cleanupStop = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
