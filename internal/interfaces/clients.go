package interfaces

import (
	"context"

	"github.com/bobmcallan/alphatalk/internal/models"
)

// LLMClient generates text completions for analysis prompts.
type LLMClient interface {
	// GenerateContent runs a single-turn completion with a system
	// instruction and user prompt, returning the model's text.
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// MarketDataClient fetches market data used to enrich analysis prompts.
type MarketDataClient interface {
	// GetDailyBars returns up to days of daily OHLCV bars for a ticker,
	// newest first.
	GetDailyBars(ctx context.Context, ticker string, days int) ([]models.EODBar, error)

	// GetFundamentals returns company profile and valuation data.
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)

	// GetNews returns up to limit recent news articles for a ticker,
	// newest first, with per-article sentiment.
	GetNews(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error)
}
