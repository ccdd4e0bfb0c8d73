package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/models"
)

type fakeLLM struct {
	lastSystem string
	lastPrompt string
	response   string
	err        error
}

func (f *fakeLLM) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeMarket struct {
	bars         []models.EODBar
	fundamentals *models.Fundamentals
	news         []models.NewsItem
	err          error
}

func (f *fakeMarket) GetDailyBars(ctx context.Context, ticker string, days int) ([]models.EODBar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func (f *fakeMarket) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fundamentals, nil
}

func (f *fakeMarket) GetNews(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.news) {
		return f.news[:limit], nil
	}
	return f.news, nil
}

func testBars(n int) []models.EODBar {
	bars := make([]models.EODBar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		bars[i] = models.EODBar{
			Date:     time.Now().AddDate(0, 0, -i),
			Open:     price,
			High:     price + 1,
			Low:      price - 1,
			Close:    price,
			AdjClose: price,
			Volume:   1000000,
		}
		price -= 0.5
	}
	return bars
}

func TestQuantProviderIncludesIndicators(t *testing.T) {
	llm := &fakeLLM{response: "quant report"}
	market := &fakeMarket{bars: testBars(60)}

	p := NewQuantProvider(llm, market, "Korean", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "quant report", result)
	assert.Contains(t, llm.lastPrompt, "Real-time quantitative data")
	assert.Contains(t, llm.lastPrompt, "RSI(14)")
	assert.Contains(t, llm.lastPrompt, "MA5")
	assert.Contains(t, llm.lastSystem, "quantitative analyst")
	assert.Contains(t, llm.lastSystem, "Korean")
}

func TestQuantProviderDegradesWithoutMarketData(t *testing.T) {
	llm := &fakeLLM{response: "quant report"}
	market := &fakeMarket{err: errors.New("api down")}

	p := NewQuantProvider(llm, market, "Korean", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "quant report", result)
	assert.NotContains(t, llm.lastPrompt, "Real-time quantitative data")
}

func TestQuantProviderNilMarketClient(t *testing.T) {
	llm := &fakeLLM{response: "quant report"}

	p := NewQuantProvider(llm, nil, "", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "quant report", result)
}

func TestQuantProviderLLMError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}

	p := NewQuantProvider(llm, nil, "", common.NewSilentLogger())
	_, err := p.Analyze(context.Background(), "AAPL")

	assert.Error(t, err)
}

func TestFundamentalProviderIncludesFundamentals(t *testing.T) {
	llm := &fakeLLM{response: "fundamental report"}
	market := &fakeMarket{fundamentals: &models.Fundamentals{
		Ticker:        "TSLA",
		Name:          "Tesla Inc",
		Sector:        "Consumer Cyclical",
		Industry:      "Auto Manufacturers",
		MarketCap:     8.0e11,
		PE:            65.2,
		PB:            10.1,
		EPS:           3.55,
		DividendYield: 0,
		Beta:          2.1,
		ROA:           0.045,
		ROE:           0.21,
	}}

	p := NewFundamentalProvider(llm, market, "Korean", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "TSLA")

	require.NoError(t, err)
	assert.Equal(t, "fundamental report", result)
	assert.Equal(t, models.CategoryFundamental, p.Category())
	assert.Contains(t, llm.lastSystem, "fundamental analyst")
	assert.Contains(t, llm.lastPrompt, "TSLA")
	assert.Contains(t, llm.lastPrompt, "Company fundamentals")
	assert.Contains(t, llm.lastPrompt, "Tesla Inc")
	assert.Contains(t, llm.lastPrompt, "Consumer Cyclical")
	assert.Contains(t, llm.lastPrompt, "ROE: 21.00%")
}

func TestFundamentalProviderDegradesWithoutFundamentals(t *testing.T) {
	llm := &fakeLLM{response: "fundamental report"}
	market := &fakeMarket{err: errors.New("api down")}

	p := NewFundamentalProvider(llm, market, "Korean", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "TSLA")

	require.NoError(t, err)
	assert.Equal(t, "fundamental report", result)
	assert.NotContains(t, llm.lastPrompt, "Company fundamentals")
	assert.Contains(t, llm.lastPrompt, "TSLA")
}

func TestFundamentalProviderNilMarketClient(t *testing.T) {
	llm := &fakeLLM{response: "fundamental report"}

	p := NewFundamentalProvider(llm, nil, "", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "TSLA")

	require.NoError(t, err)
	assert.Equal(t, "fundamental report", result)
}

func TestNewsProviderIncludesHeadlines(t *testing.T) {
	llm := &fakeLLM{response: "news report"}
	market := &fakeMarket{news: []models.NewsItem{
		{Title: "NVDA beats earnings estimates", Source: "reuters.com", PublishedAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC), Sentiment: "positive"},
		{Title: "Chip export rules tightened", Source: "bloomberg.com", PublishedAt: time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC), Sentiment: "negative"},
	}}

	p := NewNewsProvider(llm, market, "Korean", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "NVDA")

	require.NoError(t, err)
	assert.Equal(t, "news report", result)
	assert.Equal(t, models.CategoryNews, p.Category())
	assert.Contains(t, llm.lastSystem, "news analysis")
	assert.Contains(t, llm.lastPrompt, "NVDA")
	assert.Contains(t, llm.lastPrompt, "Recent headlines")
	assert.Contains(t, llm.lastPrompt, "[positive] NVDA beats earnings estimates (2026-08-28, reuters.com)")
	assert.Contains(t, llm.lastPrompt, "[negative] Chip export rules tightened")
}

func TestNewsProviderDegradesWithoutFeed(t *testing.T) {
	llm := &fakeLLM{response: "news report"}
	market := &fakeMarket{err: errors.New("api down")}

	p := NewNewsProvider(llm, market, "Korean", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "NVDA")

	require.NoError(t, err)
	assert.Equal(t, "news report", result)
	assert.NotContains(t, llm.lastPrompt, "Recent headlines")
}

func TestNewsProviderEmptyFeed(t *testing.T) {
	llm := &fakeLLM{response: "news report"}
	market := &fakeMarket{news: nil}

	p := NewNewsProvider(llm, market, "", common.NewSilentLogger())
	result, err := p.Analyze(context.Background(), "NVDA")

	require.NoError(t, err)
	assert.Equal(t, "news report", result)
	assert.NotContains(t, llm.lastPrompt, "Recent headlines")
}

func TestSynthesizerIncludesSucceededReports(t *testing.T) {
	llm := &fakeLLM{response: "final recommendation"}
	s := NewReportSynthesizer(llm, "Korean")

	doc := models.NewAnalysisDocument("AAPL")
	doc.Quant = models.SucceededSlot("strong technicals")
	doc.Fundamental = models.SucceededSlot("solid balance sheet")
	doc.News = models.FailedSlot("timeout")

	result, err := s.Synthesize(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "final recommendation", result)
	assert.Contains(t, llm.lastPrompt, "strong technicals")
	assert.Contains(t, llm.lastPrompt, "solid balance sheet")
	assert.NotContains(t, llm.lastPrompt, "timeout")
	assert.Contains(t, llm.lastPrompt, "unavailable for this run")
	assert.Contains(t, llm.lastSystem, "master investment analysis agent")
}

func TestLanguageInstruction(t *testing.T) {
	withLang := languageInstruction("base prompt", "Korean")
	assert.True(t, strings.HasPrefix(withLang, "base prompt"))
	assert.Contains(t, withLang, "Korean")

	assert.Equal(t, "base prompt", languageInstruction("base prompt", ""))
}
