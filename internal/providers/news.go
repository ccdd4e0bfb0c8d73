package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

// newsArticleLimit caps how many recent articles are fed to the model.
const newsArticleLimit = 10

// NewsProvider runs news and sentiment analysis enriched with recent
// headlines. When the news feed is unavailable the provider degrades
// to a prompt-only analysis rather than failing.
type NewsProvider struct {
	llm      interfaces.LLMClient
	market   interfaces.MarketDataClient
	language string
	logger   *common.Logger
}

// NewNewsProvider creates a news analysis provider.
// market may be nil when no market data client is configured.
func NewNewsProvider(llm interfaces.LLMClient, market interfaces.MarketDataClient, language string, logger *common.Logger) *NewsProvider {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &NewsProvider{llm: llm, market: market, language: language, logger: logger}
}

func (p *NewsProvider) Category() models.Category {
	return models.CategoryNews
}

func (p *NewsProvider) Analyze(ctx context.Context, ticker string) (string, error) {
	prompt := fmt.Sprintf("Summarize and analyze the most recent impactful news for %s. Cover the key news events and their likely price impact, the shift in market sentiment, and the short- and medium-term outlook for investors.", ticker)

	if p.market != nil {
		items, err := p.market.GetNews(ctx, ticker, newsArticleLimit)
		if err != nil {
			p.logger.Warn().Err(err).Str("ticker", ticker).Msg("News feed unavailable, running prompt-only news analysis")
		} else if len(items) > 0 {
			prompt = fmt.Sprintf("%s\n\nRecent headlines:\n%s\n\nPerform your news analysis based on the headlines above.",
				prompt, formatNews(items))
		}
	}

	return p.llm.GenerateContent(ctx, languageInstruction(newsPrompt, p.language), prompt)
}

// formatNews renders headlines with sentiment as prompt context
func formatNews(items []models.NewsItem) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		date := ""
		if !item.PublishedAt.IsZero() {
			date = item.PublishedAt.Format("2006-01-02") + ", "
		}
		fmt.Fprintf(&sb, "- [%s] %s (%s%s)", item.Sentiment, item.Title, date, item.Source)
	}
	return sb.String()
}

var _ interfaces.AnalysisProvider = (*NewsProvider)(nil)
