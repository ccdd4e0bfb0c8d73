package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

// FundamentalProvider runs business analysis enriched with company
// profile and valuation data. When fundamentals are unavailable the
// provider degrades to a prompt-only analysis rather than failing.
type FundamentalProvider struct {
	llm      interfaces.LLMClient
	market   interfaces.MarketDataClient
	language string
	logger   *common.Logger
}

// NewFundamentalProvider creates a fundamental analysis provider.
// market may be nil when no market data client is configured.
func NewFundamentalProvider(llm interfaces.LLMClient, market interfaces.MarketDataClient, language string, logger *common.Logger) *FundamentalProvider {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &FundamentalProvider{llm: llm, market: market, language: language, logger: logger}
}

func (p *FundamentalProvider) Category() models.Category {
	return models.CategoryFundamental
}

func (p *FundamentalProvider) Analyze(ctx context.Context, ticker string) (string, error) {
	prompt := fmt.Sprintf("Provide a fundamental analysis for %s. Consider the impact of interest rates, recent earnings and earnings surprises, core financial ratios such as ROA, ROE and asset growth, and fundamental momentum.", ticker)

	if p.market != nil {
		fund, err := p.market.GetFundamentals(ctx, ticker)
		if err != nil {
			p.logger.Warn().Err(err).Str("ticker", ticker).Msg("Fundamentals unavailable, running prompt-only fundamental analysis")
		} else {
			prompt = fmt.Sprintf("%s\n\nCompany fundamentals:\n%s\n\nPerform your fundamental analysis based on the data above.",
				prompt, formatFundamentals(fund))
		}
	}

	return p.llm.GenerateContent(ctx, languageInstruction(fundamentalPrompt, p.language), prompt)
}

// formatFundamentals renders fundamentals as prompt context
func formatFundamentals(f *models.Fundamentals) string {
	var sb strings.Builder
	if f.Name != "" {
		fmt.Fprintf(&sb, "- Company: %s\n", f.Name)
	}
	fmt.Fprintf(&sb, "- Sector / industry: %s / %s\n", f.Sector, f.Industry)
	fmt.Fprintf(&sb, "- Market cap: %.0f\n", f.MarketCap)
	fmt.Fprintf(&sb, "- P/E: %.2f, P/B: %.2f, EPS: %.2f\n", f.PE, f.PB, f.EPS)
	fmt.Fprintf(&sb, "- Dividend yield: %.2f%%\n", f.DividendYield*100)
	fmt.Fprintf(&sb, "- ROA: %.2f%%, ROE: %.2f%%, profit margin: %.2f%%\n", f.ROA*100, f.ROE*100, f.ProfitMargin*100)
	fmt.Fprintf(&sb, "- Quarterly earnings growth YoY: %.2f%%\n", f.EarningsGrowthYOY*100)
	fmt.Fprintf(&sb, "- Beta: %.2f", f.Beta)
	return sb.String()
}

var _ interfaces.AnalysisProvider = (*FundamentalProvider)(nil)
