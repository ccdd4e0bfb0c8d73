package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
	"github.com/bobmcallan/alphatalk/internal/signals"
)

// barLookbackDays covers a full trading year of daily bars for the
// 52-week high/low calculation.
const barLookbackDays = 400

// QuantProvider runs quantitative analysis enriched with computed
// technical indicators. When market data is unavailable the provider
// degrades to a prompt-only analysis rather than failing.
type QuantProvider struct {
	llm      interfaces.LLMClient
	market   interfaces.MarketDataClient
	computer *signals.Computer
	language string
	logger   *common.Logger
}

// NewQuantProvider creates a quantitative analysis provider.
// market may be nil when no market data client is configured.
func NewQuantProvider(llm interfaces.LLMClient, market interfaces.MarketDataClient, language string, logger *common.Logger) *QuantProvider {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &QuantProvider{
		llm:      llm,
		market:   market,
		computer: signals.NewComputer(),
		language: language,
		logger:   logger,
	}
}

func (p *QuantProvider) Category() models.Category {
	return models.CategoryQuant
}

func (p *QuantProvider) Analyze(ctx context.Context, ticker string) (string, error) {
	prompt := fmt.Sprintf("Provide a quantitative analysis for %s.", ticker)

	if p.market != nil {
		bars, err := p.market.GetDailyBars(ctx, ticker, barLookbackDays)
		if err != nil {
			p.logger.Warn().Err(err).Str("ticker", ticker).Msg("Market data unavailable, running prompt-only quant analysis")
		} else if len(bars) > 0 {
			ind := p.computer.Compute(ticker, bars)
			prompt = fmt.Sprintf("%s\n\nReal-time quantitative data:\n%s\n\nPerform your quantitative analysis based on the data above.",
				prompt, formatIndicators(ind))
		}
	}

	return p.llm.GenerateContent(ctx, languageInstruction(quantPrompt, p.language), prompt)
}

// formatIndicators renders computed indicators as prompt context
func formatIndicators(ind *signals.Indicators) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- Current price: %.2f\n", ind.CurrentPrice)
	fmt.Fprintf(&sb, "- 1-day change: %.2f%%\n", ind.ChangePct)
	fmt.Fprintf(&sb, "- MA5: %.2f\n", ind.MA5)
	fmt.Fprintf(&sb, "- MA20: %.2f\n", ind.MA20)
	fmt.Fprintf(&sb, "- RSI(14): %.2f (%s)\n", ind.RSI, ind.RSISignal)
	fmt.Fprintf(&sb, "- Bollinger band signal (counter-trend): %s\n", ind.BollingerSignal)
	fmt.Fprintf(&sb, "- MA crossover signal (trend-following): %s\n", ind.CrossoverSignal)
	fmt.Fprintf(&sb, "- 52-week high: %.2f\n", ind.High52Week)
	fmt.Fprintf(&sb, "- 52-week low: %.2f\n", ind.Low52Week)
	fmt.Fprintf(&sb, "- Trading days of data: %d", ind.Bars)
	return sb.String()
}

var _ interfaces.AnalysisProvider = (*QuantProvider)(nil)
