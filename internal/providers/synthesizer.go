package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

// ReportSynthesizer combines sub-agent reports into a final recommendation.
// Only succeeded reports are included; failed categories are noted as
// unavailable so the synthesis can weigh the gap.
type ReportSynthesizer struct {
	llm      interfaces.LLMClient
	language string
}

// NewReportSynthesizer creates a report synthesizer
func NewReportSynthesizer(llm interfaces.LLMClient, language string) *ReportSynthesizer {
	return &ReportSynthesizer{llm: llm, language: language}
}

func (s *ReportSynthesizer) Synthesize(ctx context.Context, doc *models.AnalysisDocument) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are the reports from the specialized agents for %s:\n", doc.Ticker)

	appendReport(&sb, "Quantitative Report", doc.Quant)
	appendReport(&sb, "Fundamental Report", doc.Fundamental)
	appendReport(&sb, "News Report", doc.News)

	sb.WriteString("\nSynthesize the available reports into a final investment recommendation.")

	return s.llm.GenerateContent(ctx, languageInstruction(synthesizerPrompt, s.language), sb.String())
}

func appendReport(sb *strings.Builder, title string, slot models.AnalysisSlot) {
	fmt.Fprintf(sb, "\n--- %s ---\n", title)
	if slot.Status == models.SlotSucceeded {
		sb.WriteString(slot.Content)
		sb.WriteString("\n")
		return
	}
	sb.WriteString("This report is unavailable for this run.\n")
}

var _ interfaces.Synthesizer = (*ReportSynthesizer)(nil)
