package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/alphatalk/internal/common"
	"github.com/bobmcallan/alphatalk/internal/interfaces"
	"github.com/bobmcallan/alphatalk/internal/models"
)

// registerTools wires the MCP tool definitions and handlers onto the server.
func (a *App) registerTools() {
	a.MCPServer.AddTool(createGetVersionTool(), handleGetVersion())
	a.MCPServer.AddTool(createAnalyzeStockTool(), handleAnalyzeStock(a.AnalysisService, a.Logger))
	a.MCPServer.AddTool(createGetAnalysisTool(), handleGetAnalysis(a.AnalysisService, a.Logger))
	a.MCPServer.AddTool(createWatchlistAddTool(), handleWatchlistAdd(a.WatchlistService, a.Logger))
	a.MCPServer.AddTool(createWatchlistRemoveTool(), handleWatchlistRemove(a.WatchlistService, a.Logger))
	a.MCPServer.AddTool(createWatchlistListTool(), handleWatchlistList(a.WatchlistService, a.Logger))
	a.MCPServer.AddTool(createGetStatsTool(), handleGetStats(a.AnalysisService, a.Logger))
}

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the AlphaTalk MCP server version and status. Use this to verify connectivity."),
	)
}

// createAnalyzeStockTool returns the analyze_stock tool definition
func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Run a fresh multi-agent analysis for a stock ticker. Quantitative, fundamental, and news analysts run in parallel and a master analyst synthesizes their reports into a final recommendation. Joins an in-flight run for the same ticker if one exists."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker to analyze (e.g., 'AAPL', 'TSLA', 'BHP.AU')"),
		),
	)
}

// createGetAnalysisTool returns the get_analysis tool definition
func createGetAnalysisTool() mcp.Tool {
	return mcp.NewTool("get_analysis",
		mcp.WithDescription("Get the latest analysis for a stock ticker. Serves the cached report when it is still fresh, otherwise runs a new analysis. Optionally narrow the result to one category."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker to look up (e.g., 'AAPL', 'TSLA', 'BHP.AU')"),
		),
		mcp.WithString("category",
			mcp.Description("Restrict the result to one category: quant, fundamental, news (default: full report)"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Skip the freshness check and always run a new analysis (default: false)"),
		),
	)
}

// createWatchlistAddTool returns the watchlist_add tool definition
func createWatchlistAddTool() mcp.Tool {
	return mcp.NewTool("watchlist_add",
		mcp.WithDescription("Add a ticker to a user's watchlist. First-time adds trigger a background analysis run so the first read is likely a cache hit."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User identifier owning the watchlist"),
		),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker to watch (e.g., 'AAPL', 'BHP.AU')"),
		),
	)
}

// createWatchlistRemoveTool returns the watchlist_remove tool definition
func createWatchlistRemoveTool() mcp.Tool {
	return mcp.NewTool("watchlist_remove",
		mcp.WithDescription("Remove a ticker from a user's watchlist."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User identifier owning the watchlist"),
		),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker to stop watching"),
		),
	)
}

// createWatchlistListTool returns the watchlist_list tool definition
func createWatchlistListTool() mcp.Tool {
	return mcp.NewTool("watchlist_list",
		mcp.WithDescription("List the tickers on a user's watchlist."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User identifier owning the watchlist"),
		),
	)
}

// createGetStatsTool returns the get_stats tool definition
func createGetStatsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Get aggregate statistics: stored analysis documents, distinct tickers, and registered users."),
	)
}

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("AlphaTalk MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleAnalyzeStock implements the analyze_stock tool
func handleAnalyzeStock(analysisService interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		doc, err := analysisService.RunAnalysis(ctx, ticker)
		if err != nil && doc == nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Analysis run failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}
		if err != nil {
			// The run produced a report but persisting it failed. Serve the
			// report anyway and note that it was not cached.
			logger.Warn().Err(err).Str("ticker", ticker).Msg("Analysis completed but was not persisted")
			return textResult(formatAnalysisDocument(doc) + "\n\n_Note: this report could not be cached and will be regenerated on the next request._"), nil
		}

		return textResult(formatAnalysisDocument(doc)), nil
	}
}

// handleGetAnalysis implements the get_analysis tool
func handleGetAnalysis(analysisService interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		categoryParam := request.GetString("category", "")
		var category models.Category
		if categoryParam != "" {
			var ok bool
			category, ok = models.ParseCategory(categoryParam)
			if !ok {
				return errorResult(fmt.Sprintf("Error: unknown category '%s' (expected quant, fundamental, or news)", categoryParam)), nil
			}
		}

		force := request.GetBool("force", false)

		doc, err := analysisService.GetOrRefresh(ctx, ticker, interfaces.RefreshOptions{Force: force})
		if err != nil && doc == nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Get analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		if category != "" {
			proj := doc.Project(category)
			return textResult(formatCategoryProjection(proj)), nil
		}
		return textResult(formatAnalysisDocument(doc)), nil
	}
}

// handleWatchlistAdd implements the watchlist_add tool
func handleWatchlistAdd(watchlistService interfaces.WatchlistService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := request.RequireString("user_id")
		if err != nil || userID == "" {
			return errorResult("Error: user_id parameter is required"), nil
		}
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		tickers, err := watchlistService.AddTicker(ctx, userID, ticker)
		if err != nil {
			logger.Error().Err(err).Str("user", userID).Str("ticker", ticker).Msg("Watchlist add failed")
			return errorResult(fmt.Sprintf("Watchlist error: %v", err)), nil
		}

		return textResult(formatWatchlist(userID, tickers)), nil
	}
}

// handleWatchlistRemove implements the watchlist_remove tool
func handleWatchlistRemove(watchlistService interfaces.WatchlistService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := request.RequireString("user_id")
		if err != nil || userID == "" {
			return errorResult("Error: user_id parameter is required"), nil
		}
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		tickers, err := watchlistService.RemoveTicker(ctx, userID, ticker)
		if err != nil {
			logger.Error().Err(err).Str("user", userID).Str("ticker", ticker).Msg("Watchlist remove failed")
			return errorResult(fmt.Sprintf("Watchlist error: %v", err)), nil
		}

		return textResult(formatWatchlist(userID, tickers)), nil
	}
}

// handleWatchlistList implements the watchlist_list tool
func handleWatchlistList(watchlistService interfaces.WatchlistService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := request.RequireString("user_id")
		if err != nil || userID == "" {
			return errorResult("Error: user_id parameter is required"), nil
		}

		tickers, err := watchlistService.ListTickers(ctx, userID)
		if err != nil {
			logger.Error().Err(err).Str("user", userID).Msg("Watchlist list failed")
			return errorResult(fmt.Sprintf("Watchlist error: %v", err)), nil
		}

		return textResult(formatWatchlist(userID, tickers)), nil
	}
}

// handleGetStats implements the get_stats tool
func handleGetStats(analysisService interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := analysisService.Stats(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Stats failed")
			return errorResult(fmt.Sprintf("Stats error: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString("# AlphaTalk Statistics\n\n")
		sb.WriteString(fmt.Sprintf("- **Analysis documents:** %d\n", stats.TotalDocuments))
		sb.WriteString(fmt.Sprintf("- **Tickers analyzed:** %d\n", stats.TotalTickers))
		sb.WriteString(fmt.Sprintf("- **Registered users:** %d\n", stats.TotalUsers))
		sb.WriteString(fmt.Sprintf("\n_Generated at %s_\n", stats.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
		return textResult(sb.String()), nil
	}
}

// Formatting helpers

var categoryTitles = map[models.Category]string{
	models.CategoryQuant:       "Quantitative Analysis",
	models.CategoryFundamental: "Fundamental Analysis",
	models.CategoryNews:        "News & Sentiment Analysis",
}

func formatAnalysisDocument(doc *models.AnalysisDocument) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Analysis: %s\n\n", doc.Ticker))
	sb.WriteString(fmt.Sprintf("_Generated at %s_\n\n", doc.Timestamp.Format("2006-01-02 15:04:05 MST")))

	if doc.Final.Status == models.SlotSucceeded {
		sb.WriteString("## Final Recommendation\n\n")
		sb.WriteString(doc.Final.Content)
		sb.WriteString("\n\n")
	} else if doc.Final.Status == models.SlotFailed {
		sb.WriteString(fmt.Sprintf("## Final Recommendation\n\n_Unavailable: %s_\n\n", doc.Final.Error))
	}

	for _, c := range models.Categories {
		slot := doc.Slot(c)
		sb.WriteString(fmt.Sprintf("## %s\n\n", categoryTitles[c]))
		switch slot.Status {
		case models.SlotSucceeded:
			sb.WriteString(slot.Content)
			sb.WriteString("\n\n")
		case models.SlotFailed:
			sb.WriteString(fmt.Sprintf("_Unavailable: %s_\n\n", slot.Error))
		default:
			sb.WriteString("_Pending_\n\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatCategoryProjection(proj *models.CategoryProjection) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s: %s\n\n", categoryTitles[proj.Category], proj.Ticker))
	sb.WriteString(fmt.Sprintf("_Generated at %s_\n\n", proj.Timestamp.Format("2006-01-02 15:04:05 MST")))
	switch proj.Analysis.Status {
	case models.SlotSucceeded:
		sb.WriteString(proj.Analysis.Content)
	case models.SlotFailed:
		sb.WriteString(fmt.Sprintf("_Unavailable: %s_", proj.Analysis.Error))
	default:
		sb.WriteString("_Pending_")
	}
	return sb.String()
}

func formatWatchlist(userID string, tickers []string) string {
	if len(tickers) == 0 {
		return fmt.Sprintf("Watchlist for **%s** is empty.", userID)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Watchlist: %s\n\n", userID))
	for _, t := range tickers {
		sb.WriteString(fmt.Sprintf("- %s\n", t))
	}
	return sb.String()
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
