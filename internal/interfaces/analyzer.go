package interfaces

import (
	"context"

	"hybrid-trading-bot/internal/types"
)

// Analyzer produces AI analysis from news and technical context.
type Analyzer interface {
	AnalyzeCorrelation(ctx context.Context, newsSummary string, rsi, priceChangePct float64, pair string) types.AnalysisResult
	GenerateTradingSignal(ctx context.Context, pair string, rsi float64, newsSummary string, impactScore, historicalAvgImpact float64) types.TradingSignal
}
