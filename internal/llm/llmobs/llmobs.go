package llmobs

import (
	"context"

	"hybrid-trading-bot/internal/interfaces"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/trace"
	"hybrid-trading-bot/internal/types"
)

// observableAnalyzer wraps an Analyzer with observability (logging & tracing)
type observableAnalyzer struct {
	analyzer interfaces.Analyzer
}

// Compile-time interface check
var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

// Wrap wraps an analyzer with observability middleware
func Wrap(analyzer interfaces.Analyzer) interfaces.Analyzer {
	return &observableAnalyzer{
		analyzer: analyzer,
	}
}

func (oa *observableAnalyzer) AnalyzeCorrelation(ctx context.Context, newsSummary string, rsi, priceChangePct float64, pair string) types.AnalysisResult {
	ctx, span := trace.StartSpan(ctx, "analyzer.AnalyzeCorrelation")
	defer span.End()

	// Skip(1) reports the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting correlation analysis",
		"pair", pair,
		"rsi", rsi,
		"price_change_pct", priceChangePct,
	)

	result := oa.analyzer.AnalyzeCorrelation(ctx, newsSummary, rsi, priceChangePct, pair)

	logger.InfoSkip(ctx, 1, "Correlation analysis received",
		"pair", pair,
		"impact_score", result.ImpactScore,
		"sentiment", result.Sentiment,
		"confidence", result.Confidence,
	)

	return result
}

func (oa *observableAnalyzer) GenerateTradingSignal(ctx context.Context, pair string, rsi float64, newsSummary string, impactScore, historicalAvgImpact float64) types.TradingSignal {
	ctx, span := trace.StartSpan(ctx, "analyzer.GenerateTradingSignal")
	defer span.End()

	signal := oa.analyzer.GenerateTradingSignal(ctx, pair, rsi, newsSummary, impactScore, historicalAvgImpact)

	logger.InfoSkip(ctx, 1, "Advisory signal generated",
		"pair", pair,
		"action", signal.Action,
		"confidence", signal.Confidence,
	)

	return signal
}
