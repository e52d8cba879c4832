package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hybrid-trading-bot/internal/interfaces"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/trace"
	"hybrid-trading-bot/internal/types"
)

// Compile-time interface check
var _ interfaces.Analyzer = (*Gateway)(nil)

const (
	analystSystemPrompt = "You are a crypto market analyst. Respond only with valid JSON."
	advisorSystemPrompt = "You are a crypto trading advisor. Respond only with valid JSON."

	// Low temperatures keep the structured answers near-deterministic.
	correlationTemperature = 0.3
	signalTemperature      = 0.2

	correlationMaxTokens = 500
	signalMaxTokens      = 300
)

// neutralResult is returned whenever the model is unreachable or its answer
// cannot be parsed. The reasoning string distinguishes the two cases.
func neutralResult(reasoning string) types.AnalysisResult {
	return types.AnalysisResult{
		ImpactScore: 0.0,
		Sentiment:   types.SentimentNeutral,
		Confidence:  0.0,
		Reasoning:   reasoning,
	}
}

// AnalyzeCorrelation asks the model to score how much recent news explains a
// price move. Failures yield the fixed neutral result, never an error.
func (g *Gateway) AnalyzeCorrelation(ctx context.Context, newsSummary string, rsi, priceChangePct float64, pair string) types.AnalysisResult {
	ctx, span := trace.StartSpan(ctx, "llm.AnalyzeCorrelation")
	defer span.End()

	prompt := fmt.Sprintf(`Analyze the correlation between news and price movement for %s.

News Summary:
%s

Technical Indicators:
- RSI: %.1f
- Price Change: %.2f%%

Task: Determine the IMPACT SCORE (0.0 to 1.0) of how much the news influenced the price movement.
Consider:
1. News sentiment (positive/negative/neutral)
2. News relevance to %s
3. Correlation with price movement direction
4. RSI confirmation of trend

Respond in JSON format:
{
  "impact_score": <float 0.0-1.0>,
  "sentiment": "<positive|negative|neutral>",
  "confidence": <float 0.0-1.0>,
  "reasoning": "<brief explanation>"
}`, pair, newsSummary, rsi, priceChangePct, pair)

	messages := []types.ChatMessage{
		{Role: "system", Content: analystSystemPrompt},
		{Role: "user", Content: prompt},
	}

	content, err := g.Complete(ctx, messages, correlationTemperature, correlationMaxTokens)
	if err != nil {
		return neutralResult("Analysis failed")
	}

	var result types.AnalysisResult
	if err := unmarshalLoose(content, &result); err != nil {
		logger.ErrorWithErr(ctx, "Failed to parse correlation analysis", err, "pair", pair, "content", content)
		return neutralResult("Failed to parse response")
	}

	normalizeResult(&result)
	return result
}

// GenerateTradingSignal produces the advisory buy/sell/hold recommendation
// combining current and historical impact. Failures yield a hold signal.
func (g *Gateway) GenerateTradingSignal(ctx context.Context, pair string, rsi float64, newsSummary string, impactScore, historicalAvgImpact float64) types.TradingSignal {
	ctx, span := trace.StartSpan(ctx, "llm.GenerateTradingSignal")
	defer span.End()

	excerpt := newsSummary
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}

	prompt := fmt.Sprintf(`Generate a trading signal for %s.

Technical Analysis:
- RSI: %.1f

AI Analysis:
- Recent News: %s...
- Current Impact Score: %.2f
- Historical Average Impact: %.2f

Based on this data, should we BUY, SELL, or HOLD?

Respond in JSON:
{
  "action": "<buy|sell|hold>",
  "confidence": <float 0.0-1.0>,
  "reasoning": "<brief explanation>"
}`, pair, rsi, excerpt, impactScore, historicalAvgImpact)

	messages := []types.ChatMessage{
		{Role: "system", Content: advisorSystemPrompt},
		{Role: "user", Content: prompt},
	}

	content, err := g.Complete(ctx, messages, signalTemperature, signalMaxTokens)
	if err != nil {
		return types.TradingSignal{Action: types.ActionHold, Confidence: 0.0, Reasoning: "Analysis failed"}
	}

	var signal types.TradingSignal
	if err := unmarshalLoose(content, &signal); err != nil {
		logger.ErrorWithErr(ctx, "Failed to parse trading signal", err, "pair", pair, "content", content)
		return types.TradingSignal{Action: types.ActionHold, Confidence: 0.0, Reasoning: "Failed to parse response"}
	}

	normalizeSignal(&signal)
	return signal
}

// unmarshalLoose unmarshals a JSON object that may be surrounded by prose
// or markdown fences in the model output.
func unmarshalLoose(text string, out any) error {
	t := strings.TrimSpace(text)

	if strings.HasPrefix(t, "{") {
		if err := json.Unmarshal([]byte(t), out); err == nil {
			return nil
		}
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return json.Unmarshal([]byte(t[start:end+1]), out)
	}

	return fmt.Errorf("no JSON object found in model output")
}

func normalizeResult(r *types.AnalysisResult) {
	r.Sentiment = strings.ToLower(strings.TrimSpace(r.Sentiment))
	switch r.Sentiment {
	case types.SentimentPositive, types.SentimentNegative, types.SentimentNeutral:
	default:
		r.Sentiment = types.SentimentNeutral
	}
	r.ImpactScore = clamp01(r.ImpactScore)
	r.Confidence = clamp01(r.Confidence)
}

func normalizeSignal(s *types.TradingSignal) {
	s.Action = strings.ToLower(strings.TrimSpace(s.Action))
	switch s.Action {
	case types.ActionBuy, types.ActionSell, types.ActionHold:
	default:
		s.Action = types.ActionHold
	}
	s.Confidence = clamp01(s.Confidence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
