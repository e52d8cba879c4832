package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hybrid-trading-bot/internal/decisionlog"
	"hybrid-trading-bot/internal/interfaces"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/ta"
	"hybrid-trading-bot/internal/trace"
	"hybrid-trading-bot/internal/types"
)

// Params configures the confirmation engine.
type Params struct {
	// MinImpactScore is the gating threshold: entries are approved only when
	// the analysis scores at least this high with positive sentiment.
	MinImpactScore float64
	// CooldownInterval is the minimum time between full pipeline runs per
	// pair. Within the window the cached result is replayed.
	CooldownInterval time.Duration
	// NewsTimeframe is the lookback window passed to the news search.
	NewsTimeframe string
}

// pairState tracks the last analysis per trading pair. A pair is "fresh"
// while the cooldown has not elapsed since lastCheckedAt.
type pairState struct {
	lastCheckedAt time.Time
	cached        *types.AnalysisResult
}

// Engine decides, per prospective trade entry, whether AI news analysis
// approves or vetoes the technical signal. The per-pair cache is unbounded:
// the pair set is operator-controlled and small.
type Engine struct {
	params Params
	news   interfaces.NewsSearcher
	llm    interfaces.Analyzer
	mem    interfaces.MemoryStore

	mu    sync.Mutex
	pairs map[string]*pairState
}

// New creates a confirmation engine. Any collaborator may be nil; the engine
// then degrades to technical-analysis-only mode and approves every entry.
func New(params Params, news interfaces.NewsSearcher, llm interfaces.Analyzer, mem interfaces.MemoryStore) *Engine {
	if params.CooldownInterval <= 0 {
		params.CooldownInterval = time.Hour
	}
	if params.NewsTimeframe == "" {
		params.NewsTimeframe = "24h"
	}
	return &Engine{
		params: params,
		news:   news,
		llm:    llm,
		mem:    mem,
		pairs:  make(map[string]*pairState),
	}
}

// Degraded reports whether the engine is running without its AI collaborators.
func (e *Engine) Degraded() bool {
	return e.news == nil || e.llm == nil || e.mem == nil
}

// ConfirmEntry gates a prospective trade entry for a pair. It never returns
// an error and never blocks a trade on infrastructure failure: every failure
// path inside the AI pipeline collapses to approve, forfeiting only the veto.
func (e *Engine) ConfirmEntry(ctx context.Context, pair string, rsi float64, closes []float64, now time.Time) (approved bool) {
	ctx, span := trace.StartSpan(ctx, "engine.ConfirmEntry")
	defer span.End()

	// Failure anywhere in the pipeline must not block the trade.
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Confirmation pipeline panicked - approving entry", "pair", pair, "panic", fmt.Sprint(r))
			approved = true
		}
	}()

	if e.Degraded() {
		logger.Debug(ctx, "AI collaborators unavailable - technical-analysis-only mode", "pair", pair)
		_ = decisionlog.Append(decisionlog.Entry{Pair: pair, Approved: true, Reason: "degraded_mode", Degraded: true})
		return true
	}

	if cached, ok := e.freshResult(pair, now); ok {
		approved := e.evaluate(cached)
		logger.Decision(ctx, pair, approved, cached.ImpactScore, cached.Sentiment, "cached_analysis")
		_ = decisionlog.Append(decisionlog.Entry{
			Pair:                pair,
			Approved:            approved,
			ImpactScore:         cached.ImpactScore,
			Sentiment:           cached.Sentiment,
			HistoricalAvgImpact: cached.HistoricalAvgImpact,
			Reason:              "cached_analysis",
			Cached:              true,
		})
		return approved
	}

	result, err := e.analyze(ctx, pair, rsi, closes, now)
	if err != nil {
		// Approve on failure: availability over precision.
		logger.ErrorWithErr(ctx, "AI analysis failed - approving entry", err, "pair", pair)
		_ = decisionlog.Append(decisionlog.Entry{Pair: pair, Approved: true, Reason: "analysis_failed"})
		return true
	}

	e.store(pair, result, now)

	approved = e.evaluate(&result)
	logger.Decision(ctx, pair, approved, result.ImpactScore, result.Sentiment, result.Reasoning,
		"historical_avg_impact", result.HistoricalAvgImpact)
	_ = decisionlog.Append(decisionlog.Entry{
		Pair:                pair,
		Approved:            approved,
		ImpactScore:         result.ImpactScore,
		Sentiment:           result.Sentiment,
		HistoricalAvgImpact: result.HistoricalAvgImpact,
		Reason:              result.Reasoning,
	})
	return approved
}

// analyze runs the full pipeline: news fetch, summarization, LLM correlation
// analysis, shared-memory write, historical average read.
func (e *Engine) analyze(ctx context.Context, pair string, rsi float64, closes []float64, now time.Time) (types.AnalysisResult, error) {
	items := e.news.SearchCryptoNews(ctx, pair, e.params.NewsTimeframe)
	summary := e.news.Summarize(items)

	if len(items) == 0 {
		logger.Info(ctx, "No recent news found", "pair", pair)
		return types.AnalysisResult{
			ImpactScore: 0.0,
			Sentiment:   types.SentimentNeutral,
			Confidence:  0.0,
			Reasoning:   "No recent news found",
		}, nil
	}

	priceChange := ta.PriceChangePct(closes)

	result := e.llm.AnalyzeCorrelation(ctx, summary, rsi, priceChange, pair)

	content := fmt.Sprintf("News: %s... | RSI: %.1f | Price Change: %.2f%% | Impact: %.2f | Sentiment: %s",
		truncate(summary, 100), rsi, priceChange, result.ImpactScore, result.Sentiment)

	err := e.mem.Record(ctx, pair, content, result.ImpactScore, map[string]any{
		"rsi":          rsi,
		"price_change": priceChange,
		"sentiment":    result.Sentiment,
		"timestamp":    now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		// A failed write means the cross-bot memory is not being updated.
		// Surfaced distinctly from a benign empty-news run.
		return types.AnalysisResult{}, fmt.Errorf("shared memory write failed: %w", err)
	}

	result.HistoricalAvgImpact = e.mem.AverageImpact(ctx, pair)
	logger.Info(ctx, "Historical impact retrieved", "pair", pair, "avg_impact", result.HistoricalAvgImpact)

	return result, nil
}

// AdvisorySignal produces the optional buy/sell/hold recommendation from the
// cached analysis. It never gates entries. Returns false when the engine is
// degraded or the pair has no cached analysis yet.
func (e *Engine) AdvisorySignal(ctx context.Context, pair string, rsi float64) (types.TradingSignal, bool) {
	if e.Degraded() {
		return types.TradingSignal{}, false
	}
	cached, ok := e.CachedResult(pair)
	if !ok {
		return types.TradingSignal{}, false
	}
	signal := e.llm.GenerateTradingSignal(ctx, pair, rsi, cached.Reasoning, cached.ImpactScore, cached.HistoricalAvgImpact)
	return signal, true
}

// evaluate applies the gating rule: approve iff the impact score clears the
// threshold and sentiment is positive.
func (e *Engine) evaluate(result *types.AnalysisResult) bool {
	return result.ImpactScore >= e.params.MinImpactScore && result.Sentiment == types.SentimentPositive
}

// freshResult returns the cached result when the pair's cooldown has not
// elapsed. Fresh→Stale happens when now - lastCheckedAt >= cooldown.
func (e *Engine) freshResult(pair string, now time.Time) (*types.AnalysisResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.pairs[pair]
	if !ok || st.cached == nil {
		return nil, false
	}
	if now.Sub(st.lastCheckedAt) >= e.params.CooldownInterval {
		return nil, false
	}
	return st.cached, true
}

func (e *Engine) store(pair string, result types.AnalysisResult, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pairs[pair] = &pairState{lastCheckedAt: now, cached: &result}
}

// CachedResult returns the last analysis for a pair, fresh or stale.
func (e *Engine) CachedResult(pair string) (types.AnalysisResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.pairs[pair]
	if !ok || st.cached == nil {
		return types.AnalysisResult{}, false
	}
	return *st.cached, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
