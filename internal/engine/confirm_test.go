package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid-trading-bot/internal/types"
)

type mockNews struct {
	searchCalls int
	items       []types.NewsItem
}

func (m *mockNews) SearchCryptoNews(_ context.Context, pair, timeframe string) []types.NewsItem {
	m.searchCalls++
	return m.items
}

func (m *mockNews) Summarize(items []types.NewsItem) string {
	if len(items) == 0 {
		return "No recent news found."
	}
	return "1. headline: excerpt..."
}

type mockAnalyzer struct {
	analyzeCalls int
	signalCalls  int
	result       types.AnalysisResult
	signal       types.TradingSignal
}

func (m *mockAnalyzer) AnalyzeCorrelation(_ context.Context, newsSummary string, rsi, priceChangePct float64, pair string) types.AnalysisResult {
	m.analyzeCalls++
	return m.result
}

func (m *mockAnalyzer) GenerateTradingSignal(_ context.Context, pair string, rsi float64, newsSummary string, impactScore, historicalAvgImpact float64) types.TradingSignal {
	m.signalCalls++
	return m.signal
}

type mockMemory struct {
	recordCalls  int
	averageCalls int
	recordErr    error
	avgImpact    float64
	lastContent  string
	lastMetadata map[string]any
}

func (m *mockMemory) Record(_ context.Context, pair, content string, impactScore float64, metadata map[string]any) error {
	m.recordCalls++
	m.lastContent = content
	m.lastMetadata = metadata
	return m.recordErr
}

func (m *mockMemory) AverageImpact(_ context.Context, pair string) float64 {
	m.averageCalls++
	return m.avgImpact
}

func (m *mockMemory) Query(_ context.Context, pair string, limit int) ([]types.MemoryRecord, error) {
	return nil, nil
}

func newsItems() []types.NewsItem {
	return []types.NewsItem{{Title: "headline", Content: "excerpt", RelevanceScore: 0.8}}
}

func testEngine(t *testing.T, news *mockNews, analyzer *mockAnalyzer, mem *mockMemory) *Engine {
	t.Helper()
	t.Setenv("BOT_LOG_DIR", t.TempDir())
	return New(Params{
		MinImpactScore:   0.3,
		CooldownInterval: time.Hour,
		NewsTimeframe:    "24h",
	}, news, analyzer, mem)
}

func TestFirstCallRunsFullPipeline(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.5, Sentiment: types.SentimentPositive, Confidence: 0.9}}
	mem := &mockMemory{avgImpact: 0.45}
	eng := testEngine(t, news, analyzer, mem)

	now := time.Now()
	approved := eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, now)

	assert.True(t, approved)
	assert.Equal(t, 1, news.searchCalls)
	assert.Equal(t, 1, analyzer.analyzeCalls)
	assert.Equal(t, 1, mem.recordCalls)
	assert.Equal(t, 1, mem.averageCalls)

	cached, ok := eng.CachedResult("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, 0.45, cached.HistoricalAvgImpact)
}

func TestCooldownReplaysCachedDecision(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.5, Sentiment: types.SentimentPositive}}
	mem := &mockMemory{}
	eng := testEngine(t, news, analyzer, mem)

	now := time.Now()
	first := eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, now)

	// Within the cooldown window: same decision, no collaborator calls
	second := eng.ConfirmEntry(context.Background(), "BTC/USDT", 31.0, []float64{100, 99}, now.Add(30*time.Minute))

	assert.Equal(t, first, second)
	assert.Equal(t, 1, news.searchCalls)
	assert.Equal(t, 1, analyzer.analyzeCalls)
	assert.Equal(t, 1, mem.recordCalls)
}

func TestStaleTriggersFreshPipeline(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.5, Sentiment: types.SentimentPositive}}
	mem := &mockMemory{}
	eng := testEngine(t, news, analyzer, mem)

	now := time.Now()
	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, now)

	// Exactly at the cooldown boundary the cache is stale
	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, now.Add(time.Hour))

	assert.Equal(t, 2, news.searchCalls)
	assert.Equal(t, 2, analyzer.analyzeCalls)
}

func TestGatingRuleTruthTable(t *testing.T) {
	cases := []struct {
		name      string
		impact    float64
		sentiment string
		want      bool
	}{
		{"above threshold positive", 0.5, types.SentimentPositive, true},
		{"above threshold negative", 0.5, types.SentimentNegative, false},
		{"below threshold positive", 0.1, types.SentimentPositive, false},
		{"above threshold neutral", 0.9, types.SentimentNeutral, false},
		{"at threshold positive", 0.3, types.SentimentPositive, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			news := &mockNews{items: newsItems()}
			analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: tc.impact, Sentiment: tc.sentiment}}
			eng := testEngine(t, news, analyzer, &mockMemory{})

			got := eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, time.Now())
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDegradedModeAlwaysApproves(t *testing.T) {
	t.Setenv("BOT_LOG_DIR", t.TempDir())

	cases := []struct {
		name string
		eng  *Engine
	}{
		{"no collaborators", New(Params{MinImpactScore: 0.3}, nil, nil, nil)},
		{"no news", New(Params{MinImpactScore: 0.3}, nil, &mockAnalyzer{}, &mockMemory{})},
		{"no llm", New(Params{MinImpactScore: 0.3}, &mockNews{}, nil, &mockMemory{})},
		{"no memory", New(Params{MinImpactScore: 0.3}, &mockNews{}, &mockAnalyzer{}, nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.eng.Degraded())
			assert.True(t, tc.eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, time.Now()))
		})
	}
}

func TestDegradedModeSkipsCollaborators(t *testing.T) {
	news := &mockNews{items: newsItems()}
	mem := &mockMemory{}
	t.Setenv("BOT_LOG_DIR", t.TempDir())
	eng := New(Params{MinImpactScore: 0.3}, news, nil, mem)

	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, time.Now())

	assert.Zero(t, news.searchCalls)
	assert.Zero(t, mem.recordCalls)
}

func TestEmptyNewsCachesNeutralRejection(t *testing.T) {
	news := &mockNews{items: nil}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.9, Sentiment: types.SentimentPositive}}
	mem := &mockMemory{}
	eng := testEngine(t, news, analyzer, mem)

	approved := eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, time.Now())

	// Neutral sentiment rejects; the LLM and memory are never consulted
	assert.False(t, approved)
	assert.Equal(t, 1, news.searchCalls)
	assert.Zero(t, analyzer.analyzeCalls)
	assert.Zero(t, mem.recordCalls)

	cached, ok := eng.CachedResult("BTC/USDT")
	require.True(t, ok)
	assert.Equal(t, types.SentimentNeutral, cached.Sentiment)
	assert.Equal(t, "No recent news found", cached.Reasoning)
}

func TestMemoryWriteFailureApproves(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.9, Sentiment: types.SentimentNegative}}
	mem := &mockMemory{recordErr: errors.New("memory service down")}
	eng := testEngine(t, news, analyzer, mem)

	// Negative sentiment would reject, but the write failure collapses to approve
	approved := eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, time.Now())
	assert.True(t, approved)

	// Failed runs are not cached: the next call retries the pipeline
	_, ok := eng.CachedResult("BTC/USDT")
	assert.False(t, ok)
}

func TestMemoryRecordContent(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.75, Sentiment: types.SentimentPositive}}
	mem := &mockMemory{}
	eng := testEngine(t, news, analyzer, mem)

	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.5, []float64{100, 102}, time.Now())

	assert.Contains(t, mem.lastContent, "News: ")
	assert.Contains(t, mem.lastContent, "RSI: 28.5")
	assert.Contains(t, mem.lastContent, "Price Change: 2.00%")
	assert.Contains(t, mem.lastContent, "Impact: 0.75")
	assert.Contains(t, mem.lastContent, "Sentiment: positive")
	assert.Equal(t, 28.5, mem.lastMetadata["rsi"])
	assert.Equal(t, types.SentimentPositive, mem.lastMetadata["sentiment"])
}

func TestPairsAreIndependent(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.5, Sentiment: types.SentimentPositive}}
	mem := &mockMemory{}
	eng := testEngine(t, news, analyzer, mem)

	now := time.Now()
	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, now)

	// A different pair within BTC's cooldown still runs its own pipeline
	eng.ConfirmEntry(context.Background(), "ETH/USDT", 28.0, []float64{100, 102}, now.Add(time.Minute))

	assert.Equal(t, 2, news.searchCalls)
	assert.Equal(t, 2, analyzer.analyzeCalls)

	_, btcCached := eng.CachedResult("BTC/USDT")
	_, ethCached := eng.CachedResult("ETH/USDT")
	assert.True(t, btcCached)
	assert.True(t, ethCached)
}

func TestPriceChangeFromShortSeries(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{result: types.AnalysisResult{ImpactScore: 0.5, Sentiment: types.SentimentPositive}}
	mem := &mockMemory{}
	eng := testEngine(t, news, analyzer, mem)

	// A single close cannot produce a price change
	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100}, time.Now())

	assert.Equal(t, 0.0, mem.lastMetadata["price_change"])
}

func TestAdvisorySignal(t *testing.T) {
	news := &mockNews{items: newsItems()}
	analyzer := &mockAnalyzer{
		result: types.AnalysisResult{ImpactScore: 0.5, Sentiment: types.SentimentPositive},
		signal: types.TradingSignal{Action: types.ActionBuy, Confidence: 0.8},
	}
	eng := testEngine(t, news, analyzer, &mockMemory{})

	// No cached analysis yet
	_, ok := eng.AdvisorySignal(context.Background(), "BTC/USDT", 28.0)
	assert.False(t, ok)

	eng.ConfirmEntry(context.Background(), "BTC/USDT", 28.0, []float64{100, 102}, time.Now())

	signal, ok := eng.AdvisorySignal(context.Background(), "BTC/USDT", 28.0)
	require.True(t, ok)
	assert.Equal(t, types.ActionBuy, signal.Action)
	assert.Equal(t, 1, analyzer.signalCalls)
}

func TestAdvisorySignalDegraded(t *testing.T) {
	t.Setenv("BOT_LOG_DIR", t.TempDir())
	eng := New(Params{MinImpactScore: 0.3}, nil, nil, nil)

	_, ok := eng.AdvisorySignal(context.Background(), "BTC/USDT", 28.0)
	assert.False(t, ok)
}
