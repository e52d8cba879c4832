package types

// Candle is one OHLCV bar supplied by the feed.
type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// ChatMessage is a single message in an LLM conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalysisResult is the parsed outcome of one news/price correlation analysis.
// HistoricalAvgImpact is attached by the engine after the shared-memory read.
type AnalysisResult struct {
	ImpactScore         float64 `json:"impact_score"`
	Sentiment           string  `json:"sentiment"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	HistoricalAvgImpact float64 `json:"historical_avg_impact,omitempty"`
}

// TradingSignal is the advisory buy/sell/hold recommendation. It never gates
// an entry; callers may surface it for operators.
type TradingSignal struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// NewsItem is one result from the news search service. Transient: consumed
// immediately for summarization, never persisted.
type NewsItem struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	URL            string  `json:"url,omitempty"`
	PublishedAt    string  `json:"published_at,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// MemoryRecord is one entry in the cross-bot shared memory, keyed by pair.
type MemoryRecord struct {
	Pair        string         `json:"entity"`
	Content     string         `json:"content"`
	ImpactScore float64        `json:"impact_score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Sentiment values the LLM is asked to produce.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Advisory signal actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)
