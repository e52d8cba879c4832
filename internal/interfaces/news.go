package interfaces

import (
	"context"

	"hybrid-trading-bot/internal/types"
)

// NewsSearcher retrieves and condenses recent news for a trading pair.
// SearchCryptoNews never returns an error: absence of news is a valid state.
type NewsSearcher interface {
	SearchCryptoNews(ctx context.Context, pair, timeframe string) []types.NewsItem
	Summarize(items []types.NewsItem) string
}
