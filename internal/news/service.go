package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hybrid-trading-bot/internal/interfaces"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/types"
)

const (
	// maxSearchResults bounds how many items one search may return.
	maxSearchResults = 5
	// summaryItems is how many items the summary enumerates.
	summaryItems = 3
	// summaryExcerptLen is the per-item content excerpt length.
	summaryExcerptLen = 150

	noNewsSummary = "No recent news found."
)

// Service retrieves and summarizes news for trading pairs. The search service
// is the primary source; when it yields nothing, the Google News scraper is
// tried as a fallback.
type Service struct {
	client  *Client
	scraper *Scraper
}

// Compile-time interface check
var _ interfaces.NewsSearcher = (*Service)(nil)

func NewService(url, apiKey string) *Service {
	return &Service{
		client:  NewClient(url, apiKey),
		scraper: NewScraper(30 * time.Second),
	}
}

// SearchCryptoNews returns up to five most-relevant recent items about the
// pair's base asset. Never returns an error: failures degrade to no news.
func (s *Service) SearchCryptoNews(ctx context.Context, pair, timeframe string) []types.NewsItem {
	items := s.client.SearchCryptoNews(ctx, pair, timeframe)
	if len(items) > 0 {
		return items
	}

	base, _, _ := strings.Cut(pair, "/")
	logger.Info(ctx, "No items from search service, trying Google News", "pair", pair)
	return s.scraper.ScrapeGoogleNews(ctx, base, maxSearchResults)
}

// Summarize condenses search results into a short enumerated digest for
// prompting.
func (s *Service) Summarize(items []types.NewsItem) string {
	if len(items) == 0 {
		return noNewsSummary
	}

	parts := make([]string, 0, summaryItems)
	for i, item := range items {
		if i >= summaryItems {
			break
		}
		content := item.Content
		if len(content) > summaryExcerptLen {
			content = content[:summaryExcerptLen]
		}
		parts = append(parts, fmt.Sprintf("%d. %s: %s...", i+1, item.Title, content))
	}

	return strings.Join(parts, "\n")
}
