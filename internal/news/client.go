package news

import (
	"context"
	"strings"
	"time"

	"hybrid-trading-bot/internal/api"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/trace"
	"hybrid-trading-bot/internal/types"
)

// Client queries the AI news search service (Perplexica-compatible API).
type Client struct {
	http *api.Client
}

// NewClient creates a news search client. apiKey may be empty for
// unauthenticated deployments.
func NewClient(url, apiKey string) *Client {
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(url, "/")),
		api.WithTimeout(30 * time.Second),
		api.WithLogging(true),
	}
	if apiKey != "" {
		opts = append(opts, api.WithBearerToken(apiKey))
	}
	return &Client{http: api.NewClient(opts...)}
}

type searchRequest struct {
	Query string `json:"query"`
	Focus string `json:"focus"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results []types.NewsItem `json:"results"`
}

// Search queries the service for news matching the query. Transport and HTTP
// failures yield an empty slice: absence of news is an expected state, not an
// error the caller has to handle.
func (c *Client) Search(ctx context.Context, query string, limit int) []types.NewsItem {
	ctx, span := trace.StartSpan(ctx, "news.Search")
	defer span.End()

	var resp searchResponse
	req := api.NewRequest("POST", "/api/search").
		WithContext(ctx).
		WithBody(searchRequest{Query: query, Focus: "news", Limit: limit})

	if err := c.http.DoJSON(req, &resp); err != nil {
		logger.ErrorWithErr(ctx, "News search failed", err, "query", query)
		return nil
	}

	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}

	logger.Debug(ctx, "News search completed", "query", query, "results", len(results))
	return results
}

// SearchCryptoNews fetches recent news about the base asset of a trading pair.
func (c *Client) SearchCryptoNews(ctx context.Context, pair, timeframe string) []types.NewsItem {
	base, _, _ := strings.Cut(pair, "/")
	query := base + " cryptocurrency news price analysis last " + timeframe
	return c.Search(ctx, query, maxSearchResults)
}
