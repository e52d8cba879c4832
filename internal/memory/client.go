package memory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"hybrid-trading-bot/internal/api"
	"hybrid-trading-bot/internal/interfaces"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/trace"
	"hybrid-trading-bot/internal/types"
)

// historyLimit caps how many recent records the average is computed over.
// It is part of the consistency/performance contract with the memory service.
const historyLimit = 50

// Client talks to the shared graph-memory service. Analysis outcomes written
// here are visible to every bot instance trading the same pair.
type Client struct {
	http *api.Client
}

// Compile-time interface check
var _ interfaces.MemoryStore = (*Client)(nil)

func NewClient(serviceURL, token string) *Client {
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(serviceURL, "/")),
		api.WithTimeout(30 * time.Second),
		api.WithLogging(true),
	}
	if token != "" {
		opts = append(opts, api.WithBearerToken(token))
	}
	return &Client{http: api.NewClient(opts...)}
}

type addMemoryRequest struct {
	Entity   string         `json:"entity"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type memoryEntry struct {
	Entity   string         `json:"entity"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Record appends one analysis outcome for a pair. Write failures propagate:
// a lost write means the cross-bot memory is silently diverging, so the
// caller must see it.
func (c *Client) Record(ctx context.Context, pair, content string, impactScore float64, metadata map[string]any) error {
	ctx, span := trace.StartSpan(ctx, "memory.Record")
	defer span.End()

	md := map[string]any{
		"impact_score": impactScore,
		"type":         "trading_signal",
	}
	for k, v := range metadata {
		md[k] = v
	}

	req := api.NewRequest("POST", "/api/memory").
		WithContext(ctx).
		WithBody(addMemoryRequest{Entity: pair, Content: content, Metadata: md})

	if err := c.http.DoJSON(req, nil); err != nil {
		return fmt.Errorf("failed to record memory for %s: %w", pair, err)
	}

	logger.Debug(ctx, "Memory recorded", "pair", pair, "impact_score", impactScore)
	return nil
}

// Query fetches up to limit most-recent records for a pair.
func (c *Client) Query(ctx context.Context, pair string, limit int) ([]types.MemoryRecord, error) {
	ctx, span := trace.StartSpan(ctx, "memory.Query")
	defer span.End()

	path := fmt.Sprintf("/api/memory/search?entity=%s&limit=%d", url.QueryEscape(pair), limit)

	var entries []memoryEntry
	req := api.NewRequest("GET", path).WithContext(ctx)
	if err := c.http.DoJSON(req, &entries); err != nil {
		return nil, fmt.Errorf("failed to query memory for %s: %w", pair, err)
	}

	records := make([]types.MemoryRecord, 0, len(entries))
	for _, e := range entries {
		rec := types.MemoryRecord{Pair: e.Entity, Content: e.Content, Metadata: e.Metadata}
		if score, ok := e.Metadata["impact_score"].(float64); ok {
			rec.ImpactScore = score
		}
		records = append(records, rec)
	}
	return records, nil
}

// impactScores extracts historical impact scores for a pair. Records without
// an impact score in their metadata are skipped.
func (c *Client) impactScores(ctx context.Context, pair string) ([]float64, error) {
	records, err := c.Query(ctx, pair, historyLimit)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, len(records))
	for _, rec := range records {
		if _, ok := rec.Metadata["impact_score"]; ok {
			scores = append(scores, rec.ImpactScore)
		}
	}
	return scores, nil
}

// AverageImpact is the unweighted mean of the last 50 impact scores for a
// pair. Empty history and read failures both yield 0.0: the gating decision
// degrades gracefully rather than blocking on a memory outage.
func (c *Client) AverageImpact(ctx context.Context, pair string) float64 {
	ctx, span := trace.StartSpan(ctx, "memory.AverageImpact")
	defer span.End()

	scores, err := c.impactScores(ctx, pair)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to read impact history", err, "pair", pair)
		return 0.0
	}
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
