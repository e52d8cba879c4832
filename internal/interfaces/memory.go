package interfaces

import (
	"context"

	"hybrid-trading-bot/internal/types"
)

// MemoryStore is the cross-bot shared memory of past analysis outcomes.
// Record propagates write failures; AverageImpact absorbs read failures
// and reports 0.0 so the gating decision can degrade gracefully.
type MemoryStore interface {
	Record(ctx context.Context, pair, content string, impactScore float64, metadata map[string]any) error
	AverageImpact(ctx context.Context, pair string) float64
	Query(ctx context.Context, pair string, limit int) ([]types.MemoryRecord, error)
}
