package feed

import (
	"context"
	"math/rand"
	"time"

	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/types"
)

// Static produces synthetic random-walk candles. The runner uses it so the
// confirmation pipeline can be exercised without any exchange connectivity.
type Static struct {
	base float64
}

func NewStatic() *Static {
	return &Static{base: 1000.0}
}

// RecentCandles returns n synthetic one-minute candles ending now.
func (f *Static) RecentCandles(ctx context.Context, pair string, n int) ([]types.Candle, error) {
	cs := make([]types.Candle, 0, n)
	now := time.Now().Unix()
	for i := n; i > 0; i-- {
		c := f.base + float64(i) + (rand.Float64()-0.5)*5
		h := c + rand.Float64()*3
		l := c - rand.Float64()*3
		cs = append(cs, types.Candle{Ts: now - int64((n-i+1)*60), Open: c - 0.5, High: h, Low: l, Close: c, Vol: rand.Float64() * 1000})
	}

	logger.Debug(ctx, "Candles generated", "pair", pair, "count", len(cs))
	return cs, nil
}

// Closes extracts the close series from candles.
func Closes(candles []types.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
