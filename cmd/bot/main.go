package main

import (
	"context"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hybrid-trading-bot/internal/engine"
	"hybrid-trading-bot/internal/feed"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/ta"
	"hybrid-trading-bot/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	must(err)

	compressOldLogs(ctx)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	eng := initializeEngine(ctx, cfg)
	candles := feed.NewStatic()

	tick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer tick.Stop()

	logger.Info(ctx, "Bot started", "pairs", cfg.Pairs, "poll_seconds", cfg.PollSeconds)
	for {
		select {
		case <-tick.C:
			for _, pair := range cfg.Pairs {
				step(ctx, cfg.Strategy.RSIPeriod, pair, eng, candles)
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = trace.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func step(ctx context.Context, rsiPeriod int, pair string, eng *engine.Engine, candles *feed.Static) {
	cs, err := candles.RecentCandles(ctx, pair, 250)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch candles", err, "pair", pair)
		return
	}

	closes := feed.Closes(cs)
	rsi := ta.RSI(closes, rsiPeriod)
	if math.IsNaN(rsi) {
		logger.Warn(ctx, "Insufficient candle data for RSI", "pair", pair, "candles", len(cs))
		return
	}

	approved := eng.ConfirmEntry(ctx, pair, rsi, closes, time.Now())
	logger.Info(ctx, "Entry evaluated", "pair", pair, "rsi", rsi, "approved", approved)

	if approved {
		if signal, ok := eng.AdvisorySignal(ctx, pair, rsi); ok {
			logger.Info(ctx, "Advisory signal", "pair", pair, "action", signal.Action, "confidence", signal.Confidence)
		}
	}
}
