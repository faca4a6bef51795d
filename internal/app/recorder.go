package app

import (
	"context"
	"log/slog"
	"time"

	"marketstream/internal/domain"
	"marketstream/internal/infra/cache"
	"marketstream/internal/infra/storage"
)

const recordTimeout = 2 * time.Second

// StreamRecorder forwards closed candles and fresh prices from the hubs to
// the persistence collaborators. Hubs call it on their own goroutines and
// never wait for the result; every failure ends here as a log line.
type StreamRecorder struct {
	store *storage.Storage
	cache *cache.Cache
}

// NewStreamRecorder creates a recorder over the configured collaborators.
// Either may be nil.
func NewStreamRecorder(store *storage.Storage, kv *cache.Cache) *StreamRecorder {
	return &StreamRecorder{store: store, cache: kv}
}

// RecordCandle persists one closed bucket as a historical row and as the
// symbol's last-candle cache entry.
func (r *StreamRecorder) RecordCandle(ctx context.Context, symbol, timeframe string, c domain.CandleState) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if r.store != nil {
		row := &domain.CandleRow{
			Symbol:      symbol,
			Timeframe:   timeframe,
			BucketStart: c.BucketStart,
			Open:        c.Open,
			High:        c.High,
			Low:         c.Low,
			Close:       c.Close,
			Volume:      c.Volume,
		}
		if err := r.store.InsertCandle(ctx, row); err != nil {
			slog.Warn("failed to persist closed candle",
				slog.String("symbol", symbol),
				slog.String("timeframe", timeframe),
				slog.Any("error", err))
		}
	}

	if r.cache != nil {
		if err := r.cache.SetLastCandle(ctx, symbol, c); err != nil {
			slog.Warn("failed to cache last candle",
				slog.String("symbol", symbol),
				slog.Any("error", err))
		}
	}
}

// RecordPrice refreshes the symbol's last-price cache entry.
func (r *StreamRecorder) RecordPrice(ctx context.Context, symbol string, price float64) {
	if r.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := r.cache.SetLastPrice(ctx, symbol, price); err != nil {
		slog.Warn("failed to cache last price",
			slog.String("symbol", symbol),
			slog.Any("error", err))
	}
}
