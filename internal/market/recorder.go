package market

import (
	"context"

	"marketstream/internal/domain"
)

// Recorder receives closed candles and fresh prices for out-of-band
// persistence (historical rows, last-price/last-candle cache). Hubs invoke
// it from separate goroutines and never wait on it; implementations own
// their timeouts and report failures through logging only.
type Recorder interface {
	RecordCandle(ctx context.Context, symbol, timeframe string, c domain.CandleState)
	RecordPrice(ctx context.Context, symbol string, price float64)
}
