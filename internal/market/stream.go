package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marketstream/internal/domain"
	"marketstream/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second

	// emitInterval coalesces intra-bucket updates to roughly 1 Hz.
	// Bucket transitions always broadcast immediately.
	emitInterval = 1 * time.Second
)

// streamState is the aggregation state of one ingestion task. It survives
// reconnects: a task that loses the upstream connection resumes the same
// open candle after redialing.
type streamState struct {
	candle   *domain.CandleState
	lastEmit time.Time
}

// runStream is the hub's ingestion loop. It dials the upstream trade feed,
// folds trades into candles and broadcasts them, and reconnects with capped
// exponential backoff on any failure. The stop signal (ctx) is checked
// before each reconnect attempt and at each message read, so the loop exits
// within one read or one backoff sleep of cancellation. There is no retry
// limit: while subscribers remain, the loop keeps trying.
func (h *Hub) runStream(ctx context.Context) {
	streamURL := fmt.Sprintf("%s/%s@trade", h.feedURL, strings.ToLower(h.symbol))
	slog.Info("market stream starting",
		slog.String("symbol", h.symbol),
		slog.String("timeframe", h.timeframe))

	st := &streamState{}
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("market stream stopped",
				slog.String("symbol", h.symbol),
				slog.String("timeframe", h.timeframe))
			return
		default:
		}

		conn, err := h.dial(ctx, streamURL)
		if err != nil {
			h.metrics.RecordReconnect()
			nerr := classifyDialError(err)
			if domain.IsRetriable(nerr) {
				slog.Warn("upstream connect failed",
					slog.String("symbol", h.symbol),
					slog.Any("error", nerr),
					slog.Int("attempt", attempt))
			} else {
				slog.Error("upstream rejected the stream handshake",
					slog.String("symbol", h.symbol),
					slog.Any("error", nerr),
					slog.Int("attempt", attempt))
			}
			if !h.sleepBackoff(ctx, attempt) {
				return
			}
			attempt++
			continue
		}

		// A successful connection resets the backoff to its base delay.
		attempt = 0
		h.readLoop(ctx, conn, st)
		conn.Close()

		if ctx.Err() != nil {
			slog.Info("market stream stopped",
				slog.String("symbol", h.symbol),
				slog.String("timeframe", h.timeframe))
			return
		}

		h.metrics.RecordReconnect()
		if !h.sleepBackoff(ctx, attempt) {
			return
		}
		attempt++
	}
}

func (h *Hub) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	return conn, err
}

// classifyDialError separates transport failures, which are expected to heal,
// from handshake rejections, which will keep failing until the upstream or
// the configuration changes. Both are retried regardless; the class only
// drives log severity.
func classifyDialError(err error) *domain.NetworkError {
	if errors.Is(err, websocket.ErrBadHandshake) {
		return domain.NewFatalNetworkError("dial", err)
	}
	return domain.NewNetworkError("dial", err)
}

// sleepBackoff waits out the backoff delay for the given attempt, or returns
// false if the stop signal arrives first.
func (h *Hub) sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(infra.CalculateBackoff(attempt)):
		return true
	}
}

// readLoop consumes upstream messages until the connection drops or the
// stop signal arrives. Malformed messages are dropped individually; the
// connection is unaffected.
func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, st *streamState) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("upstream read failed",
					slog.String("symbol", h.symbol),
					slog.Any("error", domain.NewNetworkError("read", err)))
			}
			return
		}

		trade, err := domain.ParseTrade(raw)
		if err != nil {
			// Malformed frame: drop it, keep streaming.
			continue
		}

		h.handleTrade(st, trade)
	}
}

// handleTrade runs one trade through the aggregator and emits the resulting
// broadcasts: synthetic gap candles first on a rollover that skipped
// buckets, then the opened candle immediately, or the updated candle
// subject to 1 Hz coalescing.
func (h *Hub) handleTrade(st *streamState, trade domain.Trade) {
	next, opened := h.agg.Apply(st.candle, trade)

	if !opened {
		if time.Since(st.lastEmit) >= emitInterval {
			h.Broadcast(domain.NewCandleUpdate(h.symbol, h.timeframe, *st.candle, trade.EventTimeMs))
			st.lastEmit = time.Now()
			h.recordPrice(trade.Price)
		}
		return
	}

	if st.candle != nil && next.BucketStart > st.candle.BucketStart {
		for _, gap := range h.agg.MissingCandles(*st.candle, next.BucketStart) {
			h.Broadcast(domain.NewCandleUpdate(h.symbol, h.timeframe, gap, gap.BucketStart*1000))
		}
		h.recordClosed(*st.candle)
	}

	st.candle = next
	h.Broadcast(domain.NewCandleUpdate(h.symbol, h.timeframe, *st.candle, trade.EventTimeMs))
	st.lastEmit = time.Now()
	h.recordPrice(trade.Price)
}

// recordClosed hands a closed bucket to the recorder without blocking the
// ingestion loop.
func (h *Hub) recordClosed(c domain.CandleState) {
	if h.recorder == nil {
		return
	}
	go h.recorder.RecordCandle(context.Background(), h.symbol, h.timeframe, c)
}

func (h *Hub) recordPrice(price float64) {
	if h.recorder == nil {
		return
	}
	go h.recorder.RecordPrice(context.Background(), h.symbol, price)
}
