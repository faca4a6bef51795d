package market

import (
	"context"
	"log/slog"
	"sync"

	"marketstream/internal/domain"
	"marketstream/internal/infra"
)

const recentPayloadCapacity = 5

// Sender delivers one payload to a connected subscriber. Implementations
// must be safe for concurrent use; a returned error marks the subscriber
// dead and gets it pruned from the hub.
type Sender interface {
	Send(u *domain.CandleUpdate) error
}

// Hub owns the subscriber set and the ingestion task for one
// (symbol, timeframe) pair. Created lazily by the registry and never
// destroyed; its ingestion task starts and stops as subscribers come and go.
//
// All mutable state (client set, task handle) is guarded by mu. Membership
// changes and task lifecycle decisions happen atomically under the same
// lock acquisition.
type Hub struct {
	symbol    string // uppercased
	timeframe string
	agg       Aggregator

	feedURL  string
	recorder Recorder
	metrics  *infra.Metrics

	mu        sync.Mutex
	clients   map[Sender]struct{}
	streamCtx context.Context // context of the current ingestion task
	cancel    context.CancelFunc
	done      chan struct{} // closed when the ingestion task exits
	recent    *payloadRing
}

func newHub(symbol, timeframe string, bucketSeconds int64, feedURL string, rec Recorder, m *infra.Metrics) *Hub {
	return &Hub{
		symbol:    symbol,
		timeframe: timeframe,
		agg:       NewAggregator(bucketSeconds),
		feedURL:   feedURL,
		recorder:  rec,
		metrics:   m,
		clients:   make(map[Sender]struct{}),
		recent:    newPayloadRing(recentPayloadCapacity),
	}
}

// Symbol returns the hub's uppercased symbol.
func (h *Hub) Symbol() string { return h.symbol }

// Timeframe returns the hub's canonical timeframe key.
func (h *Hub) Timeframe() string { return h.timeframe }

// Connect adds a subscriber and starts the ingestion task if none is
// serving. The serving check and the start decision happen under the same
// lock acquisition as the membership change, so concurrent connects race
// safely and exactly one task serves. A task whose stop was already
// requested never serves new subscribers: it is replaced immediately and
// winds down on its own, closing its own done channel.
func (h *Hub) Connect(c Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	h.metrics.IncrementClients()

	if !h.runningLocked() || h.streamCtx.Err() != nil {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		h.streamCtx = ctx
		h.cancel = cancel
		h.done = done
		go func() {
			defer close(done)
			h.runStream(ctx)
		}()
	}
}

// Disconnect removes a subscriber. When the set empties and a task is
// running, the task is asked to stop; it observes the signal at the next
// message read or backoff sleep.
func (h *Hub) Disconnect(c Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.metrics.DecrementClients()
	}
	if len(h.clients) == 0 && h.runningLocked() {
		h.cancel()
	}
}

// runningLocked reports whether an ingestion task is alive. Caller holds mu.
func (h *Hub) runningLocked() bool {
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Streaming reports whether the hub's ingestion task is currently running.
func (h *Hub) Streaming() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runningLocked()
}

// ClientCount returns the current number of subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RecentPayloads returns the last broadcast payloads, oldest first.
func (h *Hub) RecentPayloads() []*domain.CandleUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recent.Snapshot()
}

// Broadcast validates a payload, records it in the diagnostics ring, and
// delivers it to every subscriber independently. Delivery is best-effort:
// a failure on one subscriber does not affect the others, and failed
// subscribers are pruned afterwards under the lock. Delivery itself runs on
// a snapshot of the client set so slow sends never block connect/disconnect.
func (h *Hub) Broadcast(u *domain.CandleUpdate) {
	if !u.Valid() {
		h.metrics.RecordRejectedPayload()
		slog.Warn("skipping invalid candle payload",
			slog.String("symbol", h.symbol),
			slog.String("timeframe", h.timeframe))
		return
	}

	h.mu.Lock()
	h.recent.Append(u)
	targets := make([]Sender, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	var failed []Sender
	for _, c := range targets {
		if err := c.Send(u); err != nil {
			failed = append(failed, c)
		}
	}
	h.metrics.RecordBroadcast()

	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range failed {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			h.metrics.DecrementClients()
			h.metrics.RecordPrunedClient()
		}
	}
	h.mu.Unlock()
	slog.Info("pruned dead subscribers",
		slog.String("symbol", h.symbol),
		slog.String("timeframe", h.timeframe),
		slog.Int("count", len(failed)))
}
