package market

import (
	"strings"
	"sync"

	"marketstream/internal/domain"
	"marketstream/internal/infra"
)

// Registry maps (symbol, timeframe) to its hub. Entries are created lazily
// on first lookup and never evicted; hub ingestion tasks start and stop with
// subscriber churn, but the hub objects persist for the process lifetime.
type Registry struct {
	feedURL  string
	recorder Recorder
	metrics  *infra.Metrics

	mu   sync.Mutex
	hubs map[string]*Hub
}

// NewRegistry creates an empty registry. feedURL is the upstream websocket
// base (the per-symbol stream path is appended by each hub). recorder may
// be nil when no persistence collaborators are configured.
func NewRegistry(feedURL string, rec Recorder, m *infra.Metrics) *Registry {
	return &Registry{
		feedURL:  feedURL,
		recorder: rec,
		metrics:  m,
		hubs:     make(map[string]*Hub),
	}
}

// Hub returns the hub for the given key, creating it on first use. The
// timeframe is validated against the fixed table before any lookup;
// anything else fails with ErrUnsupportedTimeframe. Symbols are
// case-insensitive: "btcusdt" and "BTCUSDT" share one hub.
func (r *Registry) Hub(symbol, timeframe string) (*Hub, error) {
	bucketSeconds, ok := domain.TimeframeSeconds[timeframe]
	if !ok {
		return nil, domain.ErrUnsupportedTimeframe
	}

	symbol = strings.ToUpper(symbol)
	key := symbol + "|" + timeframe

	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[key]
	if !ok {
		hub = newHub(symbol, timeframe, bucketSeconds, r.feedURL, r.recorder, r.metrics)
		r.hubs[key] = hub
	}
	return hub, nil
}

// Snapshot returns every hub created so far, for diagnostics.
func (r *Registry) Snapshot() []*Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Hub, 0, len(r.hubs))
	for _, h := range r.hubs {
		out = append(out, h)
	}
	return out
}
