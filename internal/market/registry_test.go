package market

import (
	"errors"
	"testing"

	"marketstream/internal/domain"
	"marketstream/internal/infra"
)

func TestRegistryHub(t *testing.T) {
	r := NewRegistry("ws://unused", nil, infra.NewMetrics())

	h1, err := r.Hub("BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("Hub: %v", err)
	}
	if h1.Symbol() != "BTCUSDT" || h1.Timeframe() != "1m" {
		t.Errorf("hub identity = %s/%s", h1.Symbol(), h1.Timeframe())
	}

	h2, err := r.Hub("BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("Hub: %v", err)
	}
	if h1 != h2 {
		t.Error("same key returned distinct hubs")
	}

	// Symbols are case-insensitive.
	h3, err := r.Hub("btcusdt", "1m")
	if err != nil {
		t.Fatalf("Hub: %v", err)
	}
	if h3 != h1 {
		t.Error("lowercase symbol returned a distinct hub")
	}

	// A different timeframe is a different hub.
	h4, err := r.Hub("BTCUSDT", "5m")
	if err != nil {
		t.Fatalf("Hub: %v", err)
	}
	if h4 == h1 {
		t.Error("different timeframe shares a hub")
	}

	if n := len(r.Snapshot()); n != 2 {
		t.Errorf("snapshot = %d hubs, want 2", n)
	}
}

func TestRegistryUnsupportedTimeframe(t *testing.T) {
	r := NewRegistry("ws://unused", nil, infra.NewMetrics())

	for _, tf := range []string{"2h", "1d", "", "60"} {
		if _, err := r.Hub("BTCUSDT", tf); !errors.Is(err, domain.ErrUnsupportedTimeframe) {
			t.Errorf("Hub(%q) error = %v, want ErrUnsupportedTimeframe", tf, err)
		}
	}

	if n := len(r.Snapshot()); n != 0 {
		t.Errorf("rejected lookups created %d hubs", n)
	}
}
