package market

import (
	"marketstream/internal/domain"
)

// payloadRing is a fixed-capacity ring of the most recently broadcast
// payloads, kept per hub for diagnostics only. The oldest entry is evicted
// once capacity is exceeded. Callers synchronize access via the hub lock.
type payloadRing struct {
	items    []*domain.CandleUpdate
	capacity int
	index    int // next write position
	size     int
}

func newPayloadRing(capacity int) *payloadRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &payloadRing{
		items:    make([]*domain.CandleUpdate, capacity),
		capacity: capacity,
	}
}

// Append records a payload, overwriting the oldest entry when full.
func (r *payloadRing) Append(u *domain.CandleUpdate) {
	r.items[r.index] = u
	r.index = (r.index + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Snapshot returns the retained payloads, oldest first.
func (r *payloadRing) Snapshot() []*domain.CandleUpdate {
	out := make([]*domain.CandleUpdate, 0, r.size)
	start := (r.index - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%r.capacity])
	}
	return out
}
