package infra

import (
	"sync/atomic"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	broadcastsSent   atomic.Uint64
	payloadsRejected atomic.Uint64
	clientsPruned    atomic.Uint64
	reconnects       atomic.Uint64

	// Gauges
	activeClients atomic.Int32
}

// MetricsSnapshot is a point-in-time copy of every counter and gauge.
type MetricsSnapshot struct {
	BroadcastsSent   uint64 `json:"broadcasts_sent"`
	PayloadsRejected uint64 `json:"payloads_rejected"`
	ClientsPruned    uint64 `json:"clients_pruned"`
	Reconnects       uint64 `json:"reconnects"`
	ActiveClients    int32  `json:"active_clients"`
}

// NewMetrics creates an empty metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordBroadcast records one completed fan-out pass.
func (m *Metrics) RecordBroadcast() {
	m.broadcastsSent.Add(1)
}

// RecordRejectedPayload records a payload dropped by validation.
func (m *Metrics) RecordRejectedPayload() {
	m.payloadsRejected.Add(1)
}

// RecordPrunedClient records a subscriber removed after a failed delivery.
func (m *Metrics) RecordPrunedClient() {
	m.clientsPruned.Add(1)
}

// RecordReconnect records an upstream reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// IncrementClients increments the active subscriber gauge by 1.
func (m *Metrics) IncrementClients() {
	m.activeClients.Add(1)
}

// DecrementClients decrements the active subscriber gauge by 1.
func (m *Metrics) DecrementClients() {
	m.activeClients.Add(-1)
}

// Snapshot returns a consistent-enough copy for reporting.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		BroadcastsSent:   m.broadcastsSent.Load(),
		PayloadsRejected: m.payloadsRejected.Load(),
		ClientsPruned:    m.clientsPruned.Load(),
		Reconnects:       m.reconnects.Load(),
		ActiveClients:    m.activeClients.Load(),
	}
}
