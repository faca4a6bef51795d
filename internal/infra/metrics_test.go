package infra

import (
	"sync"
	"testing"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordBroadcast()
	m.RecordBroadcast()
	m.RecordRejectedPayload()
	m.RecordPrunedClient()
	m.RecordReconnect()
	m.IncrementClients()
	m.IncrementClients()
	m.DecrementClients()

	snap := m.Snapshot()
	if snap.BroadcastsSent != 2 {
		t.Errorf("broadcasts_sent = %d, want 2", snap.BroadcastsSent)
	}
	if snap.PayloadsRejected != 1 {
		t.Errorf("payloads_rejected = %d, want 1", snap.PayloadsRejected)
	}
	if snap.ClientsPruned != 1 {
		t.Errorf("clients_pruned = %d, want 1", snap.ClientsPruned)
	}
	if snap.Reconnects != 1 {
		t.Errorf("reconnects = %d, want 1", snap.Reconnects)
	}
	if snap.ActiveClients != 1 {
		t.Errorf("active_clients = %d, want 1", snap.ActiveClients)
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordBroadcast()
				m.IncrementClients()
				m.DecrementClients()
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.BroadcastsSent != 1000 {
		t.Errorf("broadcasts_sent = %d, want 1000", snap.BroadcastsSent)
	}
	if snap.ActiveClients != 0 {
		t.Errorf("active_clients = %d, want 0", snap.ActiveClients)
	}
}
