package server

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vpnrelay/metrics"
)

func TestReaper_RemovesStaleSessionsOnly(t *testing.T) {
	table := NewTable(nil)
	fresh := newTestSession("fresh:1")
	stale := newTestSession("stale:1")
	stale.LastSeen = time.Now().Add(-2 * StaleThreshold)
	table.Add(fresh)
	table.Add(stale)

	r := NewReaper(table, 5*time.Millisecond, metrics.NewServer(), zerolog.Nop())

	var shutdown atomic.Bool
	done := make(chan error, 1)
	go func() { done <- r.Run(&shutdown) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := table.Get("stale:1"); !ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	shutdown.Store(true)

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, ok := table.Get("stale:1"); ok {
		t.Fatalf("expected stale session reaped")
	}
	if _, ok := table.Get("fresh:1"); !ok {
		t.Fatalf("expected fresh session to survive")
	}
}

func TestReaper_StopsOnShutdownFlag(t *testing.T) {
	table := NewTable(nil)
	r := NewReaper(table, 2*time.Millisecond, metrics.NewServer(), zerolog.Nop())

	var shutdown atomic.Bool
	done := make(chan error, 1)
	go func() { done <- r.Run(&shutdown) }()

	time.Sleep(10 * time.Millisecond)
	shutdown.Store(true)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after shutdown flag was set")
	}
}
