// FILE: snapshot_test.go
package main

import (
	"context"
	"testing"
	"time"
)

func TestSnapshotStoreFreshness(t *testing.T) {
	s := NewSnapshotStore(time.Second, 10)

	if _, ok := s.Latest("BTC/USDT"); ok {
		t.Fatal("missing instrument must not be fresh")
	}

	s.Update(Snapshot{Instrument: "BTC/USDT", Price: 100, ObservedAt: time.Now().UTC()})
	if _, ok := s.Latest("BTC/USDT"); !ok {
		t.Fatal("freshly updated snapshot must be fresh")
	}

	s.Update(Snapshot{Instrument: "ETH/USDT", Price: 50, ObservedAt: time.Now().UTC().Add(-2 * time.Second)})
	snap, ok := s.Latest("ETH/USDT")
	if ok {
		t.Fatal("snapshot older than maxAge must not be fresh")
	}
	if snap.Price != 50 {
		t.Fatal("stale snapshot is still returned for logging")
	}
}

func TestSnapshotStoreHistoryCap(t *testing.T) {
	s := NewSnapshotStore(time.Minute, 5)
	for i := 0; i < 10; i++ {
		s.Update(Snapshot{Instrument: "BTC/USDT", Price: float64(100 + i), ObservedAt: time.Now().UTC()})
	}
	h := s.History("BTC/USDT")
	if len(h) != 5 {
		t.Fatalf("history length = %d, want cap of 5", len(h))
	}
	if h[0].Price != 105 || h[4].Price != 109 {
		t.Fatalf("history must keep the newest entries, got first=%v last=%v", h[0].Price, h[4].Price)
	}
}

func TestPaperFeedWalk(t *testing.T) {
	f := NewPaperFeed(42)
	a, err := f.GetSnapshot(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatal(err)
	}
	if a.Price <= 0 {
		t.Fatalf("price must be positive, got %v", a.Price)
	}
	if f.LastPrice("BTC/USDT") != a.Price {
		t.Fatal("LastPrice must return the current walk price")
	}
	b, _ := f.GetSnapshot(context.Background(), "BTC/USDT")
	if b.Price == a.Price {
		t.Fatal("walk should step between snapshots")
	}
	// instruments walk independently
	e, _ := f.GetSnapshot(context.Background(), "ETH/USDT")
	if e.Price == b.Price {
		t.Fatal("instruments must bootstrap to different prices")
	}
}
