// FILE: snapshot.go
// Package main – Market snapshot store and feed polling.
//
// The SnapshotStore holds the latest price/indicator snapshot per instrument
// plus a bounded tick history the strategies read. Analysis agents never talk
// to the feed directly; they read the store, and a missing or stale snapshot
// means "no proposal this cycle" — never zero confidence.
//
// History is capped (cfg.HistoryMax) to keep memory and indicator cost
// stable regardless of uptime.
package main

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrUnavailable is returned by a MarketFeed when no snapshot can be served.
var ErrUnavailable = errors.New("market snapshot unavailable")

// Snapshot is the latest observed market state for one instrument.
type Snapshot struct {
	Instrument string             `json:"instrument"`
	Price      float64            `json:"price"`
	Volume     float64            `json:"volume"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	ObservedAt time.Time          `json:"observed_at"`
}

// MarketFeed is the external market-data collaborator.
type MarketFeed interface {
	GetSnapshot(ctx context.Context, instrument string) (Snapshot, error)
}

// Tick is one history entry kept per instrument for indicator computation.
type Tick struct {
	Price  float64
	Volume float64
	At     time.Time
}

// SnapshotStore is a concurrent-read store of latest snapshots and bounded
// per-instrument history. One writer (the feed poller), many readers.
type SnapshotStore struct {
	mu      sync.RWMutex
	maxAge  time.Duration
	histMax int
	latest  map[string]Snapshot
	history map[string][]Tick
}

func NewSnapshotStore(maxAge time.Duration, histMax int) *SnapshotStore {
	if histMax <= 0 {
		histMax = 500
	}
	return &SnapshotStore{
		maxAge:  maxAge,
		histMax: histMax,
		latest:  make(map[string]Snapshot),
		history: make(map[string][]Tick),
	}
}

// Update records a fresh snapshot and appends it to the instrument history.
func (s *SnapshotStore) Update(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[snap.Instrument] = snap
	h := append(s.history[snap.Instrument], Tick{Price: snap.Price, Volume: snap.Volume, At: snap.ObservedAt})
	if len(h) > s.histMax {
		h = h[len(h)-s.histMax:]
	}
	s.history[snap.Instrument] = h
}

// Latest returns the newest snapshot for the instrument and whether it is
// present AND fresh. A stale snapshot is returned with ok=false so callers
// can log the age.
func (s *SnapshotStore) Latest(instrument string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[instrument]
	if !ok {
		return Snapshot{}, false
	}
	if s.maxAge > 0 && time.Since(snap.ObservedAt) > s.maxAge {
		return snap, false
	}
	return snap, true
}

// History returns a copy of the instrument's tick history (oldest first).
func (s *SnapshotStore) History(instrument string) []Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[instrument]
	out := make([]Tick, len(h))
	copy(out, h)
	return out
}

// runFeedPoller refreshes the store for every configured instrument on a
// fixed cadence until ctx is cancelled. Feed failures are low-severity:
// the affected instrument just stays stale.
func runFeedPoller(ctx context.Context, feed MarketFeed, store *SnapshotStore, instruments []string, every time.Duration) {
	if every <= 0 {
		every = 15 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	poll := func() {
		for _, ins := range instruments {
			cctx, cancel := context.WithTimeout(ctx, every)
			snap, err := feed.GetSnapshot(cctx, ins)
			cancel()
			if err != nil {
				log.Printf("[FEED] %s snapshot unavailable: %v", ins, err)
				continue
			}
			store.Update(snap)
		}
	}

	poll() // prime before the first tick
	for {
		select {
		case <-ctx.Done():
			log.Printf("[FEED] poller shutdown")
			return
		case <-ticker.C:
			poll()
		}
	}
}

// ---- Paper feed (dry-run / tests) ----

// PaperFeed synthesizes a bounded random walk per instrument so the whole
// pipeline can run without an exchange connection.
type PaperFeed struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

func NewPaperFeed(seed int64) *PaperFeed {
	return &PaperFeed{
		rng:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]float64),
	}
}

// LastPrice returns the instrument's current walk price without advancing it.
func (f *PaperFeed) LastPrice(instrument string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prices[instrument]
}

func (f *PaperFeed) GetSnapshot(ctx context.Context, instrument string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	px, ok := f.prices[instrument]
	if !ok {
		// bootstrap price derived from the instrument name so pairs differ
		px = 100.0
		for _, r := range instrument {
			px += float64(r)
		}
	}
	// ±0.5% step
	px *= 1.0 + (f.rng.Float64()-0.5)*0.01
	px = math.Max(px, 0.01)
	f.prices[instrument] = px
	return Snapshot{
		Instrument: instrument,
		Price:      px,
		Volume:     1000 + f.rng.Float64()*500,
		ObservedAt: time.Now().UTC(),
	}, nil
}
