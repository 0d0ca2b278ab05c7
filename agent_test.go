// FILE: agent_test.go
package main

import (
	"testing"
	"time"
)

// fixedProposer always suggests the same trade.
type fixedProposer struct{ p Proposal }

func (f *fixedProposer) ID() string { return "fixed" }
func (f *fixedProposer) Propose(snap Snapshot, hist []Tick) (Proposal, bool) {
	return f.p, true
}

func TestAgentRunnerEmitsIntoBuffer(t *testing.T) {
	store := NewSnapshotStore(time.Minute, 10)
	store.Update(Snapshot{Instrument: "BTC/USDT", Price: 100, ObservedAt: time.Now().UTC()})
	buf := NewProposalBuffer()
	fp := &fixedProposer{p: Proposal{Side: SideBuy, SuggestedQuantity: 1, Confidence: 0.5}}
	r := NewAgentRunner(fp, store, buf, nil, []string{"BTC/USDT"}, time.Minute)

	r.evaluate()

	out := buf.Drain()
	if len(out) != 1 {
		t.Fatalf("want 1 buffered proposal, got %d", len(out))
	}
	p := out[0]
	if p.AgentID != "fixed" || p.Instrument != "BTC/USDT" || p.GeneratedAt.IsZero() {
		t.Fatalf("runner must stamp agent, instrument and timestamp: %+v", p)
	}
	h := r.Health()
	if h.Proposals != 1 || h.LastCycle.IsZero() {
		t.Fatalf("health = %+v", h)
	}
}

func TestAgentRunnerSkipsStaleSnapshot(t *testing.T) {
	store := NewSnapshotStore(time.Second, 10)
	store.Update(Snapshot{Instrument: "BTC/USDT", Price: 100, ObservedAt: time.Now().UTC().Add(-time.Minute)})
	buf := NewProposalBuffer()
	fp := &fixedProposer{p: Proposal{Side: SideBuy, SuggestedQuantity: 1, Confidence: 0.5}}
	r := NewAgentRunner(fp, store, buf, nil, []string{"BTC/USDT"}, time.Minute)

	r.evaluate()

	if buf.Pending() != 0 {
		t.Fatal("stale snapshot must not produce a proposal")
	}
	if h := r.Health(); h.Skips != 1 {
		t.Fatalf("skips = %d, want 1", h.Skips)
	}
}
