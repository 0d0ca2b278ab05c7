// FILE: agent.go
// Package main – Analysis agent framework.
//
// A Proposer is one strategy's capability: look at the latest snapshot plus
// history and maybe suggest a trade. Concrete strategies (see strategies.go)
// are registered at startup — not dynamically discovered — and each runs in
// its own goroutine on its own cadence, so agents never block each other.
//
// A stale or missing snapshot means "no proposal this cycle" for that
// instrument; it is logged at low severity and counted, never treated as a
// zero-confidence signal.
package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// Proposer is the polymorphic strategy capability.
type Proposer interface {
	ID() string
	// Propose returns a proposal for the instrument, or false when the
	// strategy has nothing to say this cycle.
	Propose(snap Snapshot, hist []Tick) (Proposal, bool)
}

// AgentHealth is the outward health signal per analysis agent.
type AgentHealth struct {
	AgentID      string    `json:"agent_id"`
	LastCycle    time.Time `json:"last_cycle"`    // last completed evaluation pass
	LastProposal time.Time `json:"last_proposal"` // last emitted proposal
	Proposals    uint64    `json:"proposals"`
	Skips        uint64    `json:"skips"` // stale/missing snapshot skips
}

// AgentRunner drives one Proposer over all configured instruments on its own
// ticker cadence, emitting into the shared proposal buffer.
type AgentRunner struct {
	agent       Proposer
	store       *SnapshotStore
	buf         *ProposalBuffer
	journal     *Journal
	instruments []string
	every       time.Duration

	mu     sync.Mutex
	health AgentHealth
}

func NewAgentRunner(agent Proposer, store *SnapshotStore, buf *ProposalBuffer, journal *Journal, instruments []string, every time.Duration) *AgentRunner {
	if every <= 0 {
		every = 30 * time.Second
	}
	return &AgentRunner{
		agent:       agent,
		store:       store,
		buf:         buf,
		journal:     journal,
		instruments: instruments,
		every:       every,
		health:      AgentHealth{AgentID: agent.ID()},
	}
}

// Run loops until ctx is cancelled. Intended as `go runner.Run(ctx)`.
func (r *AgentRunner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()
	log.Printf("[AGENT] %s started (interval=%s instruments=%d)", r.agent.ID(), r.every, len(r.instruments))

	for {
		select {
		case <-ctx.Done():
			log.Printf("[AGENT] %s shutdown", r.agent.ID())
			return
		case <-ticker.C:
			r.evaluate()
		}
	}
}

func (r *AgentRunner) evaluate() {
	for _, ins := range r.instruments {
		snap, fresh := r.store.Latest(ins)
		if !fresh {
			log.Printf("[AGENT] %s skip %s: snapshot missing or stale", r.agent.ID(), ins)
			r.mu.Lock()
			r.health.Skips++
			r.mu.Unlock()
			mtxAgentSkips.WithLabelValues(r.agent.ID()).Inc()
			continue
		}
		p, ok := r.agent.Propose(snap, r.store.History(ins))
		if !ok {
			continue
		}
		p.AgentID = r.agent.ID()
		p.Instrument = ins
		if p.GeneratedAt.IsZero() {
			p.GeneratedAt = time.Now().UTC()
		}
		r.buf.Add(p)
		r.journal.Write("proposal", p)
		r.mu.Lock()
		r.health.LastProposal = p.GeneratedAt
		r.health.Proposals++
		r.mu.Unlock()
	}
	r.mu.Lock()
	r.health.LastCycle = time.Now().UTC()
	r.mu.Unlock()
	mtxAgentLastCycle.WithLabelValues(r.agent.ID()).SetToCurrentTime()
}

// Health returns a copy of the runner's health counters.
func (r *AgentRunner) Health() AgentHealth {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.health
}
