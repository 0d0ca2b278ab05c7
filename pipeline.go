// FILE: pipeline.go
// Package main – Decision cycle driver.
//
// Once per cycle window the pipeline drains the proposal buffer, aggregates
// it into at most one candidate decision per instrument, runs each decision
// through risk validation against a fresh portfolio snapshot, and hands
// approvals to the execution coordinator. Every disposition is journaled,
// broadcast on the telemetry hub, and kept in a bounded in-memory ring that
// backs the /decisions endpoint.
package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// DecisionRecord is one decision's disposition, kept for the inspection API.
type DecisionRecord struct {
	Decision    CandidateDecision `json:"decision"`
	Disposition string            `json:"disposition"` // approved | rejected | skipped
	OrderID     string            `json:"order_id,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	At          time.Time         `json:"at"`
}

// Pipeline owns the cycle ticker and the decision ring.
type Pipeline struct {
	cfg       Config
	store     *SnapshotStore
	buf       *ProposalBuffer
	portfolio *Portfolio
	exec      *Executor
	journal   *Journal
	hub       *Hub

	mu      sync.Mutex
	cycleID uint64
	ring    []DecisionRecord
}

func NewPipeline(cfg Config, store *SnapshotStore, buf *ProposalBuffer, pf *Portfolio, exec *Executor, journal *Journal, hub *Hub) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		buf:       buf,
		portfolio: pf,
		exec:      exec,
		journal:   journal,
		hub:       hub,
	}
}

// Run evaluates one cycle per window until ctx is done. Proposals arriving
// after a drain stay buffered and ride into the next cycle.
func (p *Pipeline) Run(ctx context.Context) {
	log.Printf("[CYCLE] pipeline started window=%s", p.cfg.CycleWindow())
	t := time.NewTicker(p.cfg.CycleWindow())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[CYCLE] pipeline shutdown: %v", ctx.Err())
			return
		case <-t.C:
			p.runCycle(ctx)
		}
	}
}

func (p *Pipeline) runCycle(ctx context.Context) {
	p.mu.Lock()
	p.cycleID++
	cycle := p.cycleID
	p.mu.Unlock()

	proposals := p.buf.Drain()
	if len(proposals) == 0 {
		return
	}
	decisions := Aggregate(proposals, cycle, p.cfg.TrustWeight, p.cfg.Limits.MaxInstrumentQty)
	log.Printf("[CYCLE] %d: %d proposals -> %d decisions", cycle, len(proposals), len(decisions))

	now := time.Now().UTC()
	for _, d := range decisions {
		p.journal.Write("decision", d)
		p.hub.Publish("decision", d)

		ms, ok := p.store.Latest(d.Instrument)
		if !ok {
			log.Printf("[CYCLE] %d: %s skipped, no fresh mark", cycle, d.Instrument)
			p.record(DecisionRecord{Decision: d, Disposition: "skipped", Reason: "no fresh mark price", At: now})
			continue
		}

		snap := p.portfolio.SnapshotAt(now)
		order, rej := Validate(d, ms.Price, snap, p.cfg.Limits, p.cfg.Venue, now)
		if rej != nil {
			mtxRejections.WithLabelValues(string(rej.Reason)).Inc()
			log.Printf("[RISK] %s %s rejected: %s (%s)", d.Instrument, d.Side, rej.Reason, rej.Rationale)
			p.journal.Write("rejection", rej)
			p.hub.Publish("rejection", rej)
			p.record(DecisionRecord{Decision: d, Disposition: "rejected", Reason: string(rej.Reason), At: now})
			continue
		}

		if p.cfg.OrderType == OrderTypeLimit && !order.Reduce {
			order.Price = PriceConstraint{Type: OrderTypeLimit, LimitPrice: ms.Price}
		}
		log.Printf("[RISK] %s %s approved qty=%.6f order=%s reduce=%v",
			d.Instrument, d.Side, order.ApprovedQuantity, order.OrderID, order.Reduce)
		p.journal.Write("approval", order)
		p.record(DecisionRecord{Decision: d, Disposition: "approved", OrderID: order.OrderID, At: now})
		if p.cfg.DryRun {
			log.Printf("[CYCLE] dry-run: order %s not dispatched", order.OrderID)
			continue
		}
		p.exec.Dispatch(ctx, *order)
	}
}

func (p *Pipeline) record(r DecisionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring = append(p.ring, r)
	if max := p.cfg.DecisionLogSize; max > 0 && len(p.ring) > max {
		p.ring = p.ring[len(p.ring)-max:]
	}
}

// Recent returns the last n decision records, newest first.
func (p *Pipeline) Recent(n int) []DecisionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 || n > len(p.ring) {
		n = len(p.ring)
	}
	out := make([]DecisionRecord, n)
	for i := 0; i < n; i++ {
		out[i] = p.ring[len(p.ring)-1-i]
	}
	return out
}

// Cycle returns the id of the most recently started cycle.
func (p *Pipeline) Cycle() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycleID
}
