// FILE: aggregator.go
// Package main – Decision aggregation: many proposals in, at most one
// candidate decision per instrument per cycle out.
//
// Proposals land in a mutex-guarded buffer as agents emit them; the cycle
// scheduler drains the buffer once per evaluation window. Proposals arriving
// after a window closes simply land in the next window's buffer — they are
// carried over, never discarded.
//
// Ranking (per instrument): proposals are partitioned by side and the side
// with the higher aggregate weighted confidence wins (weight = per-agent
// trust, default 1.0). Ties prefer the side with more contributors, then the
// side holding the most recent proposal. Quantity is the confidence-weighted
// average of the winning side's size hints, clamped to the configured
// per-instrument maximum.
//
// This component never mutates portfolio state.
package main

import (
	"sort"
	"sync"
	"time"
)

// ProposalBuffer collects proposals between cycle boundaries.
type ProposalBuffer struct {
	mu  sync.Mutex
	buf []Proposal
}

func NewProposalBuffer() *ProposalBuffer { return &ProposalBuffer{} }

// Add appends one proposal; safe for concurrent agents.
func (b *ProposalBuffer) Add(p Proposal) {
	b.mu.Lock()
	b.buf = append(b.buf, p)
	b.mu.Unlock()
	mtxProposals.WithLabelValues(p.AgentID, string(p.Side)).Inc()
}

// Drain swaps out everything buffered so far. The caller owns the result.
func (b *ProposalBuffer) Drain() []Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf
	b.buf = nil
	return out
}

// Pending reports the number of buffered proposals without draining.
func (b *ProposalBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Aggregate ranks one cycle's proposals into at most one CandidateDecision
// per instrument. trust maps agent id → weight; maxQty > 0 clamps quantity.
func Aggregate(proposals []Proposal, cycleID uint64, trust func(agentID string) float64, maxQty float64) []CandidateDecision {
	if trust == nil {
		trust = func(string) float64 { return 1.0 }
	}

	byInstrument := make(map[string][]Proposal)
	for _, p := range proposals {
		byInstrument[p.Instrument] = append(byInstrument[p.Instrument], p)
	}

	out := make([]CandidateDecision, 0, len(byInstrument))
	for instrument, group := range byInstrument {
		var buys, sells []Proposal
		for _, p := range group {
			if p.Side == SideBuy {
				buys = append(buys, p)
			} else {
				sells = append(sells, p)
			}
		}

		winner := pickSide(buys, sells, trust)
		if len(winner) == 0 {
			continue
		}

		// contributing proposals ordered by confidence desc
		sort.SliceStable(winner, func(i, j int) bool { return winner[i].Confidence > winner[j].Confidence })

		qty := weightedQuantity(winner)
		if maxQty > 0 && qty > maxQty {
			qty = maxQty
		}
		if qty <= 0 {
			continue
		}

		out = append(out, CandidateDecision{
			Instrument:   instrument,
			Side:         winner[0].Side,
			Quantity:     qty,
			Confidence:   winner[0].Confidence, // max, thanks to the sort
			Contributing: winner,
			CycleID:      cycleID,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	for _, d := range out {
		mtxDecisions.WithLabelValues(string(d.Side)).Inc()
	}
	return out
}

// pickSide applies the weighted-confidence contest with deterministic
// tie-breaks: weight sum, then contributor count, then most recent proposal.
func pickSide(buys, sells []Proposal, trust func(string) float64) []Proposal {
	switch {
	case len(buys) == 0:
		return sells
	case len(sells) == 0:
		return buys
	}

	wBuy := weightedConfidence(buys, trust)
	wSell := weightedConfidence(sells, trust)
	switch {
	case wBuy > wSell:
		return buys
	case wSell > wBuy:
		return sells
	}

	if len(buys) != len(sells) {
		if len(buys) > len(sells) {
			return buys
		}
		return sells
	}

	if latest(buys).After(latest(sells)) {
		return buys
	}
	return sells
}

func weightedConfidence(ps []Proposal, trust func(string) float64) float64 {
	var sum float64
	for _, p := range ps {
		sum += p.Confidence * trust(p.AgentID)
	}
	return sum
}

func latest(ps []Proposal) time.Time {
	var t time.Time
	for _, p := range ps {
		if p.GeneratedAt.After(t) {
			t = p.GeneratedAt
		}
	}
	return t
}

// weightedQuantity is the confidence-weighted average of the size hints.
// If every confidence is zero the plain mean is used.
func weightedQuantity(ps []Proposal) float64 {
	var num, den float64
	for _, p := range ps {
		num += p.Confidence * p.SuggestedQuantity
		den += p.Confidence
	}
	if den <= 0 {
		var sum float64
		for _, p := range ps {
			sum += p.SuggestedQuantity
		}
		return sum / float64(len(ps))
	}
	return num / den
}
