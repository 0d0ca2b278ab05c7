// FILE: strategies.go
// Package main – Concrete analysis strategies (scalping, swing, research).
//
// Each strategy implements the Proposer capability over the snapshot history.
// Signal construction:
//   • scalping – short momentum + volume ratio over the last handful of ticks
//   • swing    – MA(20)/MA(50) trend alignment with an RSI(14) exhaustion filter
//   • research – long-window z-score mean reversion, slower cadence
//
// These are reference strategies, not alpha: the pipeline treats any Proposer
// identically. Size hints are notional-based (SIZE_NOTIONAL_USD per strategy).
package main

import (
	"fmt"
	"math"
)

// ---- scalping ----

// ScalpingStrategy fires on short momentum confirmed by a volume burst.
type ScalpingStrategy struct {
	NotionalUSD float64
}

func (s *ScalpingStrategy) ID() string { return "scalping" }

func (s *ScalpingStrategy) Propose(snap Snapshot, hist []Tick) (Proposal, bool) {
	if len(hist) < 20 {
		return Proposal{}, false
	}
	last := hist[len(hist)-1]
	ref := hist[len(hist)-6] // 5 ticks back
	if ref.Price <= 0 {
		return Proposal{}, false
	}
	change := (last.Price - ref.Price) / ref.Price

	var volSum float64
	prior := hist[len(hist)-10 : len(hist)-1]
	for _, t := range prior {
		volSum += t.Volume
	}
	volMean := volSum / float64(len(prior))
	if volMean <= 0 {
		return Proposal{}, false
	}
	volRatio := last.Volume / volMean

	var side OrderSide
	switch {
	case change > 0.002 && volRatio > 1.5:
		side = SideBuy
	case change < -0.002 && volRatio > 1.5:
		side = SideSell
	default:
		return Proposal{}, false
	}

	conf := math.Min(0.80, 0.60+math.Abs(change)*10)
	return Proposal{
		Side:              side,
		SuggestedQuantity: s.NotionalUSD / snap.Price,
		Confidence:        conf,
		Rationale:         fmt.Sprintf("price_change=%.4f volume_ratio=%.2f", change, volRatio),
	}, true
}

// ---- swing ----

// SwingStrategy trades medium-term MA alignment, filtered by RSI so it does
// not chase exhausted moves.
type SwingStrategy struct {
	NotionalUSD float64
}

func (s *SwingStrategy) ID() string { return "swing" }

func (s *SwingStrategy) Propose(snap Snapshot, hist []Tick) (Proposal, bool) {
	if len(hist) < 50 {
		return Proposal{}, false
	}
	i := len(hist) - 1
	ma20 := SMA(hist, 20)[i]
	ma50 := SMA(hist, 50)[i]
	rsi := RSI(hist, 14)[i]
	if math.IsNaN(ma20) || math.IsNaN(ma50) {
		return Proposal{}, false
	}
	px := hist[i].Price

	var side OrderSide
	switch {
	case px > ma20 && ma20 > ma50 && rsi < 70:
		side = SideBuy
	case px < ma20 && ma20 < ma50 && rsi > 30:
		side = SideSell
	default:
		return Proposal{}, false
	}

	// divergence between the MAs scales conviction above the 0.70 baseline
	div := math.Abs(ma20-ma50) / ma50
	conf := math.Min(0.85, 0.70+div*5)
	return Proposal{
		Side:              side,
		SuggestedQuantity: s.NotionalUSD / snap.Price,
		Confidence:        conf,
		Rationale:         fmt.Sprintf("ma20=%.2f ma50=%.2f rsi=%.1f", ma20, ma50, rsi),
	}, true
}

// ---- research ----

// ResearchStrategy is the slow mean-reversion scout: it waits for a
// long-window z-score extreme and fades it, with a smaller size hint.
type ResearchStrategy struct {
	NotionalUSD float64
	Window      int // z-score lookback, default 50
}

func (s *ResearchStrategy) ID() string { return "research" }

func (s *ResearchStrategy) Propose(snap Snapshot, hist []Tick) (Proposal, bool) {
	window := s.Window
	if window <= 0 {
		window = 50
	}
	if len(hist) < window {
		return Proposal{}, false
	}
	z := ZScore(hist, window)[len(hist)-1]

	var side OrderSide
	switch {
	case z <= -2.0:
		side = SideBuy
	case z >= 2.0:
		side = SideSell
	default:
		return Proposal{}, false
	}

	conf := math.Min(0.75, 0.50+(math.Abs(z)-2.0)*0.10)
	return Proposal{
		Side:              side,
		SuggestedQuantity: s.NotionalUSD * 0.5 / snap.Price, // half-size scout entries
		Confidence:        conf,
		Rationale:         fmt.Sprintf("zscore=%.2f window=%d", z, window),
	}, true
}
