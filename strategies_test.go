// FILE: strategies_test.go
package main

import (
	"testing"
	"time"
)

func histOf(prices, volumes []float64) []Tick {
	base := time.Now().UTC().Add(-time.Duration(len(prices)) * time.Minute)
	h := make([]Tick, len(prices))
	for i := range prices {
		vol := 1000.0
		if volumes != nil {
			vol = volumes[i]
		}
		h[i] = Tick{Price: prices[i], Volume: vol, At: base.Add(time.Duration(i) * time.Minute)}
	}
	return h
}

func flatPrices(n int, px float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = px
	}
	return out
}

func TestScalpingMomentumWithVolumeBurst(t *testing.T) {
	s := &ScalpingStrategy{NotionalUSD: 500}
	prices := flatPrices(25, 100)
	prices[24] = 100.5 // +0.5% over the 5-tick lookback
	vols := flatPrices(25, 1000)
	vols[24] = 2000 // 2x the recent mean
	h := histOf(prices, vols)

	p, ok := s.Propose(Snapshot{Instrument: "BTC/USDT", Price: 100.5}, h)
	if !ok {
		t.Fatal("want a proposal")
	}
	if p.Side != SideBuy {
		t.Fatalf("side = %s, want BUY", p.Side)
	}
	if p.Confidence < 0.60 || p.Confidence > 0.80 {
		t.Fatalf("confidence out of band: %v", p.Confidence)
	}
	if !near(p.SuggestedQuantity, 500/100.5) {
		t.Fatalf("size hint = %v", p.SuggestedQuantity)
	}
	if p.Rationale == "" {
		t.Fatal("proposal must carry a rationale")
	}
}

func TestScalpingNeedsVolumeConfirmation(t *testing.T) {
	s := &ScalpingStrategy{NotionalUSD: 500}
	prices := flatPrices(25, 100)
	prices[24] = 100.5
	h := histOf(prices, nil) // flat volume, no burst
	if _, ok := s.Propose(Snapshot{Price: 100.5}, h); ok {
		t.Fatal("momentum without a volume burst must not propose")
	}
}

func TestScalpingShortHistory(t *testing.T) {
	s := &ScalpingStrategy{NotionalUSD: 500}
	if _, ok := s.Propose(Snapshot{Price: 100}, histOf(flatPrices(10, 100), nil)); ok {
		t.Fatal("insufficient history must not propose")
	}
}

func TestSwingTrendAlignment(t *testing.T) {
	s := &SwingStrategy{NotionalUSD: 1000}
	// rising zigzag: net uptrend, RSI stays off the exhaustion band
	prices := make([]float64, 60)
	prices[0] = 100
	for i := 1; i < 60; i++ {
		if i%2 == 1 {
			prices[i] = prices[i-1] + 2
		} else {
			prices[i] = prices[i-1] - 1
		}
	}
	h := histOf(prices, nil)
	p, ok := s.Propose(Snapshot{Instrument: "BTC/USDT", Price: prices[59]}, h)
	if !ok {
		t.Fatal("aligned uptrend should propose")
	}
	if p.Side != SideBuy {
		t.Fatalf("side = %s, want BUY", p.Side)
	}
	if p.Confidence < 0.70 {
		t.Fatalf("confidence = %v, want >= 0.70", p.Confidence)
	}
}

func TestSwingFlatMarketSilent(t *testing.T) {
	s := &SwingStrategy{NotionalUSD: 1000}
	if _, ok := s.Propose(Snapshot{Price: 100}, histOf(flatPrices(60, 100), nil)); ok {
		t.Fatal("flat market must not propose")
	}
}

func TestResearchMeanReversion(t *testing.T) {
	s := &ResearchStrategy{NotionalUSD: 1000}
	prices := flatPrices(60, 100)
	prices[59] = 99 // sharp drop against a tight window → deep negative z
	h := histOf(prices, nil)

	p, ok := s.Propose(Snapshot{Instrument: "BTC/USDT", Price: 99}, h)
	if !ok {
		t.Fatal("z-score extreme should propose")
	}
	if p.Side != SideBuy {
		t.Fatalf("side = %s, want BUY (fade the drop)", p.Side)
	}
	// scout entries are half-size
	if !near(p.SuggestedQuantity, 1000*0.5/99) {
		t.Fatalf("size hint = %v", p.SuggestedQuantity)
	}
}

func TestResearchQuietMarketSilent(t *testing.T) {
	s := &ResearchStrategy{NotionalUSD: 1000}
	if _, ok := s.Propose(Snapshot{Price: 100}, histOf(flatPrices(60, 100), nil)); ok {
		t.Fatal("no extreme, no proposal")
	}
}
