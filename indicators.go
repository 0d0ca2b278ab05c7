// FILE: indicators.go
// Package main – Technical indicators for the analysis agents.
//
// Lightweight TA helpers over the snapshot tick history:
//   • SMA(h, n)     – Simple Moving Average of price
//   • RSI(h, n)     – Relative Strength Index (Wilder's smoothing)
//   • ZScore(h, n)  – Rolling Z-Score of price
//
// Notes
//   - All functions accept a slice of Tick (defined in snapshot.go).
//   - Outputs are aligned to input length; unavailable lookbacks emit NaN/0 as noted.
//   - Keep these fast and allocation-light; they're called on every agent tick.
package main

import (
	"math"
)

// SMA returns the n-period simple moving average of price, aligned to h.
// For indices < n-1, the function returns NaN.
func SMA(h []Tick, n int) []float64 {
	out := make([]float64, len(h))
	if n <= 0 || len(h) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := range h {
		sum += h[i].Price
		if i >= n {
			sum -= h[i-n].Price
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// rsiValue maps average gain/loss to the 0..100 RSI scale. A window with no
// losses saturates at 100 (and all-losses at 0 by the same formula); a flat
// window has no directional information and reads neutral.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	return 100.0 - (100.0 / (1.0 + avgGain/avgLoss))
}

// RSI returns the n-period Relative Strength Index using Wilder's smoothing.
// Indices before the first full window are zero (0).
func RSI(h []Tick, n int) []float64 {
	out := make([]float64, len(h))
	if n <= 0 || len(h) <= n {
		return out
	}
	deltas := make([]float64, len(h))
	for i := 1; i < len(h); i++ {
		deltas[i] = h[i].Price - h[i-1].Price
	}
	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		if deltas[i] > 0 {
			avgGain += deltas[i]
		} else {
			avgLoss -= deltas[i]
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[n] = rsiValue(avgGain, avgLoss)
	for i := n + 1; i < len(h); i++ {
		var g, l float64
		if deltas[i] > 0 {
			g = deltas[i]
		} else {
			l = -deltas[i]
		}
		// Wilder smoothing: previous average decays by (n-1)/n each step.
		avgGain = (avgGain*float64(n-1) + g) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + l) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

// ZScore returns the rolling z-score of price over window n, aligned to h.
// For indices < n-1, the function returns 0.
func ZScore(h []Tick, n int) []float64 {
	out := make([]float64, len(h))
	if n <= 1 || len(h) == 0 {
		return out
	}
	var sum, sumSq float64
	for i := range h {
		x := h[i].Price
		sum += x
		sumSq += x * x
		if i >= n {
			y := h[i-n].Price
			sum -= y
			sumSq -= y * y
		}
		if i >= n-1 {
			mean := sum / float64(n)
			variance := (sumSq / float64(n)) - (mean * mean)
			std := math.Sqrt(math.Max(variance, 1e-12))
			out[i] = (x - mean) / std
		}
	}
	return out
}
