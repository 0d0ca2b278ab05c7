// FILE: portfolio.go
// Package main – Portfolio state: single writer, many readers.
//
// The Portfolio is the authoritative view of open positions, available
// capital and realized P&L. Only the execution coordinator mutates it, via
// ApplyFill, and only on a confirmed fill. Readers take immutable snapshot
// copies; they never observe a partially applied update.
//
// Invariants enforced here:
//   • available capital never goes negative
//   • at most one open position per instrument; an opposite-side fill must
//     arrive as a reduce, never as a second independent position
//   • each fill is applied at most once (idempotent by FillID)
//
// A violation is fatal to the offending fill only — it is rejected loudly
// ([ALERT] + notifier) and the rest of the pipeline keeps running, since it
// indicates a design-level bug upstream, not an expected runtime condition.
package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// ErrInvariant marks a portfolio invariant violation.
var ErrInvariant = errors.New("portfolio invariant violation")

// Portfolio guards its state with a single-writer/multiple-reader discipline.
type Portfolio struct {
	mu          sync.RWMutex
	total       float64
	available   float64
	open        map[string]Position
	dailyPnL    float64
	dailyAnchor time.Time // boundary of the current daily window
	resetHour   int       // UTC hour at which dailyPnL resets
	applied     map[string]struct{}
	alert       func(msg string) // operator-visible invariant alerts; may be nil
}

func NewPortfolio(totalCapital float64, resetHourUTC int, alert func(string)) *Portfolio {
	now := time.Now().UTC()
	return &Portfolio{
		total:       totalCapital,
		available:   totalCapital,
		open:        make(map[string]Position),
		dailyAnchor: dailyBoundary(now, resetHourUTC),
		resetHour:   resetHourUTC,
		applied:     make(map[string]struct{}),
		alert:       alert,
	}
}

// dailyBoundary returns the most recent daily reset instant at or before ts.
func dailyBoundary(ts time.Time, hourUTC int) time.Time {
	ts = ts.UTC()
	b := time.Date(ts.Year(), ts.Month(), ts.Day(), hourUTC, 0, 0, 0, time.UTC)
	if b.After(ts) {
		b = b.AddDate(0, 0, -1)
	}
	return b
}

// Snapshot returns an immutable value copy. The daily P&L view rolls over at
// the configured boundary even before the next write lands.
func (p *Portfolio) Snapshot() PortfolioSnapshot {
	return p.SnapshotAt(time.Now().UTC())
}

// SnapshotAt is Snapshot with an injectable clock (tests, risk validation).
func (p *Portfolio) SnapshotAt(now time.Time) PortfolioSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	daily := p.dailyPnL
	if dailyBoundary(now, p.resetHour).After(p.dailyAnchor) {
		daily = 0 // a new day started since the last write
	}
	open := make(map[string]Position, len(p.open))
	for k, v := range p.open {
		open[k] = v
	}
	return PortfolioSnapshot{
		TotalCapital:     p.total,
		AvailableCapital: p.available,
		Open:             open,
		DailyRealizedPnL: daily,
		AsOf:             now,
	}
}

// ApplyFill applies one confirmed fill exactly once. Replays are no-ops.
func (p *Portfolio) ApplyFill(f Fill) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := f.At
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if b := dailyBoundary(now, p.resetHour); b.After(p.dailyAnchor) {
		p.dailyAnchor = b
		p.dailyPnL = 0
		log.Printf("[PORTFOLIO] daily counter reset at %s", b.Format(time.RFC3339))
	}

	if _, dup := p.applied[f.FillID]; dup {
		log.Printf("[WARN] fill %s replayed; ignoring (at-most-once apply)", f.FillID)
		mtxFillReplays.Inc()
		return nil
	}
	if f.Quantity <= 0 || f.Price <= 0 {
		return p.violate(fmt.Sprintf("fill %s has non-positive quantity/price (%.8f @ %.8f)", f.FillID, f.Quantity, f.Price))
	}

	if f.Reduce {
		if err := p.applyReduceLocked(f); err != nil {
			return err
		}
	} else {
		if err := p.applyOpenLocked(f); err != nil {
			return err
		}
	}

	p.applied[f.FillID] = struct{}{}
	mtxEquity.Set(p.total)
	mtxDailyPnL.Set(p.dailyPnL)
	return nil
}

func (p *Portfolio) applyOpenLocked(f Fill) error {
	cost := f.Quantity * f.Price
	if cost > p.available+1e-9 {
		return p.violate(fmt.Sprintf("fill %s would drive available capital negative (cost=%.2f available=%.2f)",
			f.FillID, cost, p.available))
	}
	pos, exists := p.open[f.Instrument]
	if exists && pos.Side != f.Side {
		return p.violate(fmt.Sprintf("fill %s opens %s against an open %s position on %s without reduce",
			f.FillID, f.Side, pos.Side, f.Instrument))
	}
	if exists {
		// position-modifying add: volume-weighted entry
		total := pos.Quantity + f.Quantity
		pos.EntryPrice = (pos.EntryPrice*pos.Quantity + f.Price*f.Quantity) / total
		pos.Quantity = total
	} else {
		pos = Position{Side: f.Side, Quantity: f.Quantity, EntryPrice: f.Price}
	}
	p.available -= cost
	p.open[f.Instrument] = pos
	return nil
}

func (p *Portfolio) applyReduceLocked(f Fill) error {
	pos, exists := p.open[f.Instrument]
	if !exists {
		return p.violate(fmt.Sprintf("reduce fill %s for %s but no open position", f.FillID, f.Instrument))
	}
	if f.Quantity > pos.Quantity+1e-9 {
		return p.violate(fmt.Sprintf("reduce fill %s quantity %.8f exceeds open %.8f on %s",
			f.FillID, f.Quantity, pos.Quantity, f.Instrument))
	}
	qty := math.Min(f.Quantity, pos.Quantity)

	pnl := (f.Price - pos.EntryPrice) * qty
	if pos.Side == SideSell {
		pnl = (pos.EntryPrice - f.Price) * qty
	}
	p.available += pos.EntryPrice*qty + pnl
	p.total += pnl
	p.dailyPnL += pnl

	pos.Quantity -= qty
	if pos.Quantity <= 1e-9 {
		delete(p.open, f.Instrument)
	} else {
		p.open[f.Instrument] = pos
	}
	return nil
}

// violate logs an operator-visible alert and returns ErrInvariant. State is
// left untouched by the offending fill.
func (p *Portfolio) violate(detail string) error {
	log.Printf("[ALERT] portfolio invariant: %s", detail)
	mtxInvariantViolations.Inc()
	if p.alert != nil {
		go p.alert("portfolio invariant: " + detail)
	}
	return fmt.Errorf("%w: %s", ErrInvariant, detail)
}
