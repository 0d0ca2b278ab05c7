// FILE: venue_paper.go
// Package main – In-memory paper venue (no external dependencies).
//
// This venue simulates execution using the latest known mark price. It's used
// for dry runs and as the deterministic double in the pipeline tests. The
// orchestrator still pulls real snapshots from the feed in live mode; orders
// here never touch an exchange.
//
// Fault injection:
//   • QueueError(err ...)           – next SubmitOrder calls fail in order
//   • SetPartialFill(frac, times)   – the next `times` submissions fill only
//                                     frac of the requested quantity
package main

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// PaperVenue keeps submitted orders in memory and fills them synchronously.
type PaperVenue struct {
	mu      sync.Mutex
	priceOf func(instrument string) float64
	orders  map[string]VenueOrder

	queuedErrs  []error
	partialFrac float64
	partialLeft int
}

// NewPaperVenue builds a paper venue. priceOf supplies the fill price per
// instrument; nil falls back to a fixed bootstrap price.
func NewPaperVenue(priceOf func(string) float64) *PaperVenue {
	if priceOf == nil {
		priceOf = func(string) float64 { return 100.0 }
	}
	return &PaperVenue{
		priceOf: priceOf,
		orders:  make(map[string]VenueOrder),
	}
}

func (p *PaperVenue) Name() string { return "paper" }

// QueueError makes the next SubmitOrder calls return the given errors, in order.
func (p *PaperVenue) QueueError(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queuedErrs = append(p.queuedErrs, errs...)
}

// SetPartialFill makes the next `times` submissions fill only frac of the
// requested quantity.
func (p *PaperVenue) SetPartialFill(frac float64, times int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partialFrac = frac
	p.partialLeft = times
}

func (p *PaperVenue) SubmitOrder(ctx context.Context, req VenueRequest) (VenueOrder, error) {
	if err := ctx.Err(); err != nil {
		return VenueOrder{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queuedErrs) > 0 {
		err := p.queuedErrs[0]
		p.queuedErrs = p.queuedErrs[1:]
		return VenueOrder{}, err
	}

	price := req.Price.LimitPrice
	if req.Price.Type == OrderTypeMarket || price <= 0 {
		price = p.priceOf(req.Instrument)
	}

	filled := req.Quantity
	status := VenueFilled
	if p.partialLeft > 0 && p.partialFrac > 0 && p.partialFrac < 1 {
		filled = req.Quantity * p.partialFrac
		status = VenuePartiallyFilled
		p.partialLeft--
	}

	ord := VenueOrder{
		VenueOrderID: uuid.New().String(),
		Status:       status,
		FilledQty:    filled,
		AvgPrice:     price,
	}
	p.orders[ord.VenueOrderID] = ord
	return ord, nil
}

func (p *PaperVenue) GetOrderStatus(ctx context.Context, venueOrderID string) (VenueOrder, error) {
	if err := ctx.Err(); err != nil {
		return VenueOrder{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ord, ok := p.orders[venueOrderID]
	if !ok {
		return VenueOrder{}, &VenueError{Op: "status", Code: "unknown_order", Transient: false,
			Err: ErrUnknownOrder}
	}
	return ord, nil
}
