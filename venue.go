// FILE: venue.go
// Package main – Venue adapter contract shared by all execution backends.
//
// This file defines the minimal interface the execution coordinator needs to
// talk to a trading venue (paper or real):
//   • VenueAdapter: submit an order, query its status
//   • VenueError: transient-vs-permanent failure classification
//
// Two concrete implementations live in separate files:
//   • venue_paper.go – in-memory paper venue (no external calls)
//   • venue_rest.go  – resty HTTP client for a REST execution gateway
package main

import (
	"context"
	"errors"
	"fmt"
)

// VenueStatus is the venue-reported lifecycle of a submitted order.
type VenueStatus string

const (
	VenueAccepted        VenueStatus = "accepted"
	VenuePartiallyFilled VenueStatus = "partially_filled"
	VenueFilled          VenueStatus = "filled"
	VenueRejected        VenueStatus = "rejected"
)

// VenueRequest is the abstract order-submission contract; venue-specific wire
// formats stay inside the adapters.
type VenueRequest struct {
	OrderID    string          `json:"order_id"` // client order id (approval uuid)
	Instrument string          `json:"instrument"`
	Side       OrderSide       `json:"side"`
	Quantity   float64         `json:"quantity"`
	Price      PriceConstraint `json:"price"`
}

// VenueOrder is the normalized view of a venue's response.
type VenueOrder struct {
	VenueOrderID string      `json:"venue_order_id"`
	Status       VenueStatus `json:"status"`
	FilledQty    float64     `json:"filled_qty"`
	AvgPrice     float64     `json:"avg_price"`
}

// VenueAdapter is the external execution collaborator.
type VenueAdapter interface {
	Name() string
	SubmitOrder(ctx context.Context, req VenueRequest) (VenueOrder, error)
	GetOrderStatus(ctx context.Context, venueOrderID string) (VenueOrder, error)
}

// ErrUnknownOrder is reported by status queries for ids the venue never saw.
var ErrUnknownOrder = errors.New("unknown venue order id")

// VenueError carries the transient/permanent classification the retry loop
// keys on. Timeouts and rate limits are transient; venue-reported invalid
// orders are not.
type VenueError struct {
	Op        string // "submit" | "status"
	Code      string // venue or HTTP status code, best effort
	Transient bool
	Err       error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue %s (code=%s transient=%v): %v", e.Op, e.Code, e.Transient, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Context deadline
// expiry on a venue call counts as transient per the timeout policy;
// caller-initiated cancellation never does.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
