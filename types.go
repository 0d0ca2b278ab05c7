// FILE: types.go
// Package main – Core data model shared across the pipeline.
//
// The pipeline moves four value types through its stages:
//   • Proposal           – one agent's suggested trade for one instrument
//   • CandidateDecision  – the aggregator's single ranked output per instrument per cycle
//   • ApprovedOrder      – a decision that passed risk validation, ready for the venue
//   • ExecutionResult    – terminal outcome of an order's state machine
//
// Proposals are immutable once emitted. A CandidateDecision owns its
// contributing proposals for the cycle's lifetime. An ApprovedOrder is owned
// exclusively by the execution coordinator after approval.
package main

import "time"

// OrderSide is the side of a trade.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Opposite returns the closing side for a position opened on s.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Proposal is a single agent's suggested trade for one instrument in one cycle.
type Proposal struct {
	AgentID           string    `json:"agent_id"`
	Instrument        string    `json:"instrument"`
	Side              OrderSide `json:"side"`
	SuggestedQuantity float64   `json:"suggested_quantity"`
	Confidence        float64   `json:"confidence"` // ∈ [0,1]
	Rationale         string    `json:"rationale"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// CandidateDecision is the aggregator's single ranked output per instrument
// per cycle. Quantity > 0 and Confidence equals the maximum confidence among
// contributing proposals with the winning side.
type CandidateDecision struct {
	Instrument   string     `json:"instrument"`
	Side         OrderSide  `json:"side"`
	Quantity     float64    `json:"quantity"`
	Confidence   float64    `json:"confidence"`
	Contributing []Proposal `json:"contributing"` // ordered by confidence desc
	CycleID      uint64     `json:"cycle_id"`
}

// Rationale joins the contributing proposals' rationales into one
// human-readable string for rejections and notifications.
func (d CandidateDecision) Rationale() string {
	out := ""
	for i, p := range d.Contributing {
		if i > 0 {
			out += "; "
		}
		out += p.AgentID + ": " + p.Rationale
	}
	return out
}

// OrderType selects the price constraint for venue submission.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// PriceConstraint is market or limit-with-price.
type PriceConstraint struct {
	Type       OrderType `json:"type"`
	LimitPrice float64   `json:"limit_price,omitempty"`
}

// ApprovedOrder is a CandidateDecision that passed risk validation.
// StopPrice/TakePrice carry the offsets the execution coordinator enforces
// after the fill.
type ApprovedOrder struct {
	OrderID          string            `json:"order_id"`
	Decision         CandidateDecision `json:"decision"`
	ApprovedQuantity float64           `json:"approved_quantity"` // ≤ requested; may be risk-clamped
	Venue            string            `json:"venue"`
	Price            PriceConstraint   `json:"price"`
	EntryPrice       float64           `json:"entry_price"` // reference mark at approval time
	StopPrice        float64           `json:"stop_price"`
	TakePrice        float64           `json:"take_price"`
	Reduce           bool              `json:"reduce"` // closes/reduces the existing position
	CreatedAt        time.Time         `json:"created_at"`
}

// RejectionReason is the machine-readable code attached to every rejection.
type RejectionReason string

const (
	RejectSizeTooSmall           RejectionReason = "SizeTooSmall"
	RejectDailyLossLimitBreached RejectionReason = "DailyLossLimitBreached"
	RejectInsufficientCapital    RejectionReason = "InsufficientCapital"
	RejectDuplicatePosition      RejectionReason = "DuplicatePosition"
)

// Rejection is a terminal business outcome of risk validation — not an error.
type Rejection struct {
	Decision  CandidateDecision `json:"decision"`
	Reason    RejectionReason   `json:"reason"`
	Rationale string            `json:"rationale"`
	At        time.Time         `json:"at"`
}

// OrderState is a node in the per-order execution state machine.
type OrderState string

const (
	StatePending         OrderState = "Pending"
	StateSubmitted       OrderState = "Submitted"
	StatePartiallyFilled OrderState = "PartiallyFilled"
	StateFilled          OrderState = "Filled"
	StateRejected        OrderState = "Rejected"
	StateFailed          OrderState = "Failed"
)

// Terminal reports whether the state ends the order's lifecycle.
func (s OrderState) Terminal() bool {
	return s == StateFilled || s == StateRejected || s == StateFailed
}

// Fill is one confirmed execution applied to the portfolio exactly once,
// keyed by FillID.
type Fill struct {
	FillID     string    `json:"fill_id"`
	OrderID    string    `json:"order_id"`
	Instrument string    `json:"instrument"`
	Side       OrderSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Reduce     bool      `json:"reduce"`
	At         time.Time `json:"at"`
}

// ExecutionResult is the terminal record of one approved order.
type ExecutionResult struct {
	OrderID     string     `json:"order_id"`
	Instrument  string     `json:"instrument"`
	State       OrderState `json:"state"`
	FilledQty   float64    `json:"filled_qty"`
	AvgPrice    float64    `json:"avg_price"`
	Attempts    int        `json:"attempts"`
	Reason      string     `json:"reason,omitempty"` // human-readable failure/rejection detail
	CompletedAt time.Time  `json:"completed_at"`
}

// Position is one open holding inside a PortfolioSnapshot.
type Position struct {
	Side       OrderSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
}

// PortfolioSnapshot is an immutable value copy of portfolio state; readers
// never observe a partially applied update.
type PortfolioSnapshot struct {
	TotalCapital     float64             `json:"total_capital"`
	AvailableCapital float64             `json:"available_capital"`
	Open             map[string]Position `json:"open_positions"`
	DailyRealizedPnL float64             `json:"daily_realized_pnl"`
	AsOf             time.Time           `json:"as_of"`
}
