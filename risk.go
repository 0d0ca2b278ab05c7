// FILE: risk.go
// Package main – Portfolio-level risk validation.
//
// Validate is a pure function of the candidate decision, the current mark
// price, a portfolio snapshot, the process-wide limits and the daily-boundary
// clock. It performs no I/O and no retries. Checks run in a fixed order and
// short-circuit on the first failure:
//   1) position sizing  – clamp, don't reject, unless the clamp lands below
//                         the minimum tradable notional
//   2) daily loss breaker
//   3) capital sufficiency
//   4) duplicate-position check
//
// An opposite-side decision against an open position is a position-modifying
// close: it bypasses sizing/breaker/capital (closing releases capital and must
// stay possible while the breaker is tripped) and is emitted with Reduce=true.
//
// On approval the validator attaches the stop-loss / take-profit offsets the
// execution coordinator enforces.
package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Validate turns a CandidateDecision into an ApprovedOrder or a Rejection.
// Exactly one of the two return values is non-nil.
func Validate(decision CandidateDecision, mark float64, portfolio PortfolioSnapshot, limits RiskLimits, venue string, now time.Time) (*ApprovedOrder, *Rejection) {
	reject := func(reason RejectionReason, detail string) (*ApprovedOrder, *Rejection) {
		return nil, &Rejection{
			Decision:  decision,
			Reason:    reason,
			Rationale: detail + " | " + decision.Rationale(),
			At:        now,
		}
	}

	// Position-modifying close: opposite side against an open position.
	if pos, open := portfolio.Open[decision.Instrument]; open && pos.Side != decision.Side {
		qty := decision.Quantity
		if qty > pos.Quantity {
			qty = pos.Quantity // a close never exceeds the open size
		}
		return approve(decision, qty, mark, limits, venue, now, true), nil
	}

	// 1) Position sizing: clamp to the per-trade notional cap.
	maxNotional := limits.MaxPositionSizeFrac * portfolio.TotalCapital
	qty := decision.Quantity
	if notional := qty * mark; notional > maxNotional {
		qty = maxNotional / mark
	}
	if qty*mark < limits.MinOrderUSD {
		return reject(RejectSizeTooSmall,
			fmt.Sprintf("clamped notional %.2f below minimum %.2f", qty*mark, limits.MinOrderUSD))
	}

	// 2) Daily loss breaker.
	if portfolio.DailyRealizedPnL <= -limits.MaxDailyLossFrac*portfolio.TotalCapital {
		return reject(RejectDailyLossLimitBreached,
			fmt.Sprintf("daily pnl %.2f breached limit %.2f", portfolio.DailyRealizedPnL,
				-limits.MaxDailyLossFrac*portfolio.TotalCapital))
	}

	// 3) Capital sufficiency.
	if approved := qty * mark; approved > portfolio.AvailableCapital {
		return reject(RejectInsufficientCapital,
			fmt.Sprintf("approved notional %.2f exceeds available capital %.2f", approved, portfolio.AvailableCapital))
	}

	// 4) Duplicate position: a same-side order against an open position would
	// be a second independent position, never allowed.
	if pos, open := portfolio.Open[decision.Instrument]; open && pos.Side == decision.Side {
		return reject(RejectDuplicatePosition,
			fmt.Sprintf("open %s position of %.8f already held", pos.Side, pos.Quantity))
	}

	return approve(decision, qty, mark, limits, venue, now, false), nil
}

func approve(decision CandidateDecision, qty, mark float64, limits RiskLimits, venue string, now time.Time, reduce bool) *ApprovedOrder {
	ord := &ApprovedOrder{
		OrderID:          uuid.New().String(),
		Decision:         decision,
		ApprovedQuantity: qty,
		Venue:            venue,
		Price:            PriceConstraint{Type: OrderTypeMarket},
		EntryPrice:       mark,
		Reduce:           reduce,
		CreatedAt:        now,
	}
	if !reduce {
		if decision.Side == SideBuy {
			ord.StopPrice = mark * (1 - limits.StopLossFrac)
			ord.TakePrice = mark * (1 + limits.TakeProfitFrac)
		} else {
			ord.StopPrice = mark * (1 + limits.StopLossFrac)
			ord.TakePrice = mark * (1 - limits.TakeProfitFrac)
		}
	}
	return ord
}
