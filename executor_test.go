// FILE: executor_test.go
package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// pollVenue accepts every submission and scripts the status-poll answer, for
// exercising the accepted→terminal polling path.
type pollVenue struct {
	statusErr error      // returned by every status poll when set
	final     VenueOrder // returned otherwise
}

func (v *pollVenue) Name() string { return "poll" }

func (v *pollVenue) SubmitOrder(ctx context.Context, req VenueRequest) (VenueOrder, error) {
	return VenueOrder{VenueOrderID: "pv-1", Status: VenueAccepted}, nil
}

func (v *pollVenue) GetOrderStatus(ctx context.Context, venueOrderID string) (VenueOrder, error) {
	if v.statusErr != nil {
		return VenueOrder{}, v.statusErr
	}
	return v.final, nil
}

type recordNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordNotifier) Notify(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
}

func (n *recordNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func execTestConfig() Config {
	return Config{
		MaxAttempts:     3,
		MaxResubmits:    2,
		BackoffBaseMs:   1,
		BackoffCapMs:    2,
		VenueTimeoutSec: 1,
	}
}

func approvedBuy(qty float64) ApprovedOrder {
	return ApprovedOrder{
		OrderID: "ord-1",
		Decision: CandidateDecision{
			Instrument: "BTC/USDT",
			Side:       SideBuy,
			Quantity:   qty,
			Confidence: 0.7,
		},
		ApprovedQuantity: qty,
		Venue:            "paper",
		Price:            PriceConstraint{Type: OrderTypeMarket},
		EntryPrice:       10,
		StopPrice:        9.8,
		TakePrice:        10.4,
		CreatedAt:        time.Now().UTC(),
	}
}

func awaitResult(t *testing.T, ch <-chan ExecutionResult) ExecutionResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for execution result")
		return ExecutionResult{}
	}
}

func transientTimeout() error {
	return &VenueError{Op: "submit", Code: "timeout", Transient: true, Err: context.DeadlineExceeded}
}

func TestExecutorTransientExhaustionFails(t *testing.T) {
	venue := NewPaperVenue(func(string) float64 { return 10 })
	venue.QueueError(transientTimeout(), transientTimeout(), transientTimeout())
	pf := NewPortfolio(10000, 0, nil)
	notifier := &recordNotifier{}
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, notifier, execTestConfig(), func(r ExecutionResult) { results <- r })

	exec.Dispatch(context.Background(), approvedBuy(100))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFailed {
		t.Fatalf("state = %s, want Failed", res.State)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", res.Attempts)
	}
	if res.FilledQty != 0 {
		t.Fatalf("no fill expected, got %v", res.FilledQty)
	}
	s := pf.Snapshot()
	if !near(s.AvailableCapital, 10000) || len(s.Open) != 0 {
		t.Fatalf("failed order must not touch the portfolio: %+v", s)
	}
	if notifier.count() != 1 {
		t.Fatalf("want exactly one terminal notification, got %d", notifier.count())
	}
}

func TestExecutorPartialFillResubmission(t *testing.T) {
	venue := NewPaperVenue(func(string) float64 { return 10 })
	venue.SetPartialFill(0.4, 1) // first submission fills 40%, remainder fills fully
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })

	exec.Dispatch(context.Background(), approvedBuy(100))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFilled {
		t.Fatalf("state = %s, want Filled", res.State)
	}
	if !near(res.FilledQty, 100) {
		t.Fatalf("filled = %v, want 100 across both fills", res.FilledQty)
	}
	pos := pf.Snapshot().Open["BTC/USDT"]
	if !near(pos.Quantity, 100) {
		t.Fatalf("portfolio must see both fill events sum to 100, got %v", pos.Quantity)
	}
	if !near(pf.Snapshot().AvailableCapital, 9000) {
		t.Fatalf("available = %v, want 9000", pf.Snapshot().AvailableCapital)
	}
}

func TestExecutorResubmitBudgetExhausted(t *testing.T) {
	venue := NewPaperVenue(func(string) float64 { return 10 })
	venue.SetPartialFill(0.4, 10) // every submission keeps filling 40%
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })

	exec.Dispatch(context.Background(), approvedBuy(100))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StatePartiallyFilled {
		t.Fatalf("state = %s, want PartiallyFilled", res.State)
	}
	// fills: 40, 24, 14.4 — then the resubmit budget (2) is spent
	if !near(res.FilledQty, 78.4) {
		t.Fatalf("filled = %v, want 78.4", res.FilledQty)
	}
	if res.Reason == "" {
		t.Fatal("exhausted resubmit budget must carry a reason")
	}
}

func TestExecutorPermanentErrorRejectsWithoutRetry(t *testing.T) {
	venue := NewPaperVenue(func(string) float64 { return 10 })
	venue.QueueError(&VenueError{Op: "submit", Code: "invalid_size", Transient: false, Err: errors.New("size rejected")})
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })

	exec.Dispatch(context.Background(), approvedBuy(100))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateRejected {
		t.Fatalf("state = %s, want Rejected", res.State)
	}
	if res.Attempts != 1 {
		t.Fatalf("permanent errors must not retry, attempts = %d", res.Attempts)
	}
	if len(pf.Snapshot().Open) != 0 {
		t.Fatal("rejected order must not touch the portfolio")
	}
}

func TestExecutorCancellation(t *testing.T) {
	venue := NewPaperVenue(func(string) float64 { return 10 })
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec.Dispatch(ctx, approvedBuy(100))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFailed {
		t.Fatalf("state = %s, want Failed on cancellation", res.State)
	}
	if res.FilledQty != 0 || len(pf.Snapshot().Open) != 0 {
		t.Fatal("cancelled order must not fill")
	}
}

func TestExecutorFillRefusedByPortfolioFails(t *testing.T) {
	// venue fills 10 @ 100 but the book only holds 100 of capital, so the
	// portfolio refuses the open. The order must not terminate Filled.
	venue := NewPaperVenue(func(string) float64 { return 100 })
	pf := NewPortfolio(100, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })

	exec.Dispatch(context.Background(), approvedBuy(10))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFailed {
		t.Fatalf("state = %s, want Failed", res.State)
	}
	if res.FilledQty != 0 {
		t.Fatalf("refused fill must not count as filled quantity, got %v", res.FilledQty)
	}
	if !strings.Contains(res.Reason, "portfolio") {
		t.Fatalf("reason should name the portfolio refusal, got %q", res.Reason)
	}
	s := pf.Snapshot()
	if !near(s.AvailableCapital, 100) || len(s.Open) != 0 {
		t.Fatalf("refused fill must leave the portfolio untouched: %+v", s)
	}
}

func TestExecutorPollRejectionEndsRejected(t *testing.T) {
	venue := &pollVenue{statusErr: &VenueError{
		Op: "status", Code: "rejected", Transient: false, Err: errors.New("insufficient margin"),
	}}
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })
	exec.statusPoll = time.Millisecond

	exec.Dispatch(context.Background(), approvedBuy(1))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateRejected {
		t.Fatalf("permanent refusal from a status poll: state = %s, want Rejected", res.State)
	}
	if res.FilledQty != 0 || len(pf.Snapshot().Open) != 0 {
		t.Fatal("rejected order must not touch the portfolio")
	}
}

func TestExecutorPollBudgetExhaustedFails(t *testing.T) {
	venue := &pollVenue{statusErr: &VenueError{
		Op: "status", Code: "timeout", Transient: true, Err: context.DeadlineExceeded,
	}}
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })
	exec.statusPoll = time.Millisecond

	exec.Dispatch(context.Background(), approvedBuy(1))
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFailed {
		t.Fatalf("state = %s, want Failed once the poll budget is spent", res.State)
	}
	if !strings.Contains(res.Reason, "status poll budget exhausted") {
		t.Fatalf("reason should name the exhausted poll budget, got %q", res.Reason)
	}
}

func TestStopMonitorIssuesReducingClose(t *testing.T) {
	venue := NewPaperVenue(func(string) float64 { return 95 })
	pf := NewPortfolio(10000, 0, nil)
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, execTestConfig(), func(r ExecutionResult) { results <- r })

	if err := pf.ApplyFill(buyFill("m1", 1, 100)); err != nil {
		t.Fatal(err)
	}
	exec.mu.Lock()
	exec.levels["BTC/USDT"] = exitLevels{Side: SideBuy, StopPrice: 98, TakePrice: 104}
	exec.mu.Unlock()

	store := NewSnapshotStore(time.Minute, 10)
	store.Update(Snapshot{Instrument: "BTC/USDT", Price: 95, ObservedAt: time.Now().UTC()})

	exec.sweepLevels(context.Background(), store, "paper")
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFilled {
		t.Fatalf("protective close state = %s, want Filled", res.State)
	}
	s := pf.Snapshot()
	if len(s.Open) != 0 {
		t.Fatalf("position should be closed by the stop, got %+v", s.Open)
	}
	if !near(s.DailyRealizedPnL, -5) {
		t.Fatalf("realized pnl = %v, want -5 (filled at 95 vs entry 100)", s.DailyRealizedPnL)
	}

	// level must be disarmed after the trigger
	exec.mu.Lock()
	_, armed := exec.levels["BTC/USDT"]
	exec.mu.Unlock()
	if armed {
		t.Fatal("triggered level must be disarmed")
	}
}
