// FILE: executor.go
// Package main – Execution coordinator.
//
// Owns every ApprovedOrder after risk approval and drives it through the
// order state machine:
//
//	Pending → Submitted → { Filled | PartiallyFilled | Rejected | Failed }
//
// Concurrency: one worker goroutine per instrument, so orders on the same
// instrument execute strictly in order while different instruments proceed
// in parallel. Transient venue failures retry with capped exponential
// backoff + jitter up to MaxAttempts; permanent venue errors end the order
// as Rejected with no retry. Every confirmed fill is applied to the
// portfolio exactly once (fresh FillID per fill event).
//
// The coordinator also runs the protective-exit monitor: after an opening
// order fills, its stop/take levels are armed, and a poller issues reducing
// close orders when the mark crosses a level.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Executor serializes order execution per instrument and owns the retry and
// partial-fill policies.
type Executor struct {
	venue     VenueAdapter
	portfolio *Portfolio
	journal   *Journal
	notifier  Notifier
	onResult  func(ExecutionResult)

	maxAttempts  int
	maxResubmits int
	backoffBase  time.Duration
	backoffCap   time.Duration
	venueTimeout time.Duration
	statusPoll   time.Duration // venue status re-query cadence for accepted orders

	mu     sync.Mutex
	queues map[string]chan ApprovedOrder
	levels map[string]exitLevels // armed stop/take per instrument
	closed bool
	wg     sync.WaitGroup
}

type exitLevels struct {
	Side      OrderSide
	StopPrice float64
	TakePrice float64
}

// NewExecutor wires the coordinator. onResult receives every terminal
// ExecutionResult (may be nil).
func NewExecutor(venue VenueAdapter, pf *Portfolio, journal *Journal, notifier Notifier, cfg Config, onResult func(ExecutionResult)) *Executor {
	e := &Executor{
		venue:        venue,
		portfolio:    pf,
		journal:      journal,
		notifier:     notifier,
		onResult:     onResult,
		maxAttempts:  cfg.MaxAttempts,
		maxResubmits: cfg.MaxResubmits,
		backoffBase:  time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
		backoffCap:   time.Duration(cfg.BackoffCapMs) * time.Millisecond,
		venueTimeout: cfg.VenueTimeout(),
		statusPoll:   500 * time.Millisecond,
		queues:       make(map[string]chan ApprovedOrder),
		levels:       make(map[string]exitLevels),
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = 1
	}
	return e
}

// Dispatch hands an approved order to its instrument's worker. Orders on the
// same instrument execute in submission order. Dispatch never blocks the
// pipeline: if the per-instrument queue is saturated the order is dropped
// and counted.
func (e *Executor) Dispatch(ctx context.Context, o ApprovedOrder) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		log.Printf("[EXEC] order %s dropped: executor shut down", o.OrderID)
		return
	}
	q, ok := e.queues[o.Decision.Instrument]
	if !ok {
		q = make(chan ApprovedOrder, 32)
		e.queues[o.Decision.Instrument] = q
		e.wg.Add(1)
		go e.worker(ctx, o.Decision.Instrument, q)
	}
	e.mu.Unlock()

	select {
	case q <- o:
	default:
		mtxQueueDrops.Inc()
		log.Printf("[EXEC] order %s dropped: %s queue full", o.OrderID, o.Decision.Instrument)
	}
}

// Shutdown closes all instrument queues and waits for in-flight orders to
// reach a terminal state. Call after the pipeline ticker has stopped.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, q := range e.queues {
		close(q)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Executor) worker(ctx context.Context, instrument string, q <-chan ApprovedOrder) {
	defer e.wg.Done()
	log.Printf("[EXEC] worker started instrument=%s", instrument)
	for o := range q {
		res := e.execute(ctx, o)
		e.finish(o, res)
	}
	log.Printf("[EXEC] worker shutdown instrument=%s", instrument)
}

// execute drives one order through the state machine and returns its
// terminal result. It never mutates the portfolio except through ApplyFill.
func (e *Executor) execute(ctx context.Context, o ApprovedOrder) ExecutionResult {
	res := ExecutionResult{OrderID: o.OrderID, Instrument: o.Decision.Instrument, State: StatePending}

	remaining := o.ApprovedQuantity
	resubmits := 0
	var filledQty, filledNotional float64

	for {
		vo, attempts, err := e.submitWithRetry(ctx, o, remaining, res.Attempts)
		res.Attempts = attempts
		if err != nil {
			// Retry budget exhausted or permanent failure.
			res.Reason = err.Error()
			if IsTransient(err) || ctx.Err() != nil {
				res.State = StateFailed
			} else {
				res.State = StateRejected
			}
			break
		}
		res.State = StateSubmitted
		log.Printf("[EXEC] order %s submitted venue_id=%s qty=%.6f attempt=%d", o.OrderID, vo.VenueOrderID, remaining, attempts)

		vo, err = e.awaitTerminal(ctx, vo)
		if err != nil {
			// same classification as the submit path: a permanent venue
			// refusal surfaced by a status poll is still a refusal
			res.Reason = err.Error()
			if IsTransient(err) || ctx.Err() != nil {
				res.State = StateFailed
			} else {
				res.State = StateRejected
			}
			break
		}

		switch vo.Status {
		case VenueRejected:
			res.State = StateRejected
			res.Reason = "venue rejected order"

		case VenueFilled, VenuePartiallyFilled:
			if vo.FilledQty > 0 {
				if err := e.applyFill(o, vo.FilledQty, vo.AvgPrice); err != nil {
					// refused quantity is NOT filled quantity: the order must
					// not terminate Filled when the portfolio never changed
					log.Printf("[ALERT] order %s fill apply refused: %v", o.OrderID, err)
					res.State = StateFailed
					res.Reason = fmt.Sprintf("fill refused by portfolio: %v", err)
					break
				}
				filledQty += vo.FilledQty
				filledNotional += vo.FilledQty * vo.AvgPrice
				remaining -= vo.FilledQty
			}
			if remaining <= 1e-9 {
				res.State = StateFilled
			} else if resubmits < e.maxResubmits && res.Attempts < e.maxAttempts {
				resubmits++
				mtxResubmits.Inc()
				log.Printf("[EXEC] order %s partial fill %.6f, resubmitting remainder %.6f (%d/%d)",
					o.OrderID, vo.FilledQty, remaining, resubmits, e.maxResubmits)
				res.State = StatePartiallyFilled
				continue
			} else {
				res.State = StatePartiallyFilled
				res.Reason = fmt.Sprintf("resubmit budget exhausted, %.6f unfilled", remaining)
			}
		}
		break
	}

	res.FilledQty = filledQty
	if filledQty > 0 {
		res.AvgPrice = filledNotional / filledQty
	}
	res.CompletedAt = time.Now().UTC()
	return res
}

// submitWithRetry submits the (remaining) order quantity, retrying transient
// failures with capped exponential backoff + jitter. attempts carries across
// partial-fill resubmissions so the whole order shares one budget.
func (e *Executor) submitWithRetry(ctx context.Context, o ApprovedOrder, qty float64, attempts int) (VenueOrder, int, error) {
	req := VenueRequest{
		OrderID:    o.OrderID,
		Instrument: o.Decision.Instrument,
		Side:       o.Decision.Side,
		Quantity:   qty,
		Price:      o.Price,
	}
	var lastErr error
	for attempts < e.maxAttempts {
		if ctx.Err() != nil {
			return VenueOrder{}, attempts, fmt.Errorf("canceled before submit: %w", ctx.Err())
		}
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, e.venueTimeout)
		vo, err := e.venue.SubmitOrder(callCtx, req)
		cancel()
		if err == nil {
			return vo, attempts, nil
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			return VenueOrder{}, attempts, err
		}
		mtxRetries.Inc()
		delay := backoffDelay(e.backoffBase, e.backoffCap, attempts)
		log.Printf("[EXEC] order %s submit attempt %d/%d failed (%v), backing off %s",
			o.OrderID, attempts, e.maxAttempts, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return VenueOrder{}, attempts, fmt.Errorf("canceled during backoff: %w", ctx.Err())
		}
	}
	return VenueOrder{}, attempts, fmt.Errorf("retry budget exhausted after %d attempts: %w", attempts, lastErr)
}

// awaitTerminal polls the venue until the order leaves "accepted". Paper
// fills are immediate; REST venues may need a few polls. Transient poll
// failures share the same budget shape as submission, so a venue that keeps
// timing out on status queries cannot pin the instrument's worker forever.
func (e *Executor) awaitTerminal(ctx context.Context, vo VenueOrder) (VenueOrder, error) {
	failures := 0
	for vo.Status == VenueAccepted {
		select {
		case <-time.After(e.statusPoll):
		case <-ctx.Done():
			return vo, fmt.Errorf("canceled awaiting fill: %w", ctx.Err())
		}
		callCtx, cancel := context.WithTimeout(ctx, e.venueTimeout)
		next, err := e.venue.GetOrderStatus(callCtx, vo.VenueOrderID)
		cancel()
		if err != nil {
			if IsTransient(err) && ctx.Err() == nil {
				failures++
				mtxRetries.Inc()
				if failures >= e.maxAttempts {
					return vo, fmt.Errorf("status poll budget exhausted after %d attempts: %w", failures, err)
				}
				continue
			}
			return vo, err
		}
		failures = 0
		vo = next
	}
	return vo, nil
}

// applyFill records one confirmed fill against the portfolio, exactly once.
func (e *Executor) applyFill(o ApprovedOrder, qty, price float64) error {
	f := Fill{
		FillID:     uuid.NewString(),
		OrderID:    o.OrderID,
		Instrument: o.Decision.Instrument,
		Side:       o.Decision.Side,
		Quantity:   qty,
		Price:      price,
		Reduce:     o.Reduce,
		At:         time.Now().UTC(),
	}
	e.journal.Write("fill", f)
	return e.portfolio.ApplyFill(f)
}

// finish journals, notifies and publishes a terminal result, and keeps the
// stop/take level table in sync with what actually filled.
func (e *Executor) finish(o ApprovedOrder, res ExecutionResult) {
	mtxOrderResults.WithLabelValues(string(res.State)).Inc()
	log.Printf("[EXEC] order %s terminal state=%s filled=%.6f avg=%.2f attempts=%d reason=%q",
		res.OrderID, res.State, res.FilledQty, res.AvgPrice, res.Attempts, res.Reason)

	if res.FilledQty > 0 {
		e.mu.Lock()
		if o.Reduce {
			delete(e.levels, o.Decision.Instrument)
		} else if o.StopPrice > 0 || o.TakePrice > 0 {
			e.levels[o.Decision.Instrument] = exitLevels{Side: o.Decision.Side, StopPrice: o.StopPrice, TakePrice: o.TakePrice}
		}
		e.mu.Unlock()
	}

	e.journal.Write("execution", res)
	e.notify(formatResult(o, res))
	if e.onResult != nil {
		e.onResult(res)
	}
}

func (e *Executor) notify(text string) {
	if e.notifier != nil {
		e.notifier.Notify(text)
	}
}

func formatResult(o ApprovedOrder, res ExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", res.State, o.Decision.Side, res.Instrument)
	if res.FilledQty > 0 {
		fmt.Fprintf(&b, " qty=%.6f avg=%.2f", res.FilledQty, res.AvgPrice)
	}
	if o.Reduce {
		b.WriteString(" (reduce)")
	}
	if res.Reason != "" {
		fmt.Fprintf(&b, " — %s", res.Reason)
	}
	return b.String()
}

// backoffDelay is base*2^attempt capped at max, with ±50% jitter so
// synchronized retries across instruments fan out.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	d := base << uint(attempt-1)
	if d <= 0 || d > max {
		d = max
	}
	half := int64(d / 2)
	return time.Duration(half + rand.Int63n(half+1))
}

// RunStopMonitor polls open positions against the latest marks and issues a
// reducing close order whenever a stop or take level is crossed. Close
// orders bypass entry-side risk checks: an exit must work even while the
// daily breaker is tripped.
func (e *Executor) RunStopMonitor(ctx context.Context, store *SnapshotStore, venue string, every time.Duration) {
	log.Printf("[MONITOR] stop/take monitor started interval=%s", every)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[MONITOR] shutdown: %v", ctx.Err())
			return
		case <-t.C:
			e.sweepLevels(ctx, store, venue)
		}
	}
}

func (e *Executor) sweepLevels(ctx context.Context, store *SnapshotStore, venue string) {
	snap := e.portfolio.Snapshot()

	e.mu.Lock()
	armed := make(map[string]exitLevels, len(e.levels))
	for k, v := range e.levels {
		if _, open := snap.Open[k]; open {
			armed[k] = v
		} else {
			delete(e.levels, k) // position closed elsewhere
		}
	}
	e.mu.Unlock()

	for instrument, lv := range armed {
		ms, ok := store.Latest(instrument)
		if !ok {
			continue
		}
		kind := crossedLevel(lv, ms.Price)
		if kind == "" {
			continue
		}
		pos := snap.Open[instrument]
		mtxStopTriggers.WithLabelValues(kind).Inc()
		log.Printf("[MONITOR] %s %s triggered at %.2f (stop=%.2f take=%.2f), closing %.6f",
			instrument, kind, ms.Price, lv.StopPrice, lv.TakePrice, pos.Quantity)

		exit := ApprovedOrder{
			OrderID: uuid.NewString(),
			Decision: CandidateDecision{
				Instrument: instrument,
				Side:       pos.Side.Opposite(),
				Quantity:   pos.Quantity,
				Confidence: 1.0,
			},
			ApprovedQuantity: pos.Quantity,
			Venue:            venue,
			Price:            PriceConstraint{Type: OrderTypeMarket},
			Reduce:           true,
			CreatedAt:        time.Now().UTC(),
		}
		e.journal.Write("protective_exit", exit)
		e.Dispatch(ctx, exit)

		// disarm immediately so the next sweep doesn't double-close
		e.mu.Lock()
		delete(e.levels, instrument)
		e.mu.Unlock()
	}
}

// crossedLevel reports which protective level (if any) the mark has crossed.
func crossedLevel(lv exitLevels, mark float64) string {
	if lv.Side == SideBuy {
		if lv.StopPrice > 0 && mark <= lv.StopPrice {
			return "stop"
		}
		if lv.TakePrice > 0 && mark >= lv.TakePrice {
			return "take"
		}
		return ""
	}
	if lv.StopPrice > 0 && mark >= lv.StopPrice {
		return "stop"
	}
	if lv.TakePrice > 0 && mark <= lv.TakePrice {
		return "take"
	}
	return ""
}
