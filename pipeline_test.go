// FILE: pipeline_test.go
package main

import (
	"context"
	"testing"
	"time"
)

func pipeTestConfig() Config {
	cfg := execTestConfig()
	cfg.Instruments = []string{"BTC/USDT"}
	cfg.Venue = "paper"
	cfg.TotalCapitalUSD = 10000
	cfg.Limits = testLimits()
	cfg.CycleSec = 1
	cfg.SnapshotMaxAgeSec = 60
	cfg.HistoryMax = 100
	cfg.DecisionLogSize = 10
	return cfg
}

func TestPipelineCycleApprovesAndExecutes(t *testing.T) {
	cfg := pipeTestConfig()
	store := NewSnapshotStore(time.Minute, 100)
	store.Update(Snapshot{Instrument: "BTC/USDT", Price: 10, ObservedAt: time.Now().UTC()})

	buf := NewProposalBuffer()
	buf.Add(prop("swing", "BTC/USDT", SideBuy, 1, 0.7, time.Now().UTC()))

	pf := NewPortfolio(cfg.TotalCapitalUSD, 0, nil)
	venue := NewPaperVenue(func(string) float64 { return 10 })
	results := make(chan ExecutionResult, 1)
	exec := NewExecutor(venue, pf, nil, nil, cfg, func(r ExecutionResult) { results <- r })
	pipe := NewPipeline(cfg, store, buf, pf, exec, nil, nil)

	pipe.runCycle(context.Background())
	res := awaitResult(t, results)
	exec.Shutdown()

	if res.State != StateFilled {
		t.Fatalf("state = %s, want Filled", res.State)
	}
	recent := pipe.Recent(1)
	if len(recent) != 1 || recent[0].Disposition != "approved" || recent[0].OrderID == "" {
		t.Fatalf("decision record = %+v", recent)
	}
	if !near(pf.Snapshot().Open["BTC/USDT"].Quantity, 1) {
		t.Fatalf("fill not reflected in portfolio: %+v", pf.Snapshot())
	}
}

func TestPipelineRecordsRejection(t *testing.T) {
	cfg := pipeTestConfig()
	store := NewSnapshotStore(time.Minute, 100)
	store.Update(Snapshot{Instrument: "BTC/USDT", Price: 10, ObservedAt: time.Now().UTC()})

	pf := NewPortfolio(cfg.TotalCapitalUSD, 0, nil)
	if err := pf.ApplyFill(buyFill("p1", 1, 10)); err != nil {
		t.Fatal(err)
	}

	buf := NewProposalBuffer()
	buf.Add(prop("swing", "BTC/USDT", SideBuy, 1, 0.7, time.Now().UTC())) // duplicate side

	exec := NewExecutor(NewPaperVenue(nil), pf, nil, nil, cfg, nil)
	pipe := NewPipeline(cfg, store, buf, pf, exec, nil, nil)

	pipe.runCycle(context.Background())
	exec.Shutdown()

	recent := pipe.Recent(1)
	if len(recent) != 1 || recent[0].Disposition != "rejected" {
		t.Fatalf("decision record = %+v", recent)
	}
	if recent[0].Reason != string(RejectDuplicatePosition) {
		t.Fatalf("reason = %s, want %s", recent[0].Reason, RejectDuplicatePosition)
	}
}

func TestPipelineSkipsWithoutFreshMark(t *testing.T) {
	cfg := pipeTestConfig()
	store := NewSnapshotStore(time.Minute, 100) // no snapshot at all

	buf := NewProposalBuffer()
	buf.Add(prop("swing", "BTC/USDT", SideBuy, 1, 0.7, time.Now().UTC()))

	pf := NewPortfolio(cfg.TotalCapitalUSD, 0, nil)
	exec := NewExecutor(NewPaperVenue(nil), pf, nil, nil, cfg, nil)
	pipe := NewPipeline(cfg, store, buf, pf, exec, nil, nil)

	pipe.runCycle(context.Background())
	exec.Shutdown()

	recent := pipe.Recent(1)
	if len(recent) != 1 || recent[0].Disposition != "skipped" {
		t.Fatalf("decision record = %+v", recent)
	}
}

func TestPipelineDryRunSkipsDispatch(t *testing.T) {
	cfg := pipeTestConfig()
	cfg.DryRun = true
	store := NewSnapshotStore(time.Minute, 100)
	store.Update(Snapshot{Instrument: "BTC/USDT", Price: 10, ObservedAt: time.Now().UTC()})

	buf := NewProposalBuffer()
	buf.Add(prop("swing", "BTC/USDT", SideBuy, 1, 0.7, time.Now().UTC()))

	pf := NewPortfolio(cfg.TotalCapitalUSD, 0, nil)
	exec := NewExecutor(NewPaperVenue(nil), pf, nil, nil, cfg, nil)
	pipe := NewPipeline(cfg, store, buf, pf, exec, nil, nil)

	pipe.runCycle(context.Background())
	exec.Shutdown()

	recent := pipe.Recent(1)
	if len(recent) != 1 || recent[0].Disposition != "approved" {
		t.Fatalf("dry-run still records the approval: %+v", recent)
	}
	if len(pf.Snapshot().Open) != 0 {
		t.Fatal("dry-run must not execute")
	}
}

func TestPipelineRecentRingBounded(t *testing.T) {
	cfg := pipeTestConfig()
	cfg.DecisionLogSize = 3
	pipe := NewPipeline(cfg, nil, nil, nil, nil, nil, nil)
	for i := 0; i < 10; i++ {
		pipe.record(DecisionRecord{Disposition: "skipped", At: time.Now().UTC()})
	}
	if got := len(pipe.Recent(100)); got != 3 {
		t.Fatalf("ring length = %d, want 3", got)
	}
}
