// FILE: main.go
// Package main – Program entrypoint.
//
// Boot sequence:
//   1) loadEnvFile()              – read .env (no shell exports required)
//   2) cfg := loadConfigFromEnv() – build runtime Config
//   3) wire feed + venue (paper by default, REST when VENUE_URL is set)
//   4) start snapshot poller, agents, pipeline, executor monitor, telemetry hub
//   5) start the HTTP server (/healthz /metrics /portfolio /decisions /agents /ws)
//
// Flags:
//   -live            Dispatch approved orders (overrides DRY_RUN=true)
//   -cycle <sec>     Decision cycle window in seconds (overrides CYCLE_SEC)
//
// Example:
//   go run . -live -cycle 15
//
// Notes:
//   - Paper mode needs no external services; keep editing .env and restart.

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// ---- Flags ----
	var live bool
	var cycleSec int
	flag.BoolVar(&live, "live", false, "Dispatch approved orders (overrides DRY_RUN)")
	flag.IntVar(&cycleSec, "cycle", 0, "Decision cycle window in seconds (overrides CYCLE_SEC)")
	flag.Parse()

	// ---- Environment & Config ----
	loadEnvFile()
	cfg := loadConfigFromEnv()
	if live {
		cfg.DryRun = false
	}
	if cycleSec > 0 {
		cfg.CycleSec = cycleSec
	}

	// ---- Feed & venue wiring ----
	var feed MarketFeed
	var venue VenueAdapter
	if cfg.VenueURL != "" {
		rv := NewRestVenue(cfg.Venue, cfg.VenueURL, cfg.VenueTimeout())
		venue = rv
		feed = rv
		log.Printf("[BOOT] REST venue %s", cfg.VenueURL)
	} else {
		paper := NewPaperFeed(time.Now().UnixNano())
		feed = paper
		venue = NewPaperVenue(paper.LastPrice)
		log.Printf("[BOOT] paper venue (dry_run=%v)", cfg.DryRun)
	}

	journal, err := OpenJournal(cfg.JournalFile)
	if err != nil {
		log.Fatalf("journal open: %v", err)
	}
	defer journal.Close()

	var notifier Notifier = LogNotifier{}
	if s := NewSlackNotifier(cfg.SlackWebhook); s != nil {
		notifier = s
	}

	hub := NewHub()
	store := NewSnapshotStore(time.Duration(cfg.SnapshotMaxAgeSec)*time.Second, cfg.HistoryMax)
	buf := NewProposalBuffer()
	pf := NewPortfolio(cfg.TotalCapitalUSD, cfg.Limits.DailyResetUTCHour, notifier.Notify)

	exec := NewExecutor(venue, pf, journal, notifier, cfg, func(res ExecutionResult) {
		hub.Publish("execution", res)
		hub.Publish("portfolio", pf.Snapshot())
	})
	pipe := NewPipeline(cfg, store, buf, pf, exec, journal, hub)

	agents := []*AgentRunner{
		NewAgentRunner(&ScalpingStrategy{NotionalUSD: cfg.TotalCapitalUSD * 0.05}, store, buf, journal, cfg.Instruments, time.Duration(cfg.ScalpIntervalSec)*time.Second),
		NewAgentRunner(&SwingStrategy{NotionalUSD: cfg.TotalCapitalUSD * 0.10}, store, buf, journal, cfg.Instruments, time.Duration(cfg.SwingIntervalSec)*time.Second),
		NewAgentRunner(&ResearchStrategy{NotionalUSD: cfg.TotalCapitalUSD * 0.05}, store, buf, journal, cfg.Instruments, time.Duration(cfg.ResearchIntervalSec)*time.Second),
	}

	// ---- HTTP surface ----
	srv := newHTTPServer(cfg, pipe, pf, agents, hub)
	go func() {
		log.Printf("[BOOT] serving on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// ---- Run ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go hub.Run(ctx)
	go runFeedPoller(ctx, feed, store, cfg.Instruments, time.Duration(cfg.FeedPollSec)*time.Second)
	for _, a := range agents {
		go a.Run(ctx)
	}
	go exec.RunStopMonitor(ctx, store, cfg.Venue, time.Duration(cfg.MonitorPollSec)*time.Second)

	pipe.Run(ctx)

	// ---- Graceful shutdown ----
	exec.Shutdown()
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}
