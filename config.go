// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// This file defines the Config struct (all the knobs the orchestrator uses)
// and a helper to populate it from environment variables. The .env file is
// read by loadEnvFile() (see env.go), so you can tune behavior without
// exports.
//
// Typical flow (see main.go):
//   loadEnvFile()
//   cfg := loadConfigFromEnv()
package main

import (
	"strings"
	"time"
)

// RiskLimits is the process-wide risk configuration, read-only after boot.
type RiskLimits struct {
	MaxPositionSizeFrac float64 // per-trade notional cap as fraction of total capital
	MaxDailyLossFrac    float64 // daily loss breaker threshold as fraction of total capital
	StopLossFrac        float64 // attached stop offset, entry × (1 ∓ frac)
	TakeProfitFrac      float64 // attached take offset, entry × (1 ± frac)
	MinOrderUSD         float64 // minimum tradable notional after clamping
	MaxInstrumentQty    float64 // hard per-instrument quantity clamp at aggregation
	DailyResetUTCHour   int     // hour (UTC) at which the daily PnL counter resets
}

// Config holds all runtime knobs for the orchestrator.
type Config struct {
	// Trading universe
	Instruments []string // e.g. ["BTC/USDT","ETH/USDT"]
	Venue       string   // venue label attached to approvals

	// Capital & risk
	TotalCapitalUSD float64
	Limits          RiskLimits

	// Cycle & market data
	CycleSec          int // aggregator evaluation window
	FeedPollSec       int // snapshot store refresh cadence
	SnapshotMaxAgeSec int // snapshots older than this are stale
	HistoryMax        int // per-instrument price history cap

	// Agent cadences (seconds)
	ScalpIntervalSec    int
	SwingIntervalSec    int
	ResearchIntervalSec int

	// Execution
	OrderType       OrderType
	MaxAttempts     int // retry budget for transient failures
	MaxResubmits    int // partial-fill remainder re-submissions
	BackoffBaseMs   int
	BackoffCapMs    int
	VenueTimeoutSec int
	MonitorPollSec  int // stop/take position monitor cadence

	// Ops
	Port            int
	VenueURL        string // REST venue adapter base URL; empty → paper venue
	JournalFile     string
	SlackWebhook    string
	DecisionLogSize int
	DryRun          bool
}

// loadConfigFromEnv reads the process env (already hydrated by loadEnvFile())
// and returns a Config with sane defaults if keys are missing.
func loadConfigFromEnv() Config {
	cfg := Config{
		Instruments: getEnvList("INSTRUMENTS", []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}),
		Venue:       getEnv("VENUE", "paper"),

		TotalCapitalUSD: getEnvFloat("TOTAL_CAPITAL_USD", 1000.0),
		Limits: RiskLimits{
			MaxPositionSizeFrac: getEnvFloat("MAX_POSITION_SIZE_FRAC", 0.10),
			MaxDailyLossFrac:    getEnvFloat("MAX_DAILY_LOSS_FRAC", 0.05),
			StopLossFrac:        getEnvFloat("STOP_LOSS_FRAC", 0.02),
			TakeProfitFrac:      getEnvFloat("TAKE_PROFIT_FRAC", 0.04),
			MinOrderUSD:         getEnvFloat("MIN_ORDER_USD", 5.00),
			MaxInstrumentQty:    getEnvFloat("MAX_INSTRUMENT_QTY", 0.0), // 0 disables the clamp
			DailyResetUTCHour:   getEnvInt("DAILY_RESET_UTC_HOUR", 0),
		},

		CycleSec:          getEnvInt("CYCLE_SEC", 30),
		FeedPollSec:       getEnvInt("FEED_POLL_SEC", 15),
		SnapshotMaxAgeSec: getEnvInt("SNAPSHOT_MAX_AGE_SEC", 120),
		HistoryMax:        getEnvInt("HISTORY_MAX", 500),

		ScalpIntervalSec:    getEnvInt("SCALP_INTERVAL_SEC", 15),
		SwingIntervalSec:    getEnvInt("SWING_INTERVAL_SEC", 60),
		ResearchIntervalSec: getEnvInt("RESEARCH_INTERVAL_SEC", 180),

		OrderType:       OrderTypeMarket,
		MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 3),
		MaxResubmits:    getEnvInt("MAX_RESUBMITS", 3),
		BackoffBaseMs:   getEnvInt("BACKOFF_BASE_MS", 250),
		BackoffCapMs:    getEnvInt("BACKOFF_CAP_MS", 5000),
		VenueTimeoutSec: getEnvInt("VENUE_TIMEOUT_SEC", 5),
		MonitorPollSec:  getEnvInt("MONITOR_POLL_SEC", 5),

		Port:            getEnvInt("PORT", 8080),
		VenueURL:        getEnv("VENUE_URL", ""),
		JournalFile:     getEnv("JOURNAL_FILE", "swarmtrader_journal.jsonl"),
		SlackWebhook:    getEnv("SLACK_WEBHOOK", ""),
		DecisionLogSize: getEnvInt("DECISION_LOG_SIZE", 64),
		DryRun:          getEnvBool("DRY_RUN", true),
	}

	if strings.EqualFold(getEnv("ORDER_TYPE", "market"), string(OrderTypeLimit)) {
		cfg.OrderType = OrderTypeLimit
	}
	if cfg.CycleSec <= 0 {
		cfg.CycleSec = 30
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return cfg
}

// TrustWeight returns the per-agent trust weight used by the aggregator.
// Tunable via TRUST_WEIGHT_<AGENT> (e.g. TRUST_WEIGHT_SCALPING=1.25);
// defaults to 1.0.
func (c *Config) TrustWeight(agentID string) float64 {
	key := "TRUST_WEIGHT_" + strings.ToUpper(strings.ReplaceAll(agentID, "-", "_"))
	w := getEnvFloat(key, 1.0)
	if w <= 0 {
		return 1.0
	}
	return w
}

// CycleWindow returns the aggregator evaluation window as a duration.
func (c *Config) CycleWindow() time.Duration {
	return time.Duration(c.CycleSec) * time.Second
}

// VenueTimeout bounds every venue call.
func (c *Config) VenueTimeout() time.Duration {
	if c.VenueTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.VenueTimeoutSec) * time.Second
}
