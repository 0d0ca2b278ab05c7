// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Primary series the pipeline updates during operation:
//   • swarm_proposals_total{agent,side}    – Proposals emitted by analysis agents
//   • swarm_decisions_total{side}          – Aggregated decisions per side
//   • swarm_rejections_total{reason}       – Risk rejections split by reason code
//   • swarm_orders_total{state}            – Orders reaching a terminal state
//   • swarm_order_retries_total            – Transient-failure retries
//   • swarm_order_resubmits_total          – Partial-fill remainder re-submissions
//   • swarm_queue_drops_total              – Orders dropped at a saturated instrument queue
//   • swarm_stop_triggers_total{kind}      – Protective exits (stop|take)
//   • swarm_equity_usd                     – Portfolio total capital (gauge)
//   • swarm_daily_pnl_usd                  – Realized PnL since the daily boundary (gauge)
//   • swarm_fill_replays_total             – Duplicate fill deliveries ignored
//   • swarm_invariant_violations_total     – Portfolio invariant trips
//   • swarm_agent_skips_total{agent}       – Agent cycles skipped on stale snapshots
//   • swarm_agent_last_cycle_seconds{agent} – Unix time of each agent's last cycle
//
// Registered in init() and served by the HTTP handler started in main.go at
// /metrics (Prometheus text exposition format).

package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxProposals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_proposals_total",
			Help: "Proposals emitted by analysis agents",
		},
		[]string{"agent", "side"},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_decisions_total",
			Help: "Aggregated candidate decisions",
		},
		[]string{"side"},
	)

	mtxRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_rejections_total",
			Help: "Risk validator rejections by reason code",
		},
		[]string{"reason"},
	)

	mtxOrderResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_orders_total",
			Help: "Orders reaching a terminal state",
		},
		[]string{"state"},
	)

	mtxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_order_retries_total",
			Help: "Order submissions retried after a transient venue failure",
		},
	)

	mtxResubmits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_order_resubmits_total",
			Help: "Partial-fill remainders re-submitted to the venue",
		},
	)

	mtxQueueDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_queue_drops_total",
			Help: "Approved orders dropped because an instrument queue was full",
		},
	)

	// kind: stop|take (the protective level that fired)
	mtxStopTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_stop_triggers_total",
			Help: "Protective exits issued by the position monitor",
		},
		[]string{"kind"},
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_equity_usd",
			Help: "Portfolio total capital in USD",
		},
	)

	mtxDailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_daily_pnl_usd",
			Help: "Realized PnL since the daily boundary in USD",
		},
	)

	mtxFillReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_fill_replays_total",
			Help: "Duplicate fill deliveries ignored by the portfolio",
		},
	)

	mtxInvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_invariant_violations_total",
			Help: "Portfolio invariant violations surfaced as alerts",
		},
	)

	mtxAgentSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_agent_skips_total",
			Help: "Agent cycles skipped because the snapshot was missing or stale",
		},
		[]string{"agent"},
	)

	mtxAgentLastCycle = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarm_agent_last_cycle_seconds",
			Help: "Unix time of each agent's last completed cycle",
		},
		[]string{"agent"},
	)
)

func init() {
	prometheus.MustRegister(mtxProposals, mtxDecisions, mtxRejections)
	prometheus.MustRegister(mtxOrderResults, mtxRetries, mtxResubmits, mtxQueueDrops, mtxStopTriggers)
	prometheus.MustRegister(mtxEquity, mtxDailyPnL, mtxFillReplays, mtxInvariantViolations)
	prometheus.MustRegister(mtxAgentSkips, mtxAgentLastCycle)
}
