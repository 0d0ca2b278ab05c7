// FILE: server.go
// Package main – Operational HTTP surface.
//
// Read-only endpoints for dashboards and probes:
//   • GET /healthz       – liveness
//   • GET /metrics       – Prometheus exposition
//   • GET /portfolio     – current portfolio snapshot
//   • GET /decisions?n=  – recent decision dispositions, newest first
//   • GET /agents        – per-agent health (last cycle, proposal/skip counts)
//   • GET /ws            – telemetry event stream (websocket)
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newHTTPServer(cfg Config, pipe *Pipeline, pf *Portfolio, agents []*AgentRunner, hub *Hub) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/portfolio", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, pf.Snapshot())
	})

	mux.HandleFunc("/decisions", func(w http.ResponseWriter, r *http.Request) {
		n := 50
		if v := r.URL.Query().Get("n"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				n = parsed
			}
		}
		writeJSON(w, map[string]interface{}{
			"cycle":     pipe.Cycle(),
			"decisions": pipe.Recent(n),
		})
	})

	mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		out := make([]AgentHealth, 0, len(agents))
		for _, a := range agents {
			out = append(out, a.Health())
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("/ws", hub.ServeWS)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
