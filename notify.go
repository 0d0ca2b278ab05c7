// FILE: notify.go
// Package main – Operator notifications.
//
// Terminal execution results and portfolio alerts fan out to a Notifier.
// Slack delivery is strictly best-effort: a webhook outage must never block
// or fail the trading path.
package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Notifier delivers a short human-readable message to the operator channel.
type Notifier interface {
	Notify(text string)
}

// SlackNotifier posts messages to an incoming-webhook URL.
type SlackNotifier struct {
	webhook string
	client  *http.Client
}

// NewSlackNotifier returns nil when the webhook is unset; a nil Notifier is
// handled by callers as "no notifications".
func NewSlackNotifier(webhook string) *SlackNotifier {
	if webhook == "" {
		return nil
	}
	return &SlackNotifier{
		webhook: webhook,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackNotifier) Notify(text string) {
	body, _ := json.Marshal(map[string]string{"text": text})
	resp, err := s.client.Post(s.webhook, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[SLACK] post failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		log.Printf("[SLACK] post status %d", resp.StatusCode)
	}
}

// LogNotifier writes notifications to the process log. Used in dry-run and
// whenever no webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(text string) { log.Printf("[NOTIFY] %s", text) }
