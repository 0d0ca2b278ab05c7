// FILE: persistence.go
// Package main – Append-only JSONL journal.
//
// Every pipeline event (proposal, decision, rejection, fill, execution
// result, protective exit) is appended as one JSON line so a crash loses at
// most the line being written. A nil *Journal is a valid no-op writer, so
// callers never guard their Write calls.
package main

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// Journal appends timestamped JSON records to a single file.
type Journal struct {
	mu sync.Mutex
	f  *os.File
	e  *json.Encoder
}

type journalRecord struct {
	Kind string      `json:"kind"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// OpenJournal opens (or creates) the journal file for appending. An empty
// path disables journaling and returns nil.
func OpenJournal(path string) (*Journal, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{f: f, e: json.NewEncoder(f)}, nil
}

// Write appends one record. Journal failures are logged, never propagated:
// persistence is best-effort and must not stall the trading path.
func (j *Journal) Write(kind string, v interface{}) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.e.Encode(journalRecord{Kind: kind, At: time.Now().UTC(), Data: v}); err != nil {
		log.Printf("[JOURNAL] write %s failed: %v", kind, err)
	}
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}
