// FILE: telemetry.go
// Package main – Live event stream over websocket.
//
// A Hub fans pipeline events (decisions, rejections, execution results,
// portfolio snapshots) out to connected dashboard clients on /ws. Slow or
// dead clients are dropped rather than allowed to back-pressure the
// pipeline; the broadcast channel drops events when full for the same
// reason.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type telemetryEvent struct {
	Kind string      `json:"kind"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// Hub broadcasts pipeline events to all connected websocket clients.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
	}
}

// Run pumps broadcast messages to clients until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.lock.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.lock.Unlock()
			return
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		}
	}
}

// Publish encodes and queues one event. If the hub is saturated the event
// is dropped; telemetry is advisory, the journal is the durable record.
func (h *Hub) Publish(kind string, data interface{}) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(telemetryEvent{Kind: kind, At: time.Now().UTC(), Data: data})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ServeWS is the /ws handler: upgrade, register the client, and drain its
// read side so close frames and disconnects are noticed immediately instead
// of on the next broadcast write.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}
	h.lock.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.lock.Unlock()
	log.Printf("[WS] client connected (%d total)", n)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.lock.Lock()
		if _, ok := h.clients[conn]; ok {
			delete(h.clients, conn)
		}
		left := len(h.clients)
		h.lock.Unlock()
		conn.Close()
		log.Printf("[WS] client disconnected (%d total)", left)
	}()
}
