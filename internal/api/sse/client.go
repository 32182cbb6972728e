package sse

import (
	"net/http"
	"time"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is one connected event stream
type Client struct {
	remote      string
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a client for the given remote address
func NewClient(remote string) *Client {
	return &Client{
		remote:      remote,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams a combat's events until the request ends or the hub closes.
// initial, when non-nil, is written right after the connected event.
func ServeSSE(w http.ResponseWriter, r *http.Request, manager *HubManager, combatID string, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient(r.RemoteAddr)
	var hub *Hub
	// A hub can be cleaned up between lookup and registration; retry once
	for attempt := 0; attempt < 2 && hub == nil; attempt++ {
		candidate := manager.GetOrCreateHub(combatID)
		if candidate.Register(client) {
			hub = candidate
		}
	}
	if hub == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = w.Write(formatSSEMessage("connected", `{"status":"connected"}`))
	if initial != nil {
		_, _ = w.Write(initial)
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
