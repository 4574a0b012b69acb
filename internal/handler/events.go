package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"orderdesk/internal/notify"
)

const (
	heartbeatInterval = 25 * time.Second
	clientBuffer      = 16
)

// Event names sent to browser tabs.
const (
	EventToast      = "toast"
	EventConnection = "connection"
	EventInvalidate = "invalidate"
	EventLogout     = "logout"
)

type event struct {
	name string
	data []byte
}

// Hub fans local events out to every open event stream. Slow clients drop
// events rather than block publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[chan event]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan event]struct{})}
}

func (h *Hub) Publish(name string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode event", "event", name, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- event{name: name, data: b}:
		default:
			slog.Warn("event dropped for slow client", "event", name)
		}
	}
}

// Toast makes the hub a notify.Toaster.
func (h *Hub) Toast(t notify.Toast) {
	h.Publish(EventToast, t)
}

func (h *Hub) subscribe() chan event {
	ch := make(chan event, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// EventsHandler streams hub events as server-sent events. The first event
// reports the current push connection state.
func EventsHandler(h *Hub, live func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		ch := h.subscribe()
		defer h.unsubscribe(ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		state, _ := json.Marshal(connectionState{Connected: live != nil && live()})
		writeEvent(w, event{name: EventConnection, data: state})
		flusher.Flush()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case e := <-ch:
				writeEvent(w, e)
				flusher.Flush()
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

type connectionState struct {
	Connected bool   `json:"connected"`
	Transport string `json:"transport,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ConnectionUp and ConnectionDown report push connectivity to open tabs.
func (h *Hub) ConnectionUp(transport string) {
	h.Publish(EventConnection, connectionState{Connected: true, Transport: transport})
}

func (h *Hub) ConnectionDown(reason string) {
	h.Publish(EventConnection, connectionState{Reason: reason})
}

func writeEvent(w http.ResponseWriter, e event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data)
}

// Reconnector restarts a push client that gave up.
type Reconnector interface {
	Reconnect()
	Connected() bool
}

func ReconnectHandler(p Reconnector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Reconnect()
		writeJSON(w, http.StatusAccepted, connectionState{Connected: p.Connected()})
	}
}
