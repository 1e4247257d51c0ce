// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func TestEventHubBroadcastsToConnectedClient(t *testing.T) {
	hub := NewEventHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		n := len(hub.clients)
		hub.mu.Unlock()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	node := &registry.Node{Hostname: "worker-1", AdminState: registry.AdminLocked, OperState: registry.OperDisabled, AvailStatus: registry.AvailOffline}
	hub.NotifyStateChange(node)

	var ev stateChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "worker-1", ev.Hostname)
	require.Equal(t, "locked", ev.AdminState)
}

func TestEventHubNotifyStateChangeNilReceiverIsNoop(t *testing.T) {
	var hub *EventHub
	hub.NotifyStateChange(&registry.Node{Hostname: "worker-2"})
}
