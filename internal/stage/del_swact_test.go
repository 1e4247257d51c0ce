// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
)

func TestDelHandlerDrainsThenDeletes(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-16", registry.Worker)
	node.AdminState = registry.AdminLocked
	node.HTTPWorkQueue.Push("pending request")

	h, err := NewDelHandler(node, reg, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, registry.StageDel, h.Kind())

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal, "should still be draining")

	node.HTTPWorkQueue.Complete(false)
	require.Eventually(t, func() bool {
		terminal, status, _ := h.Tick(context.Background())
		return terminal && status.IsSuccess()
	}, time.Second, time.Millisecond)

	_, err = reg.Get(node.Handle)
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestSwactHandlerWaitsForServiceManagerAck(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "controller-3", registry.Controller)

	deps := newFakeDeps()
	h, err := NewSwactHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageSwact, h.Kind())

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal)
	require.Len(t, deps.enqueued, 1)

	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal, "still awaiting service manager ack")

	deps.httpDone = true
	deps.httpResult = workqueue.Result{}
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
}
