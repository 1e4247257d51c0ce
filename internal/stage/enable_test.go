// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func TestEnableHandlerHappyPath(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-1", registry.Worker)

	deps := newFakeDeps()
	h, err := NewEnableHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageEnable, h.Kind())

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, 1, deps.unlockedCalls)

	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal, "should be waiting on mtcAlive gate")

	node.MtcAliveGate = true
	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal, "should have requested go-enabled")

	deps.goEnabledReady = true
	deps.goEnabledPassed = true
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
	require.Len(t, deps.enqueued, 1)
}

func TestEnableHandlerGoEnabledFailureRaisesAlarm(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-2", registry.Worker)
	node.MtcAliveGate = true

	deps := newFakeDeps()
	h, err := NewEnableHandler(node, deps, testOptions())
	require.NoError(t, err)

	h.Tick(context.Background())
	h.Tick(context.Background())

	deps.goEnabledReady = true
	deps.goEnabledPassed = false
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.False(t, status.IsSuccess())
}
