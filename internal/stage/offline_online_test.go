// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func TestOfflineHandlerRequiresConsecutiveMisses(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-9", registry.Worker)
	node.MtcAliveGate = true

	opts := testOptions()
	threshold := opts.Config.HeartbeatThresholds.Offline
	require.Equal(t, 3, threshold)

	deps := newFakeDeps()
	h, err := NewOfflineHandler(node, deps, opts)
	require.NoError(t, err)
	require.Equal(t, registry.StageOffline, h.Kind())

	for i := 1; i < threshold; i++ {
		terminal, _, _ := h.Tick(context.Background())
		require.False(t, terminal, "must not declare offline before the threshold is reached")
		require.False(t, node.MtcAliveGate, "the gate drops immediately on stage entry")
		require.Empty(t, deps.enqueued)
	}

	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
	require.Len(t, deps.enqueued, 1)

	// A second tick is a no-op, not a second report.
	terminal, _, _ = h.Tick(context.Background())
	require.True(t, terminal)
	require.Len(t, deps.enqueued, 1)
}

func TestOfflineHandlerCancelsOnMtcAliveBeforeThreshold(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-11", registry.Worker)

	deps := newFakeDeps()
	h, err := NewOfflineHandler(node, deps, testOptions())
	require.NoError(t, err)

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal)

	node.MtcAliveMgmt = true
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal, "mtcAlive reasserted before the threshold cancels the declaration")
	require.True(t, status.IsSuccess())
	require.Empty(t, deps.enqueued, "canceling must never report offline")
}

func TestOnlineHandlerRequiresConsecutiveAliveCycles(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-10", registry.Worker)

	opts := testOptions()
	hysteresis := opts.Config.HeartbeatThresholds.OnlineHi
	require.Equal(t, 5, hysteresis)

	deps := newFakeDeps()
	h, err := NewOnlineHandler(node, deps, opts)
	require.NoError(t, err)
	require.Equal(t, registry.StageOnline, h.Kind())

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal, "should still be waiting on mtcAlive")

	for i := 1; i < hysteresis; i++ {
		node.MtcAliveMgmt = true
		terminal, _, _ = h.Tick(context.Background())
		require.False(t, terminal, "must not report online before the hysteresis count is reached")
		require.False(t, node.MtcAliveGate)
	}

	node.MtcAliveMgmt = true
	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal, "should have moved to notify")
	require.True(t, node.MtcAliveGate)

	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
	require.Len(t, deps.enqueued, 1)
}

func TestOnlineHandlerResetsStreakOnMissedCycle(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-12", registry.Worker)

	deps := newFakeDeps()
	h, err := NewOnlineHandler(node, deps, testOptions())
	require.NoError(t, err)

	node.MtcAliveMgmt = true
	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, 1, h.aliveCount)

	// A missed cycle resets the streak instead of merely pausing it.
	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, 0, h.aliveCount)
}
