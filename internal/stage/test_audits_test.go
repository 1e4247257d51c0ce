// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func TestOosTestHandlerPassesOnGoodVerdict(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-20", registry.Worker)

	deps := newFakeDeps()
	h, err := NewOosTestHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageOosTest, h.Kind())

	h.Tick(context.Background())
	deps.goEnabledReady = true
	deps.goEnabledPassed = true
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
}

func TestInsvTestHandlerRaisesAlarmOnHealthFault(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-21", registry.Worker)
	node.Health = 1

	deps := newFakeDeps()
	h, err := NewInsvTestHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageInsvTest, h.Kind())

	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.False(t, status.IsSuccess())
	require.True(t, node.HasDegradeCause(registry.DegradeInServiceTest))
	require.NotEmpty(t, deps.publisher.raised)
}
