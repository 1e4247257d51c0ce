// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func TestSensorHandlerClearsHardwareDegradeOnSuccess(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-17", registry.Worker)
	node.SetDegradeCause(registry.DegradeHardwareMonitor)

	deps := newFakeDeps()
	h, err := NewSensorHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageSensor, h.Kind())

	h.Tick(context.Background())
	deps.bmcDone = true
	deps.bmcResult.Status = mtcerr.OK
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
	require.False(t, node.HasDegradeCause(registry.DegradeHardwareMonitor))
}

func TestSubfHandlerEnablesSubfunction(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-18", registry.Worker)
	node.Subfunction = registry.SubfunctionStorage

	deps := newFakeDeps()
	h, err := NewSubfHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageSubf, h.Kind())

	deps.goEnabledReady = true
	deps.goEnabledPassed = true
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
	require.Equal(t, registry.OperEnabled, node.OperStateSubf)
	require.Equal(t, registry.AvailOnline, node.AvailStatusSubf)
}

func TestSubfHandlerFailsAndDegrades(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-19", registry.Worker)
	node.Subfunction = registry.SubfunctionWorker

	deps := newFakeDeps()
	h, err := NewSubfHandler(node, deps, testOptions())
	require.NoError(t, err)

	deps.goEnabledReady = true
	deps.goEnabledPassed = false
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.False(t, status.IsSuccess())
	require.True(t, node.HasDegradeCause(registry.DegradeSubfunction))
}
