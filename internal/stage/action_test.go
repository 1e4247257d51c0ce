// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func TestReinstallActionHandlerConfirmsOffline(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-5", registry.Worker)
	node.MtcAliveGate = true

	deps := newFakeDeps()
	h, err := NewReinstallActionHandler(node, deps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageReinstall, h.Kind())

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, 1, deps.wipediskCalls)

	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, 1, deps.rebootCalls)

	terminal, _, _ = h.Tick(context.Background())
	require.False(t, terminal, "mtcAliveGate still set, host hasn't dropped yet")

	node.MtcAliveGate = false
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
}

func TestPowerActionHandlerSucceeds(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-6", registry.Worker)

	deps := newFakeDeps()
	h, err := NewPowerActionHandler(node, deps, testOptions(), bmcworker.PowerCycle, registry.StagePowercycle)
	require.NoError(t, err)
	require.Equal(t, registry.StagePowercycle, h.Kind())

	terminal, _, _ := h.Tick(context.Background())
	require.False(t, terminal)

	deps.bmcDone = true
	deps.bmcResult = bmcworker.Result{Status: mtcerr.OK}
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
}

func TestResetActionHandlerConfirmedOffline(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-8", registry.Worker)

	cmdDeps := &fakeCmdDeps{offline: true}
	h, err := NewResetActionHandler(node, cmdDeps, testOptions())
	require.NoError(t, err)
	require.Equal(t, registry.StageReset, h.Kind())

	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
}

func TestPowerActionHandlerFailsOnBMCResult(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-7", registry.Worker)

	deps := newFakeDeps()
	h, err := NewPowerActionHandler(node, deps, testOptions(), bmcworker.PowerOn, registry.StagePower)
	require.NoError(t, err)

	h.Tick(context.Background())

	deps.bmcDone = true
	deps.bmcResult = bmcworker.Result{Status: mtcerr.NotAccessible, StatusString: "bmc unreachable"}
	terminal, status, _ := h.Tick(context.Background())
	require.True(t, terminal)
	require.Equal(t, mtcerr.NotAccessible, status)
}
