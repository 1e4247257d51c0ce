// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

func TestHostServicesStartPassesOnResult(t *testing.T) {
	node := &registry.Node{Handle: 1, Hostname: "controller-0", Personality: registry.Controller}
	deps := &fakeDeps{}
	hs, err := NewHostServices("hs1", node, deps, testConfig(), wireproto.CmdStartServicesController, false, false)
	require.NoError(t, err)

	terminal, _, _ := hs.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, hostSvcStageWaitResult, hs.Stage())

	terminal, _, _ = hs.Tick(context.Background())
	require.False(t, terminal, "waits for the RESULT half before terminating")

	hs.ReportResult(HostServicesResult{Ready: true, Succeeded: true})
	terminal, status, _ := hs.Tick(context.Background())
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
}

func TestHostServicesStopLegacyStorageHoldsOffBeforeResult(t *testing.T) {
	node := &registry.Node{Handle: 2, Hostname: "storage-0", Personality: registry.Storage}
	deps := &fakeDeps{}
	cfg := testConfig()
	hs, err := NewHostServices("hs2", node, deps, cfg, wireproto.CmdStopServicesStorage, true, true)
	require.NoError(t, err)

	hs.Tick(context.Background())
	require.Equal(t, hostSvcStageHoldoff, hs.Stage())
}

func TestHostServicesAckFailureIsTerminal(t *testing.T) {
	node := &registry.Node{Handle: 3, Hostname: "worker-1"}
	deps := &fakeDeps{hostSvcErr: context.DeadlineExceeded}
	hs, err := NewHostServices("hs3", node, deps, testConfig(), wireproto.CmdStartServicesWorker, false, false)
	require.NoError(t, err)

	terminal, status, _ := hs.Tick(context.Background())
	require.True(t, terminal)
	require.False(t, status.IsSuccess())
}
