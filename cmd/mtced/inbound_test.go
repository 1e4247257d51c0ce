// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/netagent"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/stage"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

func newTestRouter(t *testing.T) (*hostEventRouter, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil)
	netDeps := stage.NewNetworkDeps(nil, nil, nil, nil)
	cmdMgr := cmdfsm.NewManager(nil, reg, nil, nil, 0)
	return newHostEventRouter(nil, reg, netDeps, cmdMgr), reg
}

func addTestNode(t *testing.T, reg *registry.Registry, hostname, managementIP string) *registry.Node {
	t.Helper()
	h, kind := reg.Add(registry.AddInput{
		Hostname:     hostname,
		UUID:         hostname + "-uuid",
		ManagementIP: managementIP,
		MAC:          "aa:bb:cc:dd:ee:01",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)
	return node
}

func TestHostEventRouterDoesNotMutateNodeBeforeAdvance(t *testing.T) {
	router, reg := newTestRouter(t)
	node := addTestNode(t, reg, "worker-0", "10.0.0.5")

	router.HandleMtcAlive(netagent.Management, "10.0.0.5:2112", wireproto.MtcAlivePayload{
		Hostname: "worker-0",
		Uptime:   123,
		Health:   1,
	})

	require.False(t, node.MtcAliveMgmt, "HandleMtcAlive must only queue, never mutate the node directly")

	require.NoError(t, router.Advance(context.Background()))
	require.True(t, node.MtcAliveMgmt)
	require.EqualValues(t, 123, node.Uptime)
}

func TestHostEventRouterAppliesMtcAliveByNetwork(t *testing.T) {
	router, reg := newTestRouter(t)
	node := addTestNode(t, reg, "worker-1", "10.0.0.6")

	router.HandleMtcAlive(netagent.ClusterHost, "10.0.1.6:2113", wireproto.MtcAlivePayload{Hostname: "worker-1"})
	require.NoError(t, router.Advance(context.Background()))

	require.True(t, node.MtcAliveCluster)
	require.False(t, node.MtcAliveMgmt)
}

func TestHostEventRouterUnknownHostnameDropsSilently(t *testing.T) {
	router, _ := newTestRouter(t)

	router.HandleMtcAlive(netagent.Management, "10.0.0.9:2112", wireproto.MtcAlivePayload{Hostname: "ghost"})
	require.NoError(t, router.Advance(context.Background()))
}

func TestHostEventRouterGoEnabledLooksUpByRemoteAddr(t *testing.T) {
	router, reg := newTestRouter(t)
	node := addTestNode(t, reg, "worker-2", "10.0.0.7")

	frame := wireproto.Frame{Cmd: wireproto.CmdMainGoEnabledFailed}
	router.HandleWorkerMessage(netagent.Management, "10.0.0.7:54321", frame)
	require.NoError(t, router.Advance(context.Background()))

	ready, passed := router.netDeps.GoEnabledResult(node)
	require.True(t, ready)
	require.False(t, passed)
}

func TestHostEventRouterHostServicesResultFeedsCmdManager(t *testing.T) {
	router, reg := newTestRouter(t)
	addTestNode(t, reg, "worker-3", "10.0.0.8")

	buf, err := wireproto.EncodeJSON(wireproto.HostServicesResultPayload{Hostname: "worker-3", Status: 0})
	require.NoError(t, err)
	frame := wireproto.Frame{Cmd: wireproto.CmdHostServicesResult, Revision: wireproto.RevisionJSONBuf, Buf: buf}

	router.HandleWorkerMessage(netagent.Management, "10.0.0.8:54321", frame)
	require.NoError(t, router.Advance(context.Background()))
	// No in-flight host-services sub-FSM for this node, so this is a no-op
	// other than exercising the decode-and-dispatch path without panicking.
}

func TestHandlerProxyForwardsOnlyAfterSetTarget(t *testing.T) {
	proxy := &handlerProxy{}
	var called bool
	stub := stubHandler{onMtcAlive: func() { called = true }}

	proxy.HandleMtcAlive(netagent.Management, "10.0.0.1:2112", wireproto.MtcAlivePayload{})
	require.False(t, called, "no target set yet, call must be dropped")

	proxy.SetTarget(stub)
	proxy.HandleMtcAlive(netagent.Management, "10.0.0.1:2112", wireproto.MtcAlivePayload{})
	require.True(t, called)
}

type stubHandler struct {
	onMtcAlive func()
}

func (s stubHandler) HandleMtcAlive(netagent.Network, string, wireproto.MtcAlivePayload) {
	if s.onMtcAlive != nil {
		s.onMtcAlive()
	}
}
func (s stubHandler) HandleWorkerMessage(netagent.Network, string, wireproto.Frame)     {}
func (s stubHandler) HandleUnmatchedResponse(netagent.Network, string, wireproto.Frame) {}
