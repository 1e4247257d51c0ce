// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

func newEnabledNode(t *testing.T, reg *registry.Registry, hostname string) *registry.Node {
	t.Helper()
	h, kind := reg.Add(registry.AddInput{
		Hostname:     hostname,
		UUID:         hostname + "-uuid",
		ManagementIP: "10.0.0.9",
		MAC:          "aa:bb:cc:dd:ee:02",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)
	node.OperState = registry.OperEnabled
	node.Heartbeats[registry.HeartbeatMgmt] = &registry.Heartbeat{Monitored: true}
	return node
}

func TestMNFAEntersAndExitsOnTroubleCount(t *testing.T) {
	cfg := config.MNFA{ThresholdType: "absolute", Number: 2}
	mnfa := NewMNFA(cfg, 200*time.Millisecond)

	reg := registry.New(nil)
	a := newEnabledNode(t, reg, "worker-a")
	b := newEnabledNode(t, reg, "worker-b")
	_ = newEnabledNode(t, reg, "worker-c")

	now := time.Now()
	mnfa.Advance(reg.List(), now)
	require.False(t, mnfa.Suppressing(registry.HeartbeatMgmt))

	a.Heartbeats[registry.HeartbeatMgmt].Failure = true
	b.Heartbeats[registry.HeartbeatMgmt].Failure = true
	mnfa.Advance(reg.List(), now)
	require.True(t, mnfa.Suppressing(registry.HeartbeatMgmt))

	a.Heartbeats[registry.HeartbeatMgmt].Failure = false
	b.Heartbeats[registry.HeartbeatMgmt].Failure = false
	mnfa.Advance(reg.List(), now)
	require.False(t, mnfa.Suppressing(registry.HeartbeatMgmt))
}

func TestMNFAExitsAfterRecoveryWindowEvenIfStillTroubled(t *testing.T) {
	cfg := config.MNFA{ThresholdType: "absolute", Number: 1}
	mnfa := NewMNFA(cfg, 10*time.Millisecond)

	reg := registry.New(nil)
	a := newEnabledNode(t, reg, "worker-d")
	a.Heartbeats[registry.HeartbeatMgmt].Failure = true

	start := time.Now()
	mnfa.Advance(reg.List(), start)
	require.True(t, mnfa.Suppressing(registry.HeartbeatMgmt))

	later := start.Add(50 * time.Millisecond)
	mnfa.Advance(reg.List(), later)
	require.False(t, mnfa.Suppressing(registry.HeartbeatMgmt))
}
