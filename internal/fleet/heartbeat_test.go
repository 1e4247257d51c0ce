// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

type fakePublisher struct {
	raised []alarm.ID
}

func (p *fakePublisher) PublishRaise(ctx context.Context, id alarm.ID, entity alarm.Entity, sev alarm.Severity, reason, action string) error {
	p.raised = append(p.raised, id)
	return nil
}

func (p *fakePublisher) PublishClear(ctx context.Context, id alarm.ID, entity alarm.Entity) error {
	return nil
}

func TestHeartbeatConsumerAppliesLossAndRaisesCombinedAlarm(t *testing.T) {
	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-i")

	pub := &fakePublisher{}
	surface := alarm.New(pub)
	thresholds := config.HeartbeatThresholds{Action: "fail"}
	hc := NewHeartbeatConsumer(nil, reg, surface, nil, thresholds)

	hc.apply(context.Background(), taggedEvent{kind: eventLoss, event: heartbeatEvent{Hostname: node.Hostname, Network: registry.HeartbeatMgmt}})

	require.True(t, node.Heartbeats[registry.HeartbeatMgmt].Failure)
	require.True(t, node.HasDegradeCause(registry.DegradeHeartbeatMgmt))
	require.Equal(t, registry.StageRecovery, node.Stage)
	require.Contains(t, pub.raised, alarm.CombinedWorkerFailure)
}

func TestHeartbeatConsumerSuppressedDuringMNFA(t *testing.T) {
	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-j")

	mnfa := NewMNFA(config.MNFA{ThresholdType: "absolute", Number: 1}, time.Second)
	mnfa.active[registry.HeartbeatMgmt] = true

	surface := alarm.New(&fakePublisher{})
	thresholds := config.HeartbeatThresholds{Action: "fail"}
	hc := NewHeartbeatConsumer(nil, reg, surface, mnfa, thresholds)

	hc.apply(context.Background(), taggedEvent{kind: eventLoss, event: heartbeatEvent{Hostname: node.Hostname, Network: registry.HeartbeatMgmt}})

	require.False(t, node.Heartbeats[registry.HeartbeatMgmt].Failure)
	require.Equal(t, registry.StageNone, node.Stage)
}

func TestHeartbeatConsumerMinorSetAndClear(t *testing.T) {
	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-k")

	hc := NewHeartbeatConsumer(nil, reg, alarm.New(&fakePublisher{}), nil, config.HeartbeatThresholds{Action: "fail"})

	hc.apply(context.Background(), taggedEvent{kind: eventMinorSet, event: heartbeatEvent{Hostname: node.Hostname, Network: registry.HeartbeatMgmt}})
	require.True(t, node.Heartbeats[registry.HeartbeatMgmt].Minor)

	hc.apply(context.Background(), taggedEvent{kind: eventMinorClear, event: heartbeatEvent{Hostname: node.Hostname, Network: registry.HeartbeatMgmt}})
	require.False(t, node.Heartbeats[registry.HeartbeatMgmt].Minor)
}

func TestHeartbeatConsumerDrainsQueuedEventsOnAdvance(t *testing.T) {
	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-l")

	hc := NewHeartbeatConsumer(nil, reg, alarm.New(&fakePublisher{}), nil, config.HeartbeatThresholds{Action: "alarm-only"})
	hc.inbox <- taggedEvent{kind: eventLoss, event: heartbeatEvent{Hostname: node.Hostname, Network: registry.HeartbeatMgmt}}

	require.NoError(t, hc.Advance(context.Background()))
	require.True(t, node.Heartbeats[registry.HeartbeatMgmt].Failure)
	require.Equal(t, registry.StageNone, node.Stage) // alarm-only never drives a stage
}
