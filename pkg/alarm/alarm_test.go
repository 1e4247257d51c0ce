// SPDX-License-Identifier: BSD-3-Clause

package alarm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	raises int
	clears int
}

func (r *recordingPublisher) PublishRaise(ctx context.Context, id ID, entity Entity, sev Severity, reasonText, repairAction string) error {
	r.raises++
	return nil
}

func (r *recordingPublisher) PublishClear(ctx context.Context, id ID, entity Entity) error {
	r.clears++
	return nil
}

func TestRaiseIsIdempotentAtSameSeverity(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)
	entity := Entity{Hostname: "worker-3"}

	require.NoError(t, s.Raise(context.Background(), EnableFailure, entity, Major, "enable failed", "retry unlock"))
	require.NoError(t, s.Raise(context.Background(), EnableFailure, entity, Major, "enable failed", "retry unlock"))

	assert.Equal(t, 1, pub.raises)
	assert.Equal(t, Major, s.Severity(EnableFailure, entity))
}

func TestRaiseThenClearReturnsToClearRegardlessOfPriorSeverity(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)
	entity := Entity{Hostname: "worker-3"}

	require.NoError(t, s.Raise(context.Background(), BoardManagementInaccessible, entity, Critical, "bm unreachable", "check bmc cabling"))
	require.NoError(t, s.ClearAlarm(context.Background(), BoardManagementInaccessible, entity))

	assert.Equal(t, Clear, s.Severity(BoardManagementInaccessible, entity))
	assert.Equal(t, 1, pub.raises)
	assert.Equal(t, 1, pub.clears)
}

func TestClearIsIdempotentWhenAlreadyClear(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)
	entity := Entity{Hostname: "controller-0"}

	require.NoError(t, s.ClearAlarm(context.Background(), ConfigFailure, entity))
	assert.Equal(t, 0, pub.clears)
}

func TestSensorAlarmsCarrySubEntity(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)
	entity := Entity{Hostname: "worker-1", SubEntity: "temp-sensor-0"}

	require.NoError(t, s.Raise(context.Background(), Sensor, entity, Minor, "temperature high", "check airflow"))
	assert.Equal(t, Minor, s.Severity(Sensor, entity))
	assert.Equal(t, Clear, s.Severity(Sensor, Entity{Hostname: "worker-1", SubEntity: "temp-sensor-1"}))
}
