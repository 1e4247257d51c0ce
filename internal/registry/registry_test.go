// SPDX-License-Identifier: BSD-3-Clause

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func sampleInput(hostname, uuid, ip, mac string, personality Personality) AddInput {
	return AddInput{Hostname: hostname, UUID: uuid, ManagementIP: ip, MAC: mac, Personality: personality}
}

func TestAddRejectsDuplicateHostname(t *testing.T) {
	r := New(nil)

	_, kind := r.Add(sampleInput("worker-1", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Worker))
	require.Equal(t, mtcerr.OK, kind)

	_, kind = r.Add(sampleInput("worker-1", "uuid-2", "10.0.0.2", "aa:aa:aa:aa:aa:02", Worker))
	assert.Equal(t, mtcerr.DupHostname, kind)
}

func TestAddRejectsDuplicateIPAndMAC(t *testing.T) {
	r := New(nil)
	_, kind := r.Add(sampleInput("worker-1", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Worker))
	require.Equal(t, mtcerr.OK, kind)

	_, kind = r.Add(sampleInput("worker-2", "uuid-2", "10.0.0.1", "aa:aa:aa:aa:aa:02", Worker))
	assert.Equal(t, mtcerr.DupIPAddr, kind)

	_, kind = r.Add(sampleInput("worker-3", "uuid-3", "10.0.0.3", "aa:aa:aa:aa:aa:01", Worker))
	assert.Equal(t, mtcerr.DupMACAddr, kind)
}

func TestReservedNameMismatch(t *testing.T) {
	r := New(nil)
	_, kind := r.Add(sampleInput("controller-0", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Worker))
	assert.Equal(t, mtcerr.ReservedName, kind)
	assert.Contains(t, ReservedNameError("controller-0"), "personality set to 'controller'")

	_, err := r.GetByHostname("controller-0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservedNameAcceptedForMatchingPersonality(t *testing.T) {
	r := New(nil)
	_, kind := r.Add(sampleInput("controller-0", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Controller))
	assert.Equal(t, mtcerr.OK, kind)
}

func TestLockPreconditionControllerRequiresEnabledPeer(t *testing.T) {
	r := New(nil)
	h0, _ := r.Add(sampleInput("controller-0", "uuid-0", "10.0.0.1", "aa:aa:aa:aa:aa:01", Controller))
	r.Add(sampleInput("controller-1", "uuid-1", "10.0.0.2", "aa:aa:aa:aa:aa:02", Controller))

	assert.Equal(t, mtcerr.SwactNoInsvmate, r.LockPrecondition(h0))

	peer, err := r.GetByHostname("controller-1")
	require.NoError(t, err)
	peer.OperState = OperEnabled
	peer.AvailStatus = AvailAvailable

	assert.Equal(t, mtcerr.OK, r.LockPrecondition(h0))
}

func TestLockPreconditionWorkerUsesMigrationChecker(t *testing.T) {
	r := New(denyMigration{})
	h, _ := r.Add(sampleInput("worker-1", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Worker))

	assert.NotEqual(t, mtcerr.OK, r.LockPrecondition(h))
}

type denyMigration struct{}

func (denyMigration) CanMigrateInstancesOff(string) bool { return false }

func TestCanDeleteRequiresLockedAndIdle(t *testing.T) {
	r := New(nil)
	h, _ := r.Add(sampleInput("worker-1", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Worker))

	node, err := r.Get(h)
	require.NoError(t, err)
	node.AdminState = AdminUnlocked
	assert.Equal(t, mtcerr.DelUnlocked, r.CanDelete(h))

	node.AdminState = AdminLocked
	assert.Equal(t, mtcerr.OK, r.CanDelete(h))

	r.Delete(h)
	_, err = r.Get(h)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersByInsertion(t *testing.T) {
	r := New(nil)
	r.Add(sampleInput("worker-1", "uuid-1", "10.0.0.1", "aa:aa:aa:aa:aa:01", Worker))
	r.Add(sampleInput("worker-2", "uuid-2", "10.0.0.2", "aa:aa:aa:aa:aa:02", Worker))
	r.Add(sampleInput("worker-3", "uuid-3", "10.0.0.3", "aa:aa:aa:aa:aa:03", Worker))

	nodes := r.List()
	require.Len(t, nodes, 3)
	assert.Equal(t, "worker-1", nodes[0].Hostname)
	assert.Equal(t, "worker-2", nodes[1].Hostname)
	assert.Equal(t, "worker-3", nodes[2].Hostname)
}

func TestModifyUnknownHandleRejected(t *testing.T) {
	r := New(nil)
	name := "worker-9"
	assert.Equal(t, mtcerr.BadParm, r.Modify(Handle(999), ModifyInput{Hostname: &name}))
}

func TestModifyOrAddPromotesUnknownUUIDToAdd(t *testing.T) {
	r := New(nil)
	hostname := "worker-5"
	ip := "10.0.0.5"
	personality := Worker

	h, kind := r.ModifyOrAdd("uuid-5", ModifyInput{
		Hostname:     &hostname,
		ManagementIP: &ip,
		Personality:  &personality,
	})
	require.Equal(t, mtcerr.OK, kind)

	node, err := r.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "worker-5", node.Hostname)
	assert.Equal(t, "uuid-5", node.UUID)
	assert.Equal(t, "10.0.0.5", node.ManagementIP)
}

func TestModifyOrAddRequiresHostnameAndPersonalityToPromote(t *testing.T) {
	r := New(nil)
	ip := "10.0.0.6"

	_, kind := r.ModifyOrAdd("uuid-6", ModifyInput{ManagementIP: &ip})
	assert.Equal(t, mtcerr.BadParm, kind)
}

func TestModifyOrAddPatchesExistingNode(t *testing.T) {
	r := New(nil)
	h, kind := r.Add(sampleInput("worker-7", "uuid-7", "10.0.0.7", "aa:aa:aa:aa:aa:07", Worker))
	require.Equal(t, mtcerr.OK, kind)

	newIP := "10.0.0.70"
	gotHandle, kind := r.ModifyOrAdd("uuid-7", ModifyInput{ManagementIP: &newIP})
	require.Equal(t, mtcerr.OK, kind)
	assert.Equal(t, h, gotHandle)

	node, err := r.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.70", node.ManagementIP)
}

func TestDegradeMaskReflectsEnabledState(t *testing.T) {
	node := &Node{OperState: OperEnabled}
	assert.False(t, node.IsDegraded())

	node.SetDegradeCause(DegradeHeartbeatMgmt)
	assert.True(t, node.IsDegraded())

	node.OperState = OperDisabled
	assert.False(t, node.IsDegraded())

	node.OperState = OperEnabled
	node.ClearDegradeCause(DegradeHeartbeatMgmt)
	assert.False(t, node.IsDegraded())
}
