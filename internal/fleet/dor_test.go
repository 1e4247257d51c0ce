// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func TestDORRecordsRecoveryTimeOnAvailableEdge(t *testing.T) {
	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-m")
	node.AvailStatus = registry.AvailOffline

	start := time.Now()
	dor := NewDOR(start)
	require.True(t, dor.Active(start))

	dor.Advance(reg.List(), start)
	_, ok := dor.RecoveryTime(node.Handle)
	require.False(t, ok)

	node.AvailStatus = registry.AvailAvailable
	later := start.Add(5 * time.Second)
	dor.Advance(reg.List(), later)

	recovered, ok := dor.RecoveryTime(node.Handle)
	require.True(t, ok)
	require.Equal(t, 5*time.Second, recovered)
}

func TestDORInactiveOutsideWindow(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	dor := NewDOR(start)
	require.False(t, dor.Active(time.Now()))
}
