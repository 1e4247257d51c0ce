// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func TestAutoRecoverySuppressesAfterThreshold(t *testing.T) {
	http := workqueue.NewDispatcher(nil, nil, map[workqueue.Target]string{}, time.Millisecond)
	ar := NewAutoRecovery(http, 2)

	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-e")

	ar.Observe(node, registry.StageEnable, mtcerr.BadState)
	require.False(t, ar.Suppressed(node.Handle, CauseEnable))

	ar.Observe(node, registry.StageEnable, mtcerr.BadState)
	require.True(t, ar.Suppressed(node.Handle, CauseEnable))
}

func TestAutoRecoveryResetsOnSuccess(t *testing.T) {
	ar := NewAutoRecovery(nil, 2)

	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-f")

	ar.Observe(node, registry.StageEnable, mtcerr.BadState)
	ar.Observe(node, registry.StageEnable, mtcerr.OK)
	ar.Observe(node, registry.StageEnable, mtcerr.BadState)
	require.False(t, ar.Suppressed(node.Handle, CauseEnable))
}

func TestAutoRecoveryResetAllClearsSuppression(t *testing.T) {
	ar := NewAutoRecovery(nil, 1)

	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-g")

	ar.Observe(node, registry.StageConfig, mtcerr.BadState)
	require.True(t, ar.Suppressed(node.Handle, CauseConfig))

	ar.ResetAll(node.Handle)
	require.False(t, ar.Suppressed(node.Handle, CauseConfig))
}

func TestAutoRecoveryIgnoresUnmappedStages(t *testing.T) {
	ar := NewAutoRecovery(nil, 1)

	reg := registry.New(nil)
	node := newEnabledNode(t, reg, "worker-h")

	ar.Observe(node, registry.StageSensor, mtcerr.BadState)
	require.False(t, ar.Suppressed(node.Handle, Cause("sensor")))
}
