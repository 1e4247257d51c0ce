// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func TestRecoveryHandlerRecoversOnFirstAttempt(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-4", registry.Worker)
	node.MtcAliveGate = true

	deps := newFakeDeps()
	deps.goEnabledReady = true
	deps.goEnabledPassed = true

	h, err := NewRecoveryHandler(node, deps, testOptions())
	require.NoError(t, err)

	var terminal bool
	var status mtcerr.Kind
	for i := 0; i < 10 && !terminal; i++ {
		terminal, status, _ = h.Tick(context.Background())
	}
	require.True(t, terminal)
	require.True(t, status.IsSuccess())
	require.Equal(t, 1, h.attempt)
}

func TestRecoveryHandlerGivesUpAfterCapExceeded(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "controller-2", registry.Controller)
	node.MtcAliveGate = true

	deps := newFakeDeps()
	deps.goEnabledReady = true
	deps.goEnabledPassed = false // every enable attempt fails go-enabled

	opts := testOptions()
	opts.Config.Retry.AutoRecoveryCap = 2

	h, err := NewRecoveryHandler(node, deps, opts)
	require.NoError(t, err)

	var terminal bool
	var status mtcerr.Kind
	for i := 0; i < 50 && !terminal; i++ {
		terminal, status, _ = h.Tick(context.Background())
	}
	require.True(t, terminal)
	require.False(t, status.IsSuccess())
	require.Equal(t, 2, h.attempt)
	require.NotEmpty(t, deps.publisher.raised)
}
