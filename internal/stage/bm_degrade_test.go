// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func TestBMHandlerRaisesAlarmAfterRepeatedFailures(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-11", registry.Worker)
	node.BMC.IP = "10.0.1.1"
	node.BMC.Accessible = true

	deps := newFakeDeps()
	deps.bmcLaunchErr = nil
	h := NewBMHandler(node, deps)

	for i := 0; i < bmAccessRetryCap; i++ {
		h.Tick(context.Background())            // launch
		deps.bmcDone = true
		deps.bmcResult = bmcworkerFailureResult()
		h.Tick(context.Background())            // poll -> failure
		deps.bmcDone = false
		node.BMC.Ping.Stage = bmPingIdle
		h.nextPoll = time.Time{} // bypass the real backoff window for the test
	}

	require.False(t, node.BMC.Accessible)
	require.NotEmpty(t, deps.publisher.raised)
}

func bmcworkerFailureResult() bmcworker.Result {
	return bmcworker.Result{Status: mtcerr.NotAccessible, StatusString: "no route to bmc"}
}

func TestDegradeHandlerReportsEdgeTransitionOnly(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(reg, "worker-12", registry.Worker)
	node.OperState = registry.OperEnabled

	deps := newFakeDeps()
	h := NewDegradeHandler(node, deps)

	h.Tick(context.Background())
	require.Empty(t, deps.enqueued, "first tick only establishes baseline")

	node.SetDegradeCause(registry.DegradeHardwareMonitor)
	h.Tick(context.Background())
	require.Len(t, deps.enqueued, 1)

	h.Tick(context.Background())
	require.Len(t, deps.enqueued, 1, "no new report while mask stays non-zero")

	node.ClearDegradeCause(registry.DegradeHardwareMonitor)
	h.Tick(context.Background())
	require.Len(t, deps.enqueued, 2)
}
