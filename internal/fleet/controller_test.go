// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

func TestControllerAdvanceRunsEveryHookWithoutError(t *testing.T) {
	reg := registry.New(nil)
	_ = newEnabledNode(t, reg, "worker-n")

	cfg := config.Default()
	surface := alarm.New(&fakePublisher{})
	http := workqueue.NewDispatcher(nil, nil, map[workqueue.Target]string{}, time.Millisecond)

	ctl := New(nil, reg, cfg, surface, http, time.Now())
	require.NoError(t, ctl.Advance(context.Background()))
}
