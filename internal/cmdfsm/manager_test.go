// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

func TestManagerRoutesResetProgressionAndCompletesEntry(t *testing.T) {
	reg := registry.New(nil)
	h, kind := reg.Add(registry.AddInput{
		Hostname:     "worker-3",
		UUID:         "33333333-3333-3333-3333-333333333333",
		ManagementIP: "10.0.0.3",
		MAC:          "aa:bb:cc:dd:ee:03",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)

	entry := &Entry{Kind: ResetProgression}
	node.CmdWorkQueue.Push(entry)

	deps := &fakeDeps{}
	mgr := NewManager(nil, reg, deps, testConfig(), time.Second)

	require.NoError(t, mgr.Tick(context.Background(), node))
	require.True(t, mgr.Active(h))

	deps.offline = true
	require.NoError(t, mgr.Tick(context.Background(), node))
	require.False(t, mgr.Active(h), "command should have completed and been removed from in-flight")

	done := node.CmdWorkQueue.Done()
	require.Len(t, done, 1)
	require.False(t, done[0].Failed)

	completedEntry, ok := done[0].Payload.(*Entry)
	require.True(t, ok)
	require.Equal(t, mtcerr.OK, completedEntry.Status)
}

func TestManagerRejectsUnroutableEntry(t *testing.T) {
	reg := registry.New(nil)
	h, kind := reg.Add(registry.AddInput{
		Hostname:     "worker-4",
		UUID:         "44444444-4444-4444-4444-444444444444",
		ManagementIP: "10.0.0.4",
		MAC:          "aa:bb:cc:dd:ee:04",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)

	node.CmdWorkQueue.Push("not a command entry")

	mgr := NewManager(nil, reg, &fakeDeps{}, testConfig(), time.Second)
	err = mgr.Tick(context.Background(), node)
	require.Error(t, err)

	done := node.CmdWorkQueue.Done()
	require.Len(t, done, 1)
	require.True(t, done[0].Failed)
}
