// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func TestHostnameModifyRenamesAfterDrainAndSubservices(t *testing.T) {
	reg := registry.New(nil)
	h, kind := reg.Add(registry.AddInput{
		Hostname:     "worker-1",
		UUID:         "11111111-1111-1111-1111-111111111111",
		ManagementIP: "10.0.0.1",
		MAC:          "aa:bb:cc:dd:ee:01",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)

	hm, err := NewHostnameModify("rename1", node, reg, "worker-1-renamed", time.Second)
	require.NoError(t, err)

	var terminal bool
	for i := 0; i < 10 && !terminal; i++ {
		terminal, _, _ = hm.Tick(context.Background())
	}
	require.True(t, terminal)
	require.Equal(t, "worker-1-renamed", node.Hostname)

	byNewName, err := reg.GetByHostname("worker-1-renamed")
	require.NoError(t, err)
	require.Equal(t, h, byNewName.Handle)
}

func TestHostnameModifyWaitsForHTTPDrain(t *testing.T) {
	reg := registry.New(nil)
	h, kind := reg.Add(registry.AddInput{
		Hostname:     "worker-2",
		UUID:         "22222222-2222-2222-2222-222222222222",
		ManagementIP: "10.0.0.2",
		MAC:          "aa:bb:cc:dd:ee:02",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)
	node.HTTPWorkQueue.Push("pending sysinv patch")

	hm, err := NewHostnameModify("rename2", node, reg, "worker-2-renamed", 20*time.Millisecond)
	require.NoError(t, err)

	terminal, _, _ := hm.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, renameStageDrainHTTP, hm.Stage())

	time.Sleep(25 * time.Millisecond)
	terminal, _, _ = hm.Tick(context.Background())
	require.False(t, terminal)
	require.Equal(t, renameStageDelete, hm.Stage(), "drain deadline must not wedge the rename forever")
}
