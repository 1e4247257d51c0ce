// SPDX-License-Identifier: BSD-3-Clause

package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/stage"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

// fakeDeps satisfies both stage.Deps and cmdfsm.Deps so one fixture can
// back every handler the dispatcher drives.
type fakeDeps struct {
	goEnabledReady  bool
	goEnabledPassed bool
	surface         *alarm.Surface
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{surface: alarm.New(&fakePublisher{})}
}

func (f *fakeDeps) SendLocked(node *registry.Node) error    { return nil }
func (f *fakeDeps) SendUnlocked(node *registry.Node) error  { return nil }
func (f *fakeDeps) SendReboot(node *registry.Node) error    { return nil }
func (f *fakeDeps) SendLazyReboot(node *registry.Node) error { return nil }
func (f *fakeDeps) SendWipedisk(node *registry.Node) error  { return nil }

func (f *fakeDeps) RequestGoEnabledAck(ctx context.Context, node *registry.Node, subf bool, ackTimeout time.Duration) error {
	return nil
}
func (f *fakeDeps) RequestMtcAliveAll(node *registry.Node) error { return nil }

func (f *fakeDeps) LaunchBMCCommand(ctx context.Context, node *registry.Node, cmd bmcworker.Command, deadline time.Duration) error {
	return nil
}
func (f *fakeDeps) PollBMCCommand(node *registry.Node) (bool, bmcworker.Result, error) {
	return true, bmcworker.Result{}, nil
}

func (f *fakeDeps) EnqueueHTTP(node *registry.Node, req workqueue.Request) uint64 { return 0 }
func (f *fakeDeps) PollHTTP(node *registry.Node) (workqueue.Result, bool)         { return workqueue.Result{}, false }

func (f *fakeDeps) Alarms() *alarm.Surface { return f.surface }

func (f *fakeDeps) GoEnabledResult(node *registry.Node) (bool, bool) {
	return f.goEnabledReady, f.goEnabledPassed
}

func (f *fakeDeps) SendRebootAck(ctx context.Context, node *registry.Node, ackTimeout time.Duration) error {
	return nil
}
func (f *fakeDeps) LaunchBMCReset(ctx context.Context, node *registry.Node, deadline time.Duration) error {
	return nil
}
func (f *fakeDeps) PollBMCReset(node *registry.Node) (bool, error) { return true, nil }
func (f *fakeDeps) SendHostServices(ctx context.Context, node *registry.Node, cmd wireproto.Cmd, ackTimeout time.Duration) error {
	return nil
}
func (f *fakeDeps) IsOffline(node *registry.Node) bool    { return false }
func (f *fakeDeps) UptimeHigh(node *registry.Node) bool   { return true }
func (f *fakeDeps) MtcAliveSeen(node *registry.Node) bool { return true }

type fakePublisher struct{}

func (p *fakePublisher) PublishRaise(ctx context.Context, id alarm.ID, entity alarm.Entity, sev alarm.Severity, reason, action string) error {
	return nil
}
func (p *fakePublisher) PublishClear(ctx context.Context, id alarm.ID, entity alarm.Entity) error {
	return nil
}

func newTestNode(t *testing.T, reg *registry.Registry, hostname string) *registry.Node {
	t.Helper()
	h, kind := reg.Add(registry.AddInput{
		Hostname:     hostname,
		UUID:         hostname + "-uuid",
		ManagementIP: "10.0.0.5",
		MAC:          "aa:bb:cc:dd:ee:01",
		Personality:  registry.Worker,
	})
	require.True(t, kind.IsSuccess())
	node, err := reg.Get(h)
	require.NoError(t, err)
	return node
}

func newTestDispatcher(t *testing.T, reg *registry.Registry) (*Dispatcher, *fakeDeps) {
	t.Helper()
	cfg := config.Default()
	cfg.AuditIntervals.Uptime = 10 * time.Millisecond

	deps := newFakeDeps()
	cmdMgr := cmdfsm.NewManager(nil, reg, deps, cfg, time.Second)
	stageMgr := stage.NewManager(nil, reg, deps, deps, cfg, time.Second)
	httpDisp := workqueue.NewDispatcher(nil, nil, map[workqueue.Target]string{}, time.Millisecond)

	d, err := New(nil, reg, cfg, cmdMgr, stageMgr, httpDisp, deps, nil)
	require.NoError(t, err)
	return d, deps
}

func TestTickAdvancesStageHandlerOneStepAtATime(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(t, reg, "worker-1")
	node.MtcAliveGate = true
	registry.SetStage(nil, node, registry.StageEnable)

	d, deps := newTestDispatcher(t, reg)

	require.NoError(t, d.Tick(context.Background()))
	require.Equal(t, registry.StageEnable, node.Stage)

	deps.goEnabledReady = true
	deps.goEnabledPassed = true
	require.Eventually(t, func() bool {
		require.NoError(t, d.Tick(context.Background()))
		return node.Stage == registry.StageNone
	}, time.Second, time.Millisecond)
}

func TestTickSkipsSelfNode(t *testing.T) {
	reg := registry.New(nil)
	self := newTestNode(t, reg, "controller-0")
	registry.SetStage(nil, self, registry.StageEnable)

	d, _ := newTestDispatcher(t, reg)
	d.SetSelf(self.Handle)

	require.NoError(t, d.Tick(context.Background()))
	require.Equal(t, registry.StageEnable, self.Stage)
	require.False(t, d.stageMgr.Active(self.Handle))
}

func TestTickRunsUptimeAuditOnCadence(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(t, reg, "worker-2")

	d, _ := newTestDispatcher(t, reg)

	before := node.UptimeRefreshCounter
	require.NoError(t, d.Tick(context.Background()))
	require.Greater(t, node.UptimeRefreshCounter, before)
}

func TestForgetRemovesMonitorState(t *testing.T) {
	reg := registry.New(nil)
	node := newTestNode(t, reg, "worker-3")

	d, _ := newTestDispatcher(t, reg)
	require.NoError(t, d.Tick(context.Background()))
	require.Contains(t, d.bmHandlers, node.Handle)

	d.Forget(node.Handle)
	require.NotContains(t, d.bmHandlers, node.Handle)
	require.NotContains(t, d.degradeHandlers, node.Handle)
}
