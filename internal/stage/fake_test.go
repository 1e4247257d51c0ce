// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

// fakeCmdDeps implements internal/cmdfsm.Deps so the reset action handler,
// which embeds a cmdfsm.ResetProgression directly, can be tested without a
// real on-host agent or BMC worker pool.
type fakeCmdDeps struct {
	ackErr       error
	offline      bool
	uptimeHigh   bool
	mtcAliveSeen bool
	bmcLaunchErr error
	bmcDone      bool
	bmcErr       error
}

func (f *fakeCmdDeps) SendRebootAck(ctx context.Context, node *registry.Node, ackTimeout time.Duration) error {
	return f.ackErr
}

func (f *fakeCmdDeps) LaunchBMCReset(ctx context.Context, node *registry.Node, deadline time.Duration) error {
	return f.bmcLaunchErr
}

func (f *fakeCmdDeps) PollBMCReset(node *registry.Node) (bool, error) {
	return f.bmcDone, f.bmcErr
}

func (f *fakeCmdDeps) SendHostServices(ctx context.Context, node *registry.Node, cmd wireproto.Cmd, ackTimeout time.Duration) error {
	return nil
}

func (f *fakeCmdDeps) IsOffline(node *registry.Node) bool    { return f.offline }
func (f *fakeCmdDeps) UptimeHigh(node *registry.Node) bool   { return f.uptimeHigh }
func (f *fakeCmdDeps) MtcAliveSeen(node *registry.Node) bool { return f.mtcAliveSeen }

type fakeDeps struct {
	lockedCalls   int
	unlockedCalls int
	rebootCalls   int
	wipediskCalls int

	goEnabledAckErr error
	goEnabledReady  bool
	goEnabledPassed bool

	mtcAliveAllErr error

	bmcLaunchErr error
	bmcDone      bool
	bmcResult    bmcworker.Result
	bmcErr       error

	enqueued []workqueue.Request
	httpResult workqueue.Result
	httpDone   bool

	surface   *alarm.Surface
	publisher *fakePublisher
}

func newFakeDeps() *fakeDeps {
	pub := &fakePublisher{}
	return &fakeDeps{surface: alarm.New(pub), publisher: pub}
}

func (f *fakeDeps) SendLocked(node *registry.Node) error   { f.lockedCalls++; return nil }
func (f *fakeDeps) SendUnlocked(node *registry.Node) error  { f.unlockedCalls++; return nil }
func (f *fakeDeps) SendReboot(node *registry.Node) error    { f.rebootCalls++; return nil }
func (f *fakeDeps) SendLazyReboot(node *registry.Node) error { return nil }
func (f *fakeDeps) SendWipedisk(node *registry.Node) error  { f.wipediskCalls++; return nil }

func (f *fakeDeps) RequestGoEnabledAck(ctx context.Context, node *registry.Node, subf bool, ackTimeout time.Duration) error {
	return f.goEnabledAckErr
}

func (f *fakeDeps) RequestMtcAliveAll(node *registry.Node) error { return f.mtcAliveAllErr }

func (f *fakeDeps) LaunchBMCCommand(ctx context.Context, node *registry.Node, cmd bmcworker.Command, deadline time.Duration) error {
	return f.bmcLaunchErr
}

func (f *fakeDeps) PollBMCCommand(node *registry.Node) (bool, bmcworker.Result, error) {
	return f.bmcDone, f.bmcResult, f.bmcErr
}

func (f *fakeDeps) EnqueueHTTP(node *registry.Node, req workqueue.Request) uint64 {
	f.enqueued = append(f.enqueued, req)
	return uint64(len(f.enqueued))
}

func (f *fakeDeps) PollHTTP(node *registry.Node) (workqueue.Result, bool) {
	return f.httpResult, f.httpDone
}

func (f *fakeDeps) Alarms() *alarm.Surface { return f.surface }

func (f *fakeDeps) GoEnabledResult(node *registry.Node) (bool, bool) {
	return f.goEnabledReady, f.goEnabledPassed
}

type fakePublisher struct {
	raised []alarm.ID
	cleared []alarm.ID
}

func (p *fakePublisher) PublishRaise(ctx context.Context, id alarm.ID, entity alarm.Entity, sev alarm.Severity, reason, action string) error {
	p.raised = append(p.raised, id)
	return nil
}

func (p *fakePublisher) PublishClear(ctx context.Context, id alarm.ID, entity alarm.Entity) error {
	p.cleared = append(p.cleared, id)
	return nil
}

func testOptions() Options {
	cfg := config.Default()
	cfg.Timeouts.GoEnabled = 50 * time.Millisecond
	cfg.Timeouts.Sysinv = 50 * time.Millisecond
	cfg.Timeouts.Swact = 50 * time.Millisecond
	cfg.Timeouts.MtcAliveController = 50 * time.Millisecond
	cfg.Timeouts.Reinstall = 50 * time.Millisecond
	cfg.Timeouts.BMCResetDelay = 50 * time.Millisecond
	cfg.Retry.AutoRecoveryCap = 2
	return Options{Config: cfg}
}

func newTestNode(reg *registry.Registry, hostname string, personality registry.Personality) *registry.Node {
	h, kind := reg.Add(registry.AddInput{
		Hostname:     hostname,
		UUID:         hostname + "-uuid",
		ManagementIP: "10.0.0.1",
		MAC:          "aa:bb:cc:dd:ee:ff",
		Personality:  personality,
	})
	if !kind.IsSuccess() {
		panic("newTestNode: add failed: " + kind.String())
	}
	node, err := reg.Get(h)
	if err != nil {
		panic(err)
	}
	return node
}
