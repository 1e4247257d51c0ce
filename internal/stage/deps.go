// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"sync"
	"time"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/netagent"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

// Options bundles the tunables every handler reads from config, so each
// constructor takes one argument instead of threading *config.Config plus
// ad-hoc overrides.
type Options struct {
	Config *config.Config
}

// Deps is the collaborator surface every stage handler needs: the on-host
// agent, the BMC worker pool, the HTTP work queue, and the alarm surface.
// A real dispatcher feeds in the asynchronous go-enabled verdicts via
// ReportGoEnabled on the concrete NetworkDeps (host-services results go to
// internal/cmdfsm's Manager.ReportHostServicesResult instead); handlers only
// ever read them through the interface.
type Deps interface {
	SendLocked(node *registry.Node) error
	SendUnlocked(node *registry.Node) error
	SendReboot(node *registry.Node) error
	SendLazyReboot(node *registry.Node) error
	SendWipedisk(node *registry.Node) error
	RequestGoEnabledAck(ctx context.Context, node *registry.Node, subf bool, ackTimeout time.Duration) error
	RequestMtcAliveAll(node *registry.Node) error

	LaunchBMCCommand(ctx context.Context, node *registry.Node, cmd bmcworker.Command, deadline time.Duration) error
	PollBMCCommand(node *registry.Node) (done bool, result bmcworker.Result, err error)

	EnqueueHTTP(node *registry.Node, req workqueue.Request) uint64
	PollHTTP(node *registry.Node) (workqueue.Result, bool)

	Alarms() *alarm.Surface

	// GoEnabledResult reports whether a go-enabled verdict has arrived for
	// node, and if so whether it passed.
	GoEnabledResult(node *registry.Node) (ready, passed bool)
}

// NetworkDeps is the production Deps implementation.
type NetworkDeps struct {
	Agent   *netagent.Agent
	BMC     *bmcworker.Pool
	HTTP    *workqueue.Dispatcher
	Surface *alarm.Surface

	mu         sync.Mutex
	goEnabled  map[registry.Handle]bool // ready
	goPassed   map[registry.Handle]bool
}

// NewNetworkDeps builds a production Deps backed by real collaborators.
func NewNetworkDeps(agent *netagent.Agent, bmc *bmcworker.Pool, http *workqueue.Dispatcher, surface *alarm.Surface) *NetworkDeps {
	return &NetworkDeps{
		Agent:     agent,
		BMC:       bmc,
		HTTP:      http,
		Surface:   surface,
		goEnabled: make(map[registry.Handle]bool),
		goPassed:  make(map[registry.Handle]bool),
	}
}

func (d *NetworkDeps) SendLocked(node *registry.Node) error {
	return d.Agent.Locked(netagent.Management, node.ManagementIP)
}

func (d *NetworkDeps) SendUnlocked(node *registry.Node) error {
	return d.Agent.Unlocked(netagent.Management, node.ManagementIP)
}

func (d *NetworkDeps) SendReboot(node *registry.Node) error {
	return d.Agent.Reboot(netagent.Management, node.ManagementIP, "", "")
}

func (d *NetworkDeps) SendLazyReboot(node *registry.Node) error {
	return d.Agent.LazyReboot(netagent.Management, node.ManagementIP)
}

func (d *NetworkDeps) SendWipedisk(node *registry.Node) error {
	return d.Agent.Wipedisk(netagent.Management, node.ManagementIP)
}

func (d *NetworkDeps) RequestGoEnabledAck(ctx context.Context, node *registry.Node, subf bool, ackTimeout time.Duration) error {
	_, err := d.Agent.RequestGoEnabled(ctx, netagent.Management, node.ManagementIP, subf, ackTimeout)
	return err
}

func (d *NetworkDeps) RequestMtcAliveAll(node *registry.Node) error {
	addrs := map[netagent.Network]string{}
	if node.ManagementIP != "" {
		addrs[netagent.Management] = node.ManagementIP
	}
	if node.ClusterHostIP != "" {
		addrs[netagent.ClusterHost] = node.ClusterHostIP
	}
	if node.PxebootIP != "" {
		addrs[netagent.Pxeboot] = node.PxebootIP
	}
	for _, err := range d.Agent.RequestMtcAliveAllNetworks(addrs) {
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *NetworkDeps) LaunchBMCCommand(ctx context.Context, node *registry.Node, cmd bmcworker.Command, deadline time.Duration) error {
	extra := bmcworker.ExtraInfo{IP: node.BMC.IP, Username: node.BMC.Username, Password: node.BMC.Password, Type: bmcworker.Protocol(node.BMC.Type)}
	return d.BMC.Launch(ctx, node, extra, cmd, deadline)
}

func (d *NetworkDeps) PollBMCCommand(node *registry.Node) (bool, bmcworker.Result, error) {
	result, err := d.BMC.Consume(node)
	if err == bmcworker.ErrNoResult {
		return false, bmcworker.Result{}, nil
	}
	if err != nil {
		return false, bmcworker.Result{}, err
	}
	return true, result, nil
}

func (d *NetworkDeps) EnqueueHTTP(node *registry.Node, req workqueue.Request) uint64 {
	return d.HTTP.Enqueue(node, req)
}

func (d *NetworkDeps) PollHTTP(node *registry.Node) (workqueue.Result, bool) {
	return d.HTTP.Poll(node)
}

func (d *NetworkDeps) Alarms() *alarm.Surface { return d.Surface }

func (d *NetworkDeps) GoEnabledResult(node *registry.Node) (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ready := d.goEnabled[node.Handle]
	return ready, d.goPassed[node.Handle]
}

// ReportGoEnabled feeds in the go-enabled verdict once the corresponding
// worker message arrives. Clear removes any stale verdict at the start of
// a fresh enable attempt.
func (d *NetworkDeps) ReportGoEnabled(h registry.Handle, passed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.goEnabled[h] = true
	d.goPassed[h] = passed
}

func (d *NetworkDeps) ClearGoEnabled(h registry.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.goEnabled, h)
	delete(d.goPassed, h)
}
