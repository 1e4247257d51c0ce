// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/netagent"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

// Deps is the narrow collaborator surface every sub-FSM in this package
// needs. Keeping it an interface (rather than depending on *netagent.Agent
// and *bmcworker.Pool directly) lets tests fake the on-host agent and the
// BMC tool invocation without a real socket or subprocess.
type Deps interface {
	// SendRebootAck sends an on-host reboot request on every provisioned
	// network and waits ackTimeout for the first ACK. A nil error means at
	// least one network acked.
	SendRebootAck(ctx context.Context, node *registry.Node, ackTimeout time.Duration) error

	// LaunchBMCReset starts a BMC power-reset job for node. Returns
	// bmcworker.ErrNotIdle/ErrCoolingOff if a worker is already active.
	LaunchBMCReset(ctx context.Context, node *registry.Node, deadline time.Duration) error
	// PollBMCReset reports whether the BMC reset worker has reached DONE.
	PollBMCReset(node *registry.Node) (done bool, status error)

	// SendHostServices drives the ACK half of the start/stop host-services
	// protocol on the management network.
	SendHostServices(ctx context.Context, node *registry.Node, cmd wireproto.Cmd, ackTimeout time.Duration) error

	// IsOffline reports whether the registry already considers node
	// offline (independent of this progression's own view).
	IsOffline(node *registry.Node) bool
	// UptimeHigh reports whether node's last-known uptime counter is still
	// high enough to suggest the same boot session is still running.
	UptimeHigh(node *registry.Node) bool
	// MtcAliveSeen reports whether an mtcAlive has been observed on any
	// network since the progression started.
	MtcAliveSeen(node *registry.Node) bool
}

// NetworkDeps is the production Deps implementation, wired to a live
// netagent.Agent and bmcworker.Pool.
type NetworkDeps struct {
	Agent  *netagent.Agent
	BMC    *bmcworker.Pool
	Config *config.Config

	// UptimeHighWaterMark is the uptime (seconds) below which a node is no
	// longer considered "still in the same boot session" for the
	// late-offline-cancels-reset check (§4.6).
	UptimeHighWaterMark uint32
}

func (d *NetworkDeps) SendRebootAck(ctx context.Context, node *registry.Node, ackTimeout time.Duration) error {
	addrs := nodeAddrs(node)
	if len(addrs) == 0 {
		return fmt.Errorf("cmdfsm: node %s has no provisioned network address", node.Hostname)
	}

	var lastErr error
	acked := false
	for _, network := range netagent.AllNetworks() {
		addr, ok := addrs[network]
		if !ok {
			continue
		}
		ackCtx, cancel := context.WithTimeout(ctx, ackTimeout)
		_, err := d.Agent.SendWithAck(ackCtx, network, addr, wireproto.NewRequest(wireproto.CmdReboot, "", [wireproto.ParmCount]uint32{}, nil))
		cancel()
		if err == nil {
			acked = true
			continue
		}
		lastErr = err
	}
	if acked {
		return nil
	}
	return lastErr
}

func (d *NetworkDeps) LaunchBMCReset(ctx context.Context, node *registry.Node, deadline time.Duration) error {
	extra := bmcworker.ExtraInfo{
		IP:       node.BMC.IP,
		Username: node.BMC.Username,
		Password: node.BMC.Password,
		Type:     bmcworker.Protocol(node.BMC.Type),
	}
	return d.BMC.Launch(ctx, node, extra, bmcworker.PowerReset, deadline)
}

func (d *NetworkDeps) PollBMCReset(node *registry.Node) (bool, error) {
	result, err := d.BMC.Consume(node)
	if err == bmcworker.ErrNoResult {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if result.Status != 0 {
		return true, result.Status
	}
	return true, nil
}

func (d *NetworkDeps) SendHostServices(ctx context.Context, node *registry.Node, cmd wireproto.Cmd, ackTimeout time.Duration) error {
	addr := node.ManagementIP
	if addr == "" {
		return fmt.Errorf("cmdfsm: node %s has no management address", node.Hostname)
	}
	_, err := d.Agent.StartHostServices(ctx, netagent.Management, addr, cmd, ackTimeout)
	return err
}

func (d *NetworkDeps) IsOffline(node *registry.Node) bool {
	return node.OperState == registry.OperDisabled || node.AvailStatus == registry.AvailOffline
}

func (d *NetworkDeps) UptimeHigh(node *registry.Node) bool {
	return node.Uptime >= d.UptimeHighWaterMark
}

func (d *NetworkDeps) MtcAliveSeen(node *registry.Node) bool {
	return node.MtcAliveMgmt || node.MtcAliveCluster || node.MtcAlivePxeboot
}

func nodeAddrs(node *registry.Node) map[netagent.Network]string {
	addrs := make(map[netagent.Network]string, 3)
	if node.ManagementIP != "" {
		addrs[netagent.Management] = node.ManagementIP
	}
	if node.ClusterHostIP != "" {
		addrs[netagent.ClusterHost] = node.ClusterHostIP
	}
	if node.PxebootIP != "" {
		addrs[netagent.Pxeboot] = node.PxebootIP
	}
	return addrs
}
