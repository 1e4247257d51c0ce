// SPDX-License-Identifier: BSD-3-Clause

package netagent

import (
	"context"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

// Reboot sends a fire-and-forget reboot command; success is proven only by
// loss-of-life plus time, never by an ACK (§4.2: "reset is sent to the BMC,
// not to the host agent" — reboot stays on the host-agent channel).
func (a *Agent) Reboot(network Network, addr, senderAddress, iface string) error {
	payload, err := wireproto.EncodeJSON(wireproto.CommandRequestPayload{
		SenderAddress: senderAddress,
		Interface:     iface,
	})
	if err != nil {
		return err
	}
	return a.Send(network, addr, wireproto.NewRequest(wireproto.CmdReboot, iface, [wireproto.ParmCount]uint32{}, payload))
}

// RequestMtcAlive elicits an immediate mtcAlive reply from addr on network.
func (a *Agent) RequestMtcAlive(network Network, addr string) error {
	return a.Send(network, addr, wireproto.NewRequest(wireproto.CmdMtcAliveReq, "", [wireproto.ParmCount]uint32{}, nil))
}

// RequestMtcAliveAllNetworks issues RequestMtcAlive on every address in
// addrs, the "all provisioned networks" form §4.2 requires.
func (a *Agent) RequestMtcAliveAllNetworks(addrs map[Network]string) map[Network]error {
	results := make(map[Network]error, len(addrs))
	for network, addr := range addrs {
		results[network] = a.RequestMtcAlive(network, addr)
	}
	return results
}

// StartHostServices sends a start-services-by-personality command and
// waits ackTimeout for the immediate ACK half of the ACK/RESULT protocol
// (§4.2's host-services command). The RESULT half arrives later as a
// worker message and is not waited on here.
func (a *Agent) StartHostServices(ctx context.Context, network Network, addr string, cmd wireproto.Cmd, ackTimeout time.Duration) (wireproto.Frame, error) {
	return a.sendAndWaitAck(ctx, network, addr, cmd, ackTimeout)
}

// StopHostServices is StartHostServices for the stop-services commands.
func (a *Agent) StopHostServices(ctx context.Context, network Network, addr string, cmd wireproto.Cmd, ackTimeout time.Duration) (wireproto.Frame, error) {
	return a.sendAndWaitAck(ctx, network, addr, cmd, ackTimeout)
}

// RequestGoEnabled sends a main or subf go-enabled request and waits for
// the immediate ACK. The pass/fail verdict arrives as a worker message.
func (a *Agent) RequestGoEnabled(ctx context.Context, network Network, addr string, subfunction bool, ackTimeout time.Duration) (wireproto.Frame, error) {
	cmd := wireproto.CmdMainGoEnabledReq
	if subfunction {
		cmd = wireproto.CmdSubfGoEnabledReq
	}
	return a.sendAndWaitAck(ctx, network, addr, cmd, ackTimeout)
}

// Locked/Unlocked notify the on-host agent of the admin state, fire-and-forget.
func (a *Agent) Locked(network Network, addr string) error {
	return a.Send(network, addr, wireproto.NewRequest(wireproto.CmdLocked, "", [wireproto.ParmCount]uint32{}, nil))
}

func (a *Agent) Unlocked(network Network, addr string) error {
	return a.Send(network, addr, wireproto.NewRequest(wireproto.CmdUnlocked, "", [wireproto.ParmCount]uint32{}, nil))
}

// LazyReboot sends the deferred/non-urgent reboot variant.
func (a *Agent) LazyReboot(network Network, addr string) error {
	return a.Send(network, addr, wireproto.NewRequest(wireproto.CmdLazyReboot, "", [wireproto.ParmCount]uint32{}, nil))
}

// Wipedisk sends a disk-wipe command, fire-and-forget like reboot.
func (a *Agent) Wipedisk(network Network, addr string) error {
	return a.Send(network, addr, wireproto.NewRequest(wireproto.CmdWipedisk, "", [wireproto.ParmCount]uint32{}, nil))
}

func (a *Agent) sendAndWaitAck(ctx context.Context, network Network, addr string, cmd wireproto.Cmd, ackTimeout time.Duration) (wireproto.Frame, error) {
	ackCtx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()

	return a.SendWithAck(ackCtx, network, addr, wireproto.NewRequest(cmd, "", [wireproto.ParmCount]uint32{}, nil))
}
