// SPDX-License-Identifier: BSD-3-Clause

package netagent

import "github.com/mtce-project/mtce-agent/pkg/wireproto"

// InboundHandler receives frames the ACK sub-protocol did not claim.
// Implementations must return quickly — matching the "no blocking in the
// event loop" discipline required of every callback reachable from
// the dispatcher.
type InboundHandler interface {
	// HandleMtcAlive is called for every mtcAlive frame that carries a JSON
	// payload, acknowledged or not; frames of any other revision are
	// dropped by the agent. Liveness counters are updated even while
	// gated (§4).
	HandleMtcAlive(network Network, remoteAddr string, payload wireproto.MtcAlivePayload)

	// HandleWorkerMessage is called for go-enabled pass/fail, host-services
	// results, and heartbeat/pmond/hwmon events carried as worker messages.
	HandleWorkerMessage(network Network, remoteAddr string, frame wireproto.Frame)

	// HandleUnmatchedResponse is called for a command-response frame that
	// SendWithAck's pending-ack table did not have a waiter for (e.g. a
	// late response after the ACK timeout already fired).
	HandleUnmatchedResponse(network Network, remoteAddr string, frame wireproto.Frame)
}
