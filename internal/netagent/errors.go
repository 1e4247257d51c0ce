// SPDX-License-Identifier: BSD-3-Clause

package netagent

import "errors"

var (
	// ErrNoAckReceived is returned by SendWithAck when the fixed ACK
	// timeout elapses with no matching cmdRsp (§4.2).
	ErrNoAckReceived = errors.New("netagent: no command response received before ack timeout")
	// ErrUnknownNetwork indicates a Network value the agent was not
	// configured to listen on.
	ErrUnknownNetwork = errors.New("netagent: unknown network")
	// ErrAgentClosed indicates an operation on an already-closed agent.
	ErrAgentClosed = errors.New("netagent: agent closed")
)
