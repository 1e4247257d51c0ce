// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import "github.com/mtce-project/mtce-agent/pkg/mtcerr"

// Kind identifies which compound command a work FIFO entry carries.
type Kind int

const (
	// ResetProgression drives on-host reboot, ACK-with-retries, and BMC
	// power-reset escalation through to a confirmed offline transition.
	ResetProgression Kind = iota
	// HostServicesStart drives the start-services ACK/RESULT protocol.
	HostServicesStart
	// HostServicesStop drives the stop-services ACK/RESULT protocol, with
	// a legacy storage holdoff after the ACK.
	HostServicesStop
	// HostnameModify serializes a delete-then-add across the sub-services
	// that key state off the old hostname.
	HostnameModify
)

func (k Kind) String() string {
	switch k {
	case ResetProgression:
		return "reset_progression"
	case HostServicesStart:
		return "host_services_start"
	case HostServicesStop:
		return "host_services_stop"
	case HostnameModify:
		return "hostname_modify"
	default:
		return "unknown"
	}
}

// Entry is one compound command queued for a node, the payload type carried
// by registry.FIFO's Payload field for the command work queue.
type Entry struct {
	ID           uint64
	Kind         Kind
	NewHostname  string // HostnameModify only
	Status       mtcerr.Kind
	StatusString string
}
