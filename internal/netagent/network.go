// SPDX-License-Identifier: BSD-3-Clause

// Package netagent is the UDP transport half of the on-host agent wire
// protocol (see pkg/wireproto for the codec half). It owns one datagram
// socket per physical network and the fixed-timeout cmdRsp ACK
// sub-protocol described in §4.2.
package netagent

// Network identifies one of the three physical networks the controller
// talks to an on-host agent over.
type Network string

const (
	Management  Network = "management"
	ClusterHost Network = "cluster-host"
	Pxeboot     Network = "pxeboot"
)

// AllNetworks is provisioning order used when a command must go out "on
// all provisioned networks" (§4.2's request-mtcAlive and the reset
// progression's reboot-via-all-networks step).
func AllNetworks() []Network {
	return []Network{Management, ClusterHost, Pxeboot}
}
