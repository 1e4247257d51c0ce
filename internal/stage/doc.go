// SPDX-License-Identifier: BSD-3-Clause

// Package stage implements the per-host stage handlers §4.7 names: enable,
// disable, recovery, the reset/reboot/reinstall/power/powercycle action
// family, offline, online, the BMC ping-monitor sub-FSM, the degrade
// handler, the out-of-service/in-service audit handlers, config, add, del,
// swact, sensor and subfunction-enable. Exactly one handler is "current"
// for a node at a time, selected by its admin action and recorded in
// registry.Node.Stage; Manager drives whichever one is current by at most
// one step per dispatcher tick, matching the at-most-one-state-change-per-
// tick discipline the rest of this agent's reconciliation loops follow.
package stage
