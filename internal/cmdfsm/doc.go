// SPDX-License-Identifier: BSD-3-Clause

// Package cmdfsm drives the compound, multi-second commands queued onto a
// node's command work FIFO (registry.Node.CmdWorkQueue): reset progression,
// host-services start/stop, and hostname modification. Each compound
// command owns a small pkg/fsm machine for its own sub-stage plus whatever
// counters its escalation policy needs; the Manager pops the FIFO head,
// routes by kind, ticks the matching sub-FSM once per dispatcher pass, and
// moves the entry to the done FIFO once its machine reaches a terminal
// stage.
package cmdfsm
