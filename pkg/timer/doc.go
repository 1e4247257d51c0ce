// SPDX-License-Identifier: BSD-3-Clause

// Package timer provides a process-wide timer service. Nothing in this
// module creates a Service: internal/registry uses only the Handle type for
// its per-node timer fields, and the dispatcher does not call Poll.
//
// A timer is started against an owner value (the owning node's registry
// handle) and a callback:
//
//	h := timers.Start(nodeHandle, onRecoveryTimeout, 120)
//
// The background tick marks a timer as rung once its deadline passes; Poll,
// called with an owner, then invokes that owner's rung callbacks
// synchronously on the calling goroutine:
//
//	timers.Poll(nodeHandle)
//
// Callbacks must not block or do I/O directly — they enqueue follow-up work
// (an HTTP request, a BMC command, a compound command) and return. A timer
// fires at most once; Reset re-arms it for another interval, and StopAll
// cancels every timer owned by a node. The registry does not call StopAll
// when it frees a node's handle.
package timer
