// SPDX-License-Identifier: BSD-3-Clause

// Package workqueue implements the per-node HTTP work FIFO (C4). It is
// deliberately a plain net/http + golang.org/x/time/rate stack, distinct
// from the NATS-based pkg/ipc substrate used for peer-service coordination
// — the work queue's target services (inventory, VIM, keystone,
// service-manager) speak REST, not NATS.
package workqueue
