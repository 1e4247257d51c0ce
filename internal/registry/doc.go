// SPDX-License-Identifier: BSD-3-Clause

// Package registry is the single in-memory source of truth for every
// provisioned host (C3). It is owned exclusively by the dispatcher's event
// loop goroutine: all mutation happens on that one goroutine, so the
// Registry's own mutex exists only to let read-mostly collaborators (the
// REST layer, fleet controllers polling from their own goroutines) take a
// consistent snapshot, not to support concurrent writers.
package registry
