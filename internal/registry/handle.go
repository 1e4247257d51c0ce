// SPDX-License-Identifier: BSD-3-Clause

package registry

// Handle is a stable, process-unique identifier for one node record. It
// replaces the original intrusive-linked-list-plus-raw-pointer design
// (§9 Design Notes) with an arena keyed by a monotonically
// increasing integer, so a Handle remains valid to hold (e.g. as a
// pkg/timer owner, or a map key) even across registry mutations that would
// invalidate a pointer or slice index.
type Handle uint64
