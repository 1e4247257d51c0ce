// SPDX-License-Identifier: BSD-3-Clause

package registry

import "errors"

var (
	// ErrNotFound indicates no node matches the given key.
	ErrNotFound = errors.New("registry: node not found")
	// ErrDupHostname indicates a hostname collision (§3 uniqueness invariant).
	ErrDupHostname = errors.New("registry: duplicate hostname")
	// ErrDupUUID indicates a uuid collision.
	ErrDupUUID = errors.New("registry: duplicate uuid")
	// ErrDupIPAddr indicates a management-IP collision.
	ErrDupIPAddr = errors.New("registry: duplicate management ip address")
	// ErrDupMACAddr indicates a MAC-address collision.
	ErrDupMACAddr = errors.New("registry: duplicate mac address")
	// ErrReservedName indicates a hostname reserved for a different
	// personality (controller-0/controller-1, storage-0).
	ErrReservedName = errors.New("registry: reserved hostname for this personality")
	// ErrDeleteUnlocked indicates a delete was attempted on an unlocked node.
	ErrDeleteUnlocked = errors.New("registry: cannot delete an unlocked host")
	// ErrOperInProgress indicates an admin action was requested while
	// another is still executing; the new action was appended to the
	// todo list rather than rejected outright, so this error is only
	// returned by callers that explicitly require immediate execution.
	ErrOperInProgress = errors.New("registry: admin operation already in progress")
	// ErrNotDeletable indicates pending timers, threads or FIFO entries
	// still reference the node (§3's destroy-time safety precondition).
	ErrNotDeletable = errors.New("registry: node still has outstanding timers, workers or queue entries")
)
