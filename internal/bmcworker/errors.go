// SPDX-License-Identifier: BSD-3-Clause

package bmcworker

import "errors"

var (
	// ErrNotIdle is returned by Launch when the worker slot is not IDLE —
	// §4.5: "only LAUNCH from IDLE; otherwise return failure without
	// starting".
	ErrNotIdle = errors.New("bmcworker: worker not idle")
	// ErrCoolingOff is returned by Launch during the post-kill cool-off window.
	ErrCoolingOff = errors.New("bmcworker: worker cooling off after kill")
	// ErrNoResult is returned by Consume when no DONE result is available.
	ErrNoResult = errors.New("bmcworker: no result available")
)
