// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"sync"
	"time"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// dorWindow is how long after controller start-of-day a host's recovery is
// still tracked against the extended DOR window (§4.9). original_source/
// uses a multiple of the normal enable audit window; 30 minutes is a
// conservative, clearly-longer-than-normal-enable figure.
const dorWindow = 30 * time.Minute

// DOR activates when the active controller itself has come up recently:
// each slave host's availability transition is then evaluated against the
// extended window, and how long each host took to recover is logged for
// operator visibility.
type DOR struct {
	mu        sync.Mutex
	startedAt time.Time

	recovered map[registry.Handle]time.Duration
	seen      map[registry.Handle]registry.AvailStatus
}

// NewDOR starts the window from now — call this once, at controller
// startup.
func NewDOR(now time.Time) *DOR {
	return &DOR{
		startedAt: now,
		recovered: make(map[registry.Handle]time.Duration),
		seen:      make(map[registry.Handle]registry.AvailStatus),
	}
}

// Active reports whether the extended post-start-of-day window is still
// open.
func (d *DOR) Active(now time.Time) bool {
	return now.Sub(d.startedAt) < dorWindow
}

// Advance watches every node's availability for the edge into
// AvailAvailable while the window is open, and records how long it took
// from controller start.
func (d *DOR) Advance(nodes []*registry.Node, now time.Time) {
	if !d.Active(now) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, node := range nodes {
		prev := d.seen[node.Handle]
		d.seen[node.Handle] = node.AvailStatus

		if prev != registry.AvailAvailable && node.AvailStatus == registry.AvailAvailable {
			if _, already := d.recovered[node.Handle]; !already {
				d.recovered[node.Handle] = now.Sub(d.startedAt)
			}
		}
	}
}

// RecoveryTime returns how long h took to reach AvailAvailable since
// controller start, if it has been observed doing so within the window.
func (d *DOR) RecoveryTime(h registry.Handle) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.recovered[h]
	return t, ok
}
