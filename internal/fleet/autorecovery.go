// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"fmt"
	"sync"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

// Cause is one of the named auto-recovery causes §4.9 tracks independently
// per host.
type Cause string

const (
	CauseConfig     Cause = "config"
	CauseGoEnabled  Cause = "goenabled"
	CauseServices   Cause = "services"
	CauseEnable     Cause = "enable"
	CauseHeartbeat  Cause = "heartbeat"
)

// stageCause maps a completed stage handler to the auto-recovery cause it
// counts against, per §4.9's "config / goenabled / services / enable /
// heartbeat" family. Stages outside this map never feed the counter.
var stageCause = map[registry.StageKind]Cause{
	registry.StageConfig:   CauseConfig,
	registry.StageEnable:   CauseEnable,
	registry.StageRecovery: CauseHeartbeat,
}

type arKey struct {
	handle registry.Handle
	cause  Cause
}

// AutoRecovery counts consecutive enable-handler failures per cause and,
// once a cause crosses its threshold, marks that cause suppressed for the
// host (§4.9). The user-visible task string is pushed through the same HTTP
// work FIFO every other inventory update uses. AutoRecovery only records
// the suppression: no stage handler consults Suppressed, and no admin
// lock/unlock path calls ResetAll.
type AutoRecovery struct {
	mu        sync.Mutex
	threshold int
	http      *workqueue.Dispatcher

	counts    map[arKey]int
	suppressed map[arKey]bool
}

// NewAutoRecovery builds a counter with the given per-cause failure
// threshold (cfg.Retry.AutoRecoveryCap).
func NewAutoRecovery(http *workqueue.Dispatcher, threshold int) *AutoRecovery {
	if threshold <= 0 {
		threshold = 3
	}
	return &AutoRecovery{
		threshold:  threshold,
		http:       http,
		counts:     make(map[arKey]int),
		suppressed: make(map[arKey]bool),
	}
}

// Observe is the stage.Manager.OnComplete hook: it watches every stage
// completion and, for the stages that map to a named cause, updates that
// cause's consecutive-failure count.
func (a *AutoRecovery) Observe(node *registry.Node, kind registry.StageKind, status mtcerr.Kind) {
	cause, ok := stageCause[kind]
	if !ok {
		return
	}

	key := arKey{handle: node.Handle, cause: cause}

	a.mu.Lock()
	defer a.mu.Unlock()

	if status.IsSuccess() {
		delete(a.counts, key)
		delete(a.suppressed, key)
		return
	}

	a.counts[key]++
	if a.counts[key] < a.threshold || a.suppressed[key] {
		return
	}

	a.suppressed[key] = true
	task := fmt.Sprintf("Automatic recovery disabled (%s failures)", cause)
	if a.http != nil {
		a.http.Enqueue(node, workqueue.ForceTask(node.Hostname, task))
	}
}

// Suppressed reports whether cause is currently suppressed for h. The
// suppression is cleared by ResetAll or by a later
// successful completion of a stage that maps to the same cause.
func (a *AutoRecovery) Suppressed(h registry.Handle, cause Cause) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suppressed[arKey{handle: h, cause: cause}]
}

// ResetAll clears every cause's count and suppression for h, matching
// §4.9's "a subsequent admin lock/unlock re-enables recovery".
func (a *AutoRecovery) ResetAll(h registry.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.counts {
		if key.handle == h {
			delete(a.counts, key)
			delete(a.suppressed, key)
		}
	}
}
