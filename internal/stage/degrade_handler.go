// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
)

// DegradeHandler watches a node's degrade mask and reports the
// available/degraded edge transition as it happens, independent of
// whatever admin stage is currently running (§3's degrade mask, §4.9's
// degrade_handler). Individual subsystems (heartbeat monitors, resource
// monitors, the config handler, ...) set and clear DegradeCause bits
// directly on the node; this handler only reacts to the aggregate.
type DegradeHandler struct {
	node          *registry.Node
	deps          Deps
	wasDegraded   bool
	haveBaseline  bool
}

// NewDegradeHandler builds a degrade-mask watcher for node.
func NewDegradeHandler(node *registry.Node, deps Deps) *DegradeHandler {
	return &DegradeHandler{node: node, deps: deps}
}

// Tick reports the edge transition, if any, to the inventory work queue.
func (h *DegradeHandler) Tick(ctx context.Context) {
	degraded := h.node.IsDegraded()
	if !h.haveBaseline {
		h.haveBaseline = true
		h.wasDegraded = degraded
		return
	}
	if degraded == h.wasDegraded {
		return
	}
	h.wasDegraded = degraded

	if h.node.OperState != registry.OperEnabled {
		return
	}

	avail := registry.AvailAvailable
	if degraded {
		avail = registry.AvailDegraded
	}
	h.deps.EnqueueHTTP(h.node, workqueue.UpdateStates(h.node.Hostname, string(h.node.AdminState), string(h.node.OperState), string(avail)))
}
