// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
)

// OfflineHandler reports a node offline once it misses mtcAlive on every
// monitored network for cfg.HeartbeatThresholds.Offline consecutive
// dispatcher cycles, clearing the liveness gate on entry so enable/recovery
// handlers notice the pending declaration right away (§4.7's offline stage,
// entered from any oper-enabled stage on loss of comm). A fresh mtcAlive
// seen before the threshold trips cancels the declaration instead of
// reporting it.
type OfflineHandler struct {
	node *registry.Node
	deps Deps
	cfg  *config.Config
	done bool
}

// NewOfflineHandler builds an offline handler for node.
func NewOfflineHandler(node *registry.Node, deps Deps, opts Options) (*OfflineHandler, error) {
	return &OfflineHandler{node: node, deps: deps, cfg: opts.Config}, nil
}

func (h *OfflineHandler) Kind() registry.StageKind { return registry.StageOffline }

func (h *OfflineHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	if h.done {
		return true, mtcerr.OK, ""
	}
	h.node.MtcAliveGate = false

	hb := heartbeatCounter(h.node, registry.HeartbeatMgmt)

	if h.node.MtcAliveMgmt || h.node.MtcAliveCluster || h.node.MtcAlivePxeboot {
		hb.B2BMisses = 0
		h.node.MtcAliveMgmt = false
		h.node.MtcAliveCluster = false
		h.node.MtcAlivePxeboot = false
		h.done = true
		return true, mtcerr.OK, "mtcAlive reasserted before offline threshold, canceling declaration"
	}

	hb.B2BMisses++
	if hb.B2BMisses < uint32(h.cfg.HeartbeatThresholds.Offline) {
		return false, mtcerr.OK, fmt.Sprintf("missed mtcAlive cycle %d/%d", hb.B2BMisses, h.cfg.HeartbeatThresholds.Offline)
	}

	h.deps.EnqueueHTTP(h.node, workqueue.UpdateStates(h.node.Hostname, string(h.node.AdminState), string(h.node.OperState), string(registry.AvailOffline)))
	hb.B2BMisses = 0
	h.done = true
	return true, mtcerr.OK, "host reported offline"
}

// heartbeatCounter returns node's per-network heartbeat counters, lazily
// creating the entry the same way node.Alarms is populated lazily — the
// offline/online handlers are the first writers for a freshly added node.
func heartbeatCounter(node *registry.Node, network registry.HeartbeatNetwork) *registry.Heartbeat {
	if node.Heartbeats == nil {
		node.Heartbeats = make(map[registry.HeartbeatNetwork]*registry.Heartbeat)
	}
	hb, ok := node.Heartbeats[network]
	if !ok {
		hb = &registry.Heartbeat{Monitored: true}
		node.Heartbeats[network] = hb
	}
	return hb
}
