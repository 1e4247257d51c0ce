// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
)

const (
	onlineStageWait   = "wait_mtcalive"
	onlineStageNotify = "notify"
	onlinePass        = "pass"
)

// OnlineHandler waits for a previously offline host to re-assert mtcAlive on
// any monitored network for cfg.HeartbeatThresholds.OnlineHi consecutive
// dispatcher cycles before reporting it back online and handing control to
// recovery/enable (§4.7's online stage). A missed cycle anywhere in the
// streak resets the count, so a single stray mtcAlive can't satisfy the
// hysteresis on its own.
type OnlineHandler struct {
	machine    *fsm.FSM
	node       *registry.Node
	deps       Deps
	cfg        *config.Config
	deadline   time.Time
	aliveCount int
}

// NewOnlineHandler builds an online handler for node.
func NewOnlineHandler(node *registry.Node, deps Deps, opts Options) (*OnlineHandler, error) {
	h := &OnlineHandler{node: node, deps: deps, cfg: opts.Config, deadline: time.Now().Add(opts.Config.Timeouts.MtcAliveController)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("online:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: onlineStageWait},
			fsm.StateDefinition{Name: onlineStageNotify},
			fsm.StateDefinition{Name: onlinePass},
		),
		fsm.WithTransition(onlineStageWait, onlineStageNotify, "alive"),
		fsm.WithTransition(onlineStageNotify, onlinePass, "notified"),
	))
	if err != nil {
		return nil, err
	}
	if err := machine.Start(context.Background()); err != nil {
		return nil, err
	}
	h.machine = machine
	return h, nil
}

func (h *OnlineHandler) Kind() registry.StageKind { return registry.StageOnline }

func (h *OnlineHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case onlineStageWait:
		if !(h.node.MtcAliveMgmt || h.node.MtcAliveCluster || h.node.MtcAlivePxeboot) {
			h.aliveCount = 0
			if time.Now().After(h.deadline) {
				return false, mtcerr.OK, "still awaiting mtcAlive after online transition"
			}
			return false, mtcerr.OK, "awaiting mtcAlive"
		}

		h.node.MtcAliveMgmt = false
		h.node.MtcAliveCluster = false
		h.node.MtcAlivePxeboot = false
		h.aliveCount++
		if h.aliveCount < h.cfg.HeartbeatThresholds.OnlineHi {
			return false, mtcerr.OK, fmt.Sprintf("mtcAlive seen %d/%d consecutive cycles", h.aliveCount, h.cfg.HeartbeatThresholds.OnlineHi)
		}

		h.node.MtcAliveGate = true
		h.machine.Fire(ctx, "alive", nil)
		return false, mtcerr.OK, "mtcAlive hysteresis satisfied, notifying online"

	case onlineStageNotify:
		h.deps.EnqueueHTTP(h.node, workqueue.UpdateStates(h.node.Hostname, string(h.node.AdminState), string(h.node.OperState), string(registry.AvailOnline)))
		h.machine.Fire(ctx, "notified", nil)
		return true, mtcerr.OK, "host back online"

	default:
		return true, mtcerr.OK, ""
	}
}
