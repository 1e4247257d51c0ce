// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
)

const (
	disableStageNotify   = "notify_locked"
	disableStageSettle   = "settle"
	disablePass          = "pass"
)

// DisableHandler drives a node from unlocked/enabled to locked/disabled:
// notify the on-host agent, let the service stop sequence settle, then
// report the state transition (§4.7).
type DisableHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	notified bool
	settleBy time.Time
}

// NewDisableHandler builds a disable handler for node. settle is the fixed
// wait (§6's service_stop settle window) given to on-host services to stop
// cleanly before the node is reported disabled.
func NewDisableHandler(node *registry.Node, deps Deps, opts Options, settle time.Duration) (*DisableHandler, error) {
	h := &DisableHandler{node: node, deps: deps, settleBy: time.Now().Add(settle)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("disable:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: disableStageNotify},
			fsm.StateDefinition{Name: disableStageSettle},
			fsm.StateDefinition{Name: disablePass},
		),
		fsm.WithTransition(disableStageNotify, disableStageSettle, "notified"),
		fsm.WithTransition(disableStageSettle, disablePass, "settled"),
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

func (h *DisableHandler) Kind() registry.StageKind { return registry.StageDisable }

func (h *DisableHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case disableStageNotify:
		if !h.notified {
			h.deps.SendLocked(h.node)
			h.notified = true
		}
		h.machine.Fire(ctx, "notified", nil)
		return false, mtcerr.OK, "lock notification sent"

	case disableStageSettle:
		if time.Now().Before(h.settleBy) {
			return false, mtcerr.OK, "settling service stop"
		}
		h.machine.Fire(ctx, "settled", nil)
		h.deps.Alarms().Raise(ctx, alarm.OperationallyLocked, alarm.Entity{Hostname: h.node.Hostname}, alarm.Warning, "host administratively locked", "unlock to restore service")
		h.deps.EnqueueHTTP(h.node, workqueue.UpdateStates(h.node.Hostname, string(registry.AdminLocked), string(registry.OperDisabled), string(registry.AvailOffline)))
		return true, mtcerr.OK, "disable complete"

	default:
		return true, mtcerr.OK, ""
	}
}
