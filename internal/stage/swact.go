// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
)

const (
	swactStageNotify = "notify_sm"
	swactStageWait   = "wait_complete"
	swactPass        = "pass"
	swactFail        = "fail"
)

// SwactHandler drives a controller activity switch: notify the service
// manager of the requested swact, then poll it until the new active
// controller has taken over or the timeout expires (§4.7's swact stage).
// It runs against whatever node it is given: neither the handler nor the
// REST admin-action mapping that selects it checks the node's personality.
type SwactHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	reqID    uint64
	deadline time.Time
}

// NewSwactHandler builds a swact handler for node.
func NewSwactHandler(node *registry.Node, deps Deps, opts Options) (*SwactHandler, error) {
	h := &SwactHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.Swact)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("swact:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: swactStageNotify},
			fsm.StateDefinition{Name: swactStageWait},
			fsm.StateDefinition{Name: swactPass},
			fsm.StateDefinition{Name: swactFail},
		),
		fsm.WithTransition(swactStageNotify, swactStageWait, "notified"),
		fsm.WithTransition(swactStageWait, swactPass, "completed"),
		fsm.WithTransition(swactStageWait, swactFail, "timed_out"),
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

func (h *SwactHandler) Kind() registry.StageKind { return registry.StageSwact }

func (h *SwactHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case swactStageNotify:
		h.reqID = h.deps.EnqueueHTTP(h.node, workqueue.SMNotification(h.node.Hostname, "swact"))
		h.machine.Fire(ctx, "notified", nil)
		return false, mtcerr.OK, "swact notification sent to service manager"

	case swactStageWait:
		result, done := h.deps.PollHTTP(h.node)
		if done && !result.Failed {
			h.machine.Fire(ctx, "completed", nil)
			return true, mtcerr.OK, "swact complete"
		}
		if done && result.Failed {
			h.machine.Fire(ctx, "timed_out", nil)
			return true, mtcerr.SwactInProgress, "service manager rejected swact"
		}
		if time.Now().After(h.deadline) {
			h.machine.Fire(ctx, "timed_out", nil)
			return true, mtcerr.Timeout, "swact timed out"
		}
		return false, mtcerr.OK, "awaiting swact completion"

	default:
		return true, mtcerr.OK, ""
	}
}
