// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

const (
	delStageDrain = "drain"
	delStageFinal = "finalize"
	delPass       = "pass"
	delFail       = "fail"
)

// DelHandler drains a node's queued work before removing it from the
// registry, mirroring the hostname-rename sub-FSM's drain-then-commit
// shape: it waits for the HTTP work FIFO to empty, but once the drain
// timeout passes the delete goes ahead with any requests still queued
// (§4.7's del stage).
type DelHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	reg      *registry.Registry
	deadline time.Time
}

// NewDelHandler builds a del handler for node, draining its HTTP work FIFO
// for up to drainTimeout before committing the delete.
func NewDelHandler(node *registry.Node, reg *registry.Registry, drainTimeout time.Duration) (*DelHandler, error) {
	h := &DelHandler{node: node, reg: reg, deadline: time.Now().Add(drainTimeout)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("del:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: delStageDrain},
			fsm.StateDefinition{Name: delStageFinal},
			fsm.StateDefinition{Name: delPass},
			fsm.StateDefinition{Name: delFail},
		),
		fsm.WithTransition(delStageDrain, delStageFinal, "drained"),
		fsm.WithTransition(delStageFinal, delPass, "deleted"),
		fsm.WithTransition(delStageFinal, delFail, "rejected"),
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

func (h *DelHandler) Kind() registry.StageKind { return registry.StageDel }

func (h *DelHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case delStageDrain:
		if h.node.HTTPWorkQueue.Len() > 0 && time.Now().Before(h.deadline) {
			return false, mtcerr.OK, "draining pending inventory requests before delete"
		}
		h.machine.Fire(ctx, "drained", nil)
		return false, mtcerr.OK, "work queue drained"

	case delStageFinal:
		if status := h.reg.CanDelete(h.node.Handle); status != mtcerr.OK {
			h.machine.Fire(ctx, "rejected", nil)
			return true, status, "host cannot be deleted in its current state"
		}
		h.reg.Delete(h.node.Handle)
		h.machine.Fire(ctx, "deleted", nil)
		return true, mtcerr.OK, "host deleted"

	default:
		return true, mtcerr.OK, ""
	}
}
