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
	oosTestStageRun    = "run"
	oosTestStageVerify = "verify"
	oosTestPass        = "pass"
	oosTestFail        = "fail"
)

// OosTestHandler runs the out-of-service self-test audit against a locked
// node on its periodic schedule: request a fresh go-enabled-style check and
// record the verdict without touching admin/oper state (§4.9's periodic
// out-of-service audit, distinct from the one-shot enable-path go-enabled
// check in EnableHandler).
type OosTestHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	deadline time.Time
}

// NewOosTestHandler builds an out-of-service test handler for node.
func NewOosTestHandler(node *registry.Node, deps Deps, opts Options) (*OosTestHandler, error) {
	h := &OosTestHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.GoEnabled)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("oosTest:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: oosTestStageRun},
			fsm.StateDefinition{Name: oosTestStageVerify},
			fsm.StateDefinition{Name: oosTestPass},
			fsm.StateDefinition{Name: oosTestFail},
		),
		fsm.WithTransition(oosTestStageRun, oosTestStageVerify, "requested"),
		fsm.WithTransition(oosTestStageVerify, oosTestPass, "passed"),
		fsm.WithTransition(oosTestStageVerify, oosTestFail, "failed"),
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

func (h *OosTestHandler) Kind() registry.StageKind { return registry.StageOosTest }

func (h *OosTestHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case oosTestStageRun:
		if err := h.deps.RequestGoEnabledAck(ctx, h.node, h.node.Subfunction != registry.SubfunctionNone, time.Until(h.deadline)); err != nil {
			return false, mtcerr.OK, "oos test request ack pending"
		}
		h.machine.Fire(ctx, "requested", nil)
		return false, mtcerr.OK, "oos test requested"

	case oosTestStageVerify:
		ready, passed := h.deps.GoEnabledResult(h.node)
		if !ready {
			if time.Now().After(h.deadline) {
				h.machine.Fire(ctx, "failed", nil)
				return true, mtcerr.Timeout, "oos test timed out"
			}
			return false, mtcerr.OK, "awaiting oos test verdict"
		}
		if !passed {
			h.machine.Fire(ctx, "failed", nil)
			return true, mtcerr.BadState, "oos test failed"
		}
		h.machine.Fire(ctx, "passed", nil)
		return true, mtcerr.OK, "oos test passed"

	default:
		return true, mtcerr.OK, ""
	}
}
