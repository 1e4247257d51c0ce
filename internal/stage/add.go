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
	addStageWaitAlive = "wait_mtcalive"
	addPass           = "pass"
	addFail           = "fail"
)

// AddHandler runs the newly-provisioned-host discovery step: wait for a
// first mtcAlive before the node is handed to the normal enable path, so a
// host that is never reachable fails fast rather than sitting locked
// forever with no diagnostic (§4.7's add stage).
type AddHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	deadline time.Time
}

// NewAddHandler builds an add handler for node.
func NewAddHandler(node *registry.Node, deps Deps, opts Options) (*AddHandler, error) {
	h := &AddHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.MtcAliveController)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("add:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: addStageWaitAlive},
			fsm.StateDefinition{Name: addPass},
			fsm.StateDefinition{Name: addFail},
		),
		fsm.WithTransition(addStageWaitAlive, addPass, "alive"),
		fsm.WithTransition(addStageWaitAlive, addFail, "timed_out"),
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

func (h *AddHandler) Kind() registry.StageKind { return registry.StageAdd }

func (h *AddHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case addStageWaitAlive:
		h.deps.RequestMtcAliveAll(h.node)
		if h.node.MtcAliveGate {
			h.machine.Fire(ctx, "alive", nil)
			return true, mtcerr.OK, "new host discovered and alive"
		}
		if time.Now().After(h.deadline) {
			h.machine.Fire(ctx, "timed_out", nil)
			return true, mtcerr.Timeout, "new host never came alive"
		}
		return false, mtcerr.OK, "awaiting first mtcAlive from new host"

	default:
		return true, mtcerr.OK, ""
	}
}
