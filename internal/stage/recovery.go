// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"

	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

const (
	recoveryStageRetry = "retry_enable"
	recoveryStageGiveUp = "give_up"
	recoveryPass        = "pass"
)

// RecoveryHandler re-attempts enable up to config's auto-recovery cap after
// an in-service failure, then gives up and raises a combined-failure alarm
// for the node's personality (§4.7, §4.9's graceful-recovery counter).
type RecoveryHandler struct {
	machine *fsm.FSM
	node    *registry.Node
	deps    Deps
	opts    Options

	attempt int
	current *EnableHandler
}

// NewRecoveryHandler builds a recovery handler for node.
func NewRecoveryHandler(node *registry.Node, deps Deps, opts Options) (*RecoveryHandler, error) {
	h := &RecoveryHandler{node: node, deps: deps, opts: opts}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("recovery:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: recoveryStageRetry},
			fsm.StateDefinition{Name: recoveryStageGiveUp},
			fsm.StateDefinition{Name: recoveryPass},
		),
		fsm.WithTransition(recoveryStageRetry, recoveryPass, "recovered"),
		fsm.WithTransition(recoveryStageRetry, recoveryStageGiveUp, "cap_exceeded"),
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

func (h *RecoveryHandler) Kind() registry.StageKind { return registry.StageRecovery }

func (h *RecoveryHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case recoveryStageRetry:
		if h.current == nil {
			if h.attempt >= h.opts.Config.Retry.AutoRecoveryCap {
				h.machine.Fire(ctx, "cap_exceeded", nil)
				h.giveUp(ctx)
				return true, mtcerr.BadState, "auto-recovery cap exceeded"
			}
			h.attempt++
			h.node.Retries.GracefulRecoveryCount = uint32(h.attempt)
			eh, err := NewEnableHandler(h.node, h.deps, h.opts)
			if err != nil {
				return true, mtcerr.BadState, err.Error()
			}
			h.current = eh
		}

		terminal, status, detail := h.current.Tick(ctx)
		if !terminal {
			return false, mtcerr.OK, fmt.Sprintf("recovery attempt %d: %s", h.attempt, detail)
		}
		h.current = nil
		if status.IsSuccess() {
			h.machine.Fire(ctx, "recovered", nil)
			return true, mtcerr.OK, fmt.Sprintf("recovered on attempt %d", h.attempt)
		}
		return false, mtcerr.OK, fmt.Sprintf("recovery attempt %d failed: %s", h.attempt, detail)

	default:
		return true, mtcerr.OK, ""
	}
}

func (h *RecoveryHandler) giveUp(ctx context.Context) {
	id := alarm.CombinedWorkerFailure
	if h.node.Personality == registry.Controller {
		id = alarm.CombinedControllerFailure
	}
	h.deps.Alarms().Raise(ctx, id, alarm.Entity{Hostname: h.node.Hostname}, alarm.Critical,
		"host failed to recover after repeated enable attempts", "investigate host and manually unlock")
}
