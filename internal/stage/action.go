// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/registry"
)

// ResetActionHandler wraps a compound reset progression (reboot retries
// escalating to a BMC power reset) so it can be driven directly as a stage
// rather than only via the command work FIFO (§4.7's reset/reboot stage).
type ResetActionHandler struct {
	inner cmdfsm.TickableResetProgression
	node  *registry.Node
}

// NewResetActionHandler builds a reset handler for node. cmdDeps is a
// separate, narrower collaborator surface (internal/cmdfsm.Deps) because the
// reset progression is shared verbatim with the compound-command path.
func NewResetActionHandler(node *registry.Node, cmdDeps cmdfsm.Deps, opts Options) (*ResetActionHandler, error) {
	inner, err := cmdfsm.NewDirectResetProgression(fmt.Sprintf("reset-action:%d", node.Handle), node, cmdDeps, opts.Config)
	if err != nil {
		return nil, err
	}
	return &ResetActionHandler{inner: inner, node: node}, nil
}

func (h *ResetActionHandler) Kind() registry.StageKind { return registry.StageReset }

func (h *ResetActionHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	return h.inner.Tick(ctx)
}

const (
	reinstallStageWipe   = "wipe"
	reinstallStageReboot = "reboot"
	reinstallStageWait   = "wait_offline"
	reinstallPass        = "pass"
	reinstallFail        = "fail"
)

// ReinstallActionHandler wipes the boot disk, reboots, and waits for the
// node to drop offline as confirmation the reinstall image took over
// (§4.7's reinstall stage).
type ReinstallActionHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	deadline time.Time
}

// NewReinstallActionHandler builds a reinstall handler for node.
func NewReinstallActionHandler(node *registry.Node, deps Deps, opts Options) (*ReinstallActionHandler, error) {
	h := &ReinstallActionHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.Reinstall)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("reinstall:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: reinstallStageWipe},
			fsm.StateDefinition{Name: reinstallStageReboot},
			fsm.StateDefinition{Name: reinstallStageWait},
			fsm.StateDefinition{Name: reinstallPass},
			fsm.StateDefinition{Name: reinstallFail},
		),
		fsm.WithTransition(reinstallStageWipe, reinstallStageReboot, "wiped"),
		fsm.WithTransition(reinstallStageReboot, reinstallStageWait, "rebooted"),
		fsm.WithTransition(reinstallStageWait, reinstallPass, "offline_confirmed"),
		fsm.WithTransition(reinstallStageWait, reinstallFail, "timed_out"),
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

func (h *ReinstallActionHandler) Kind() registry.StageKind { return registry.StageReinstall }

func (h *ReinstallActionHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case reinstallStageWipe:
		h.deps.SendWipedisk(h.node)
		h.machine.Fire(ctx, "wiped", nil)
		return false, mtcerr.OK, "wipedisk sent"

	case reinstallStageReboot:
		h.deps.SendReboot(h.node)
		h.machine.Fire(ctx, "rebooted", nil)
		return false, mtcerr.OK, "reboot sent"

	case reinstallStageWait:
		if !h.node.MtcAliveGate {
			h.machine.Fire(ctx, "offline_confirmed", nil)
			return true, mtcerr.OK, "reinstall in progress, host offline as expected"
		}
		if time.Now().After(h.deadline) {
			h.machine.Fire(ctx, "timed_out", nil)
			return true, mtcerr.Timeout, "host never went offline for reinstall"
		}
		return false, mtcerr.OK, "awaiting host offline"

	default:
		return true, mtcerr.OK, ""
	}
}

const (
	powerStageLaunch = "launch"
	powerStagePoll   = "poll"
	powerPass        = "pass"
	powerFail        = "fail"
)

// PowerActionHandler drives a single BMC power command (on/off/cycle)
// through the BMC worker pool to completion (§4.7's power/powercycle
// stages).
type PowerActionHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	cmd      bmcworker.Command
	kind     registry.StageKind
	deadline time.Time
}

// NewPowerActionHandler builds a power-action handler for node driving cmd,
// reported under kind (StagePower or StagePowercycle).
func NewPowerActionHandler(node *registry.Node, deps Deps, opts Options, cmd bmcworker.Command, kind registry.StageKind) (*PowerActionHandler, error) {
	h := &PowerActionHandler{node: node, deps: deps, cmd: cmd, kind: kind, deadline: time.Now().Add(opts.Config.Timeouts.BMCResetDelay)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("power:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: powerStageLaunch},
			fsm.StateDefinition{Name: powerStagePoll},
			fsm.StateDefinition{Name: powerPass},
			fsm.StateDefinition{Name: powerFail},
		),
		fsm.WithTransition(powerStageLaunch, powerStagePoll, "launched"),
		fsm.WithTransition(powerStagePoll, powerPass, "succeeded"),
		fsm.WithTransition(powerStagePoll, powerFail, "failed"),
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

func (h *PowerActionHandler) Kind() registry.StageKind { return h.kind }

func (h *PowerActionHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case powerStageLaunch:
		if err := h.deps.LaunchBMCCommand(ctx, h.node, h.cmd, time.Until(h.deadline)); err != nil {
			h.machine.Fire(ctx, "failed", nil)
			return true, mtcerr.PowerControl, err.Error()
		}
		h.machine.Fire(ctx, "launched", nil)
		return false, mtcerr.OK, "bmc command launched"

	case powerStagePoll:
		done, result, err := h.deps.PollBMCCommand(h.node)
		if err != nil {
			h.machine.Fire(ctx, "failed", nil)
			return true, mtcerr.PowerControl, err.Error()
		}
		if !done {
			if time.Now().After(h.deadline) {
				h.machine.Fire(ctx, "failed", nil)
				return true, mtcerr.Timeout, "bmc command timed out"
			}
			return false, mtcerr.OK, "awaiting bmc command result"
		}
		if !result.Status.IsSuccess() {
			h.machine.Fire(ctx, "failed", nil)
			return true, result.Status, result.StatusString
		}
		h.machine.Fire(ctx, "succeeded", nil)
		return true, mtcerr.OK, "power action complete"

	default:
		return true, mtcerr.OK, ""
	}
}
