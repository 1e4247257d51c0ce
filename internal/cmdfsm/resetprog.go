// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// Reset progression sub-stages (§4.6).
const (
	resetStageReboot     = "reboot_retry"
	resetStageHoldoff    = "holdoff_before_bmc_reset"
	resetStageBMCReset   = "bmc_reset_wait"
	resetStagePass       = "pass"
	resetStageFail       = "fail"
)

// ResetProgression drives one node's reboot → ACK-with-retries → BMC
// power-reset escalation through to a confirmed offline transition, or to
// failure if neither path ever proves the host down.
type ResetProgression struct {
	machine *fsm.FSM
	node    *registry.Node
	deps    Deps
	cfg     *config.Config

	attempt      int
	holdoffUntil time.Time
	resetLaunched bool
}

// NewResetProgression builds a reset progression machine for node, named so
// the owning Manager can key it uniquely.
func NewResetProgression(name string, node *registry.Node, deps Deps, cfg *config.Config) (*ResetProgression, error) {
	rp := &ResetProgression{node: node, deps: deps, cfg: cfg}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(name),
		fsm.WithStates(
			fsm.StateDefinition{Name: resetStageReboot},
			fsm.StateDefinition{Name: resetStageHoldoff},
			fsm.StateDefinition{Name: resetStageBMCReset},
			fsm.StateDefinition{Name: resetStagePass},
			fsm.StateDefinition{Name: resetStageFail},
		),
		fsm.WithTransition(resetStageReboot, resetStagePass, "offline_confirmed"),
		fsm.WithTransition(resetStageReboot, resetStageHoldoff, "retries_exhausted"),
		fsm.WithTransition(resetStageHoldoff, resetStageBMCReset, "holdoff_elapsed"),
		fsm.WithTransition(resetStageHoldoff, resetStagePass, "offline_confirmed"),
		fsm.WithTransition(resetStageBMCReset, resetStagePass, "offline_confirmed"),
		fsm.WithTransition(resetStageBMCReset, resetStageFail, "bmc_reset_failed"),
		fsm.WithTransition(resetStageBMCReset, resetStagePass, "bmc_reset_succeeded"),
	))
	if err != nil {
		return nil, err
	}
	if err := machine.Start(context.Background()); err != nil {
		return nil, err
	}
	rp.machine = machine
	return rp, nil
}

// Stage returns the sub-FSM's current stage name.
func (rp *ResetProgression) Stage() string { return rp.machine.CurrentState() }

// Done reports whether the progression has reached a terminal stage.
func (rp *ResetProgression) Done() bool {
	s := rp.Stage()
	return s == resetStagePass || s == resetStageFail
}

// Tick advances the progression by at most one transition and returns
// whether it just reached a terminal stage, plus the result to record on
// the command work FIFO entry.
func (rp *ResetProgression) Tick(ctx context.Context) (terminal bool, status mtcerr.Kind, statusString string) {
	// Late-offline-cancels-reset: if the registry already considers the
	// node offline, the progression's goal is met regardless of which
	// sub-stage it is in, unless the node looks like it never actually
	// rebooted (uptime still high) and we have no corroborating mtcAlive —
	// in that narrow case a stale "offline" report is not trusted and the
	// escalation keeps running to force a real power-cycle.
	if rp.deps.IsOffline(rp.node) {
		stale := rp.deps.UptimeHigh(rp.node) && !rp.deps.MtcAliveSeen(rp.node)
		if !stale {
			rp.machine.Fire(ctx, "offline_confirmed", nil)
			return true, mtcerr.OK, "reset progression confirmed offline"
		}
	}

	switch rp.Stage() {
	case resetStageReboot:
		return rp.tickReboot(ctx)
	case resetStageHoldoff:
		return rp.tickHoldoff(ctx)
	case resetStageBMCReset:
		return rp.tickBMCReset(ctx)
	default:
		return true, mtcerr.OK, ""
	}
}

func (rp *ResetProgression) tickReboot(ctx context.Context) (bool, mtcerr.Kind, string) {
	if rp.attempt >= rp.cfg.Retry.RebootCap {
		rp.holdoffUntil = time.Now().Add(rp.cfg.BMCResetDelayClamped())
		rp.machine.Fire(ctx, "retries_exhausted", nil)
		return false, mtcerr.OK, "reboot ack retries exhausted, holding off before bmc reset"
	}

	rp.attempt++
	if err := rp.deps.SendRebootAck(ctx, rp.node, rp.cfg.Timeouts.CmdAck); err != nil {
		return false, mtcerr.OK, "awaiting reboot ack"
	}
	// Acked: the host agent received the reboot request. Success is still
	// only proven by the node actually going offline, so stay in this
	// stage until the common offline check above fires, or retries run
	// out waiting for that to happen.
	return false, mtcerr.OK, "reboot acked, awaiting loss of life"
}

func (rp *ResetProgression) tickHoldoff(ctx context.Context) (bool, mtcerr.Kind, string) {
	if time.Now().Before(rp.holdoffUntil) {
		return false, mtcerr.OK, "holding off before bmc reset"
	}
	rp.machine.Fire(ctx, "holdoff_elapsed", nil)
	return false, mtcerr.OK, "holdoff elapsed, launching bmc reset"
}

func (rp *ResetProgression) tickBMCReset(ctx context.Context) (bool, mtcerr.Kind, string) {
	if !rp.resetLaunched {
		if err := rp.deps.LaunchBMCReset(ctx, rp.node, rp.cfg.Timeouts.BMCWorkerGrace*6); err != nil {
			return false, mtcerr.OK, "bmc reset launch pending (worker busy)"
		}
		rp.resetLaunched = true
		return false, mtcerr.OK, "bmc reset launched"
	}

	done, err := rp.deps.PollBMCReset(rp.node)
	if !done {
		return false, mtcerr.OK, "bmc reset in progress"
	}
	if err != nil {
		rp.machine.Fire(ctx, "bmc_reset_failed", nil)
		return true, mtcerr.ResetControl, err.Error()
	}
	rp.machine.Fire(ctx, "bmc_reset_succeeded", nil)
	return true, mtcerr.OK, "bmc reset completed"
}
