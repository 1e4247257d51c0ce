// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

const (
	hostSvcStageSendAck   = "send_ack"
	hostSvcStageHoldoff   = "legacy_storage_holdoff"
	hostSvcStageWaitResult = "wait_result"
	hostSvcStagePass      = "pass"
	hostSvcStageFail      = "fail"
)

// HostServicesResult is what the worker-message handler reports back once
// the RESULT half of the ACK/RESULT protocol arrives (§4.2). The owning
// dispatcher feeds this in via ReportResult; until it does, the sub-FSM
// simply waits.
type HostServicesResult struct {
	Ready     bool
	Succeeded bool
	Reason    string
}

// HostServices drives the start/stop host-services ACK/RESULT protocol,
// including the legacy-mode storage-stop holdoff after the ACK (§4.6).
type HostServices struct {
	machine *fsm.FSM
	node    *registry.Node
	deps    Deps
	cfg     *config.Config

	cmd          wireproto.Cmd
	isStop       bool
	isLegacyStorage bool
	holdoffUntil time.Time
	acked        bool
	result       HostServicesResult
}

// NewHostServices builds a host-services sub-FSM. stop selects the
// stop-services command family; legacyStorage selects the extra holdoff
// §4.6 requires for legacy-mode storage hosts after the stop ACK.
func NewHostServices(name string, node *registry.Node, deps Deps, cfg *config.Config, cmd wireproto.Cmd, stop, legacyStorage bool) (*HostServices, error) {
	hs := &HostServices{node: node, deps: deps, cfg: cfg, cmd: cmd, isStop: stop, isLegacyStorage: legacyStorage}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(name),
		fsm.WithStates(
			fsm.StateDefinition{Name: hostSvcStageSendAck},
			fsm.StateDefinition{Name: hostSvcStageHoldoff},
			fsm.StateDefinition{Name: hostSvcStageWaitResult},
			fsm.StateDefinition{Name: hostSvcStagePass},
			fsm.StateDefinition{Name: hostSvcStageFail},
		),
		fsm.WithTransition(hostSvcStageSendAck, hostSvcStageHoldoff, "acked_with_holdoff"),
		fsm.WithTransition(hostSvcStageSendAck, hostSvcStageWaitResult, "acked"),
		fsm.WithTransition(hostSvcStageSendAck, hostSvcStageFail, "ack_timed_out"),
		fsm.WithTransition(hostSvcStageHoldoff, hostSvcStageWaitResult, "holdoff_elapsed"),
		fsm.WithTransition(hostSvcStageWaitResult, hostSvcStagePass, "result_pass"),
		fsm.WithTransition(hostSvcStageWaitResult, hostSvcStageFail, "result_fail"),
	))
	if err != nil {
		return nil, err
	}
	if err := machine.Start(context.Background()); err != nil {
		return nil, err
	}
	hs.machine = machine
	return hs, nil
}

// Stage returns the sub-FSM's current stage name.
func (hs *HostServices) Stage() string { return hs.machine.CurrentState() }

// Done reports whether the sub-FSM has reached a terminal stage.
func (hs *HostServices) Done() bool {
	s := hs.Stage()
	return s == hostSvcStagePass || s == hostSvcStageFail
}

// ReportResult feeds in the RESULT half of the protocol once the worker
// message arrives; it does not itself drive a transition, Tick does.
func (hs *HostServices) ReportResult(r HostServicesResult) { hs.result = r }

// Tick advances the sub-FSM by at most one transition.
func (hs *HostServices) Tick(ctx context.Context) (terminal bool, status mtcerr.Kind, statusString string) {
	switch hs.Stage() {
	case hostSvcStageSendAck:
		return hs.tickSendAck(ctx)
	case hostSvcStageHoldoff:
		return hs.tickHoldoff(ctx)
	case hostSvcStageWaitResult:
		return hs.tickWaitResult(ctx)
	default:
		return true, mtcerr.OK, ""
	}
}

func (hs *HostServices) tickSendAck(ctx context.Context) (bool, mtcerr.Kind, string) {
	if !hs.acked {
		if err := hs.deps.SendHostServices(ctx, hs.node, hs.cmd, hs.cfg.Timeouts.CmdAck); err != nil {
			hs.machine.Fire(ctx, "ack_timed_out", nil)
			return true, mtcerr.NoCmdAck, "host-services ack timed out"
		}
		hs.acked = true
	}

	if hs.isStop && hs.isLegacyStorage {
		hs.holdoffUntil = time.Now().Add(hs.cfg.Timeouts.StorageServicesHoldoff)
		hs.machine.Fire(ctx, "acked_with_holdoff", nil)
		return false, mtcerr.OK, "stop-services acked, legacy storage holdoff in progress"
	}

	hs.machine.Fire(ctx, "acked", nil)
	return false, mtcerr.OK, "host-services acked, awaiting result"
}

func (hs *HostServices) tickHoldoff(ctx context.Context) (bool, mtcerr.Kind, string) {
	if time.Now().Before(hs.holdoffUntil) {
		return false, mtcerr.OK, "legacy storage holdoff in progress"
	}
	hs.machine.Fire(ctx, "holdoff_elapsed", nil)
	return false, mtcerr.OK, "holdoff elapsed, awaiting result"
}

func (hs *HostServices) tickWaitResult(ctx context.Context) (bool, mtcerr.Kind, string) {
	if !hs.result.Ready {
		return false, mtcerr.OK, "awaiting host-services result"
	}
	if hs.result.Succeeded {
		hs.machine.Fire(ctx, "result_pass", nil)
		return true, mtcerr.OK, "host-services completed"
	}
	hs.machine.Fire(ctx, "result_fail", nil)
	return true, mtcerr.NotActive, hs.result.Reason
}
