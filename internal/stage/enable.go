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
	enableStageNotify     = "notify_unlocked"
	enableStageMtcAlive   = "wait_mtcalive"
	enableStageGoEnabled  = "goenabled"
	enablePass            = "pass"
	enableFail            = "fail"
)

// EnableHandler drives a node from locked/disabled through an unlock
// notification, mtcAlive gate, and go-enabled verdict to enabled (§4.7).
type EnableHandler struct {
	machine *fsm.FSM
	node    *registry.Node
	deps    Deps
	opts    Options

	notified  bool
	ackSent   bool
	deadline  time.Time
}

// NewEnableHandler builds an enable handler for node.
func NewEnableHandler(node *registry.Node, deps Deps, opts Options) (*EnableHandler, error) {
	h := &EnableHandler{node: node, deps: deps, opts: opts, deadline: time.Now().Add(opts.Config.Timeouts.GoEnabled)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("enable:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: enableStageNotify},
			fsm.StateDefinition{Name: enableStageMtcAlive},
			fsm.StateDefinition{Name: enableStageGoEnabled},
			fsm.StateDefinition{Name: enablePass},
			fsm.StateDefinition{Name: enableFail},
		),
		fsm.WithTransition(enableStageNotify, enableStageMtcAlive, "notified"),
		fsm.WithTransition(enableStageMtcAlive, enableStageGoEnabled, "alive"),
		fsm.WithTransition(enableStageMtcAlive, enableFail, "timed_out"),
		fsm.WithTransition(enableStageGoEnabled, enablePass, "goenabled_pass"),
		fsm.WithTransition(enableStageGoEnabled, enableFail, "goenabled_fail"),
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

func (h *EnableHandler) Kind() registry.StageKind { return registry.StageEnable }

func (h *EnableHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case enableStageNotify:
		if !h.notified {
			h.deps.SendUnlocked(h.node)
			h.notified = true
		}
		h.machine.Fire(ctx, "notified", nil)
		return false, mtcerr.OK, "unlock notification sent"

	case enableStageMtcAlive:
		if h.node.MtcAliveGate {
			h.machine.Fire(ctx, "alive", nil)
			return false, mtcerr.OK, "mtcAlive gate open, requesting go-enabled"
		}
		if time.Now().After(h.deadline) {
			h.machine.Fire(ctx, "timed_out", nil)
			h.raiseFailure("no mtcAlive before enable timeout")
			return true, mtcerr.Timeout, "enable timed out waiting for mtcAlive"
		}
		return false, mtcerr.OK, "awaiting mtcAlive gate"

	case enableStageGoEnabled:
		if !h.ackSent {
			if err := h.deps.RequestGoEnabledAck(ctx, h.node, h.node.Subfunction != registry.SubfunctionNone, h.opts.Config.Timeouts.GoEnabled); err != nil {
				return false, mtcerr.OK, "go-enabled request ack pending"
			}
			h.ackSent = true
		}
		ready, passed := h.deps.GoEnabledResult(h.node)
		if !ready {
			if time.Now().After(h.deadline) {
				h.machine.Fire(ctx, "goenabled_fail", nil)
				h.raiseFailure("go-enabled timed out")
				return true, mtcerr.Timeout, "go-enabled timed out"
			}
			return false, mtcerr.OK, "awaiting go-enabled verdict"
		}
		if !passed {
			h.machine.Fire(ctx, "goenabled_fail", nil)
			h.raiseFailure("go-enabled test failed")
			return true, mtcerr.BadState, "go-enabled test failed"
		}
		h.machine.Fire(ctx, "goenabled_pass", nil)
		h.deps.Alarms().ClearAlarm(ctx, alarm.EnableFailure, alarm.Entity{Hostname: h.node.Hostname})
		h.deps.EnqueueHTTP(h.node, workqueue.UpdateStates(h.node.Hostname, string(h.node.AdminState), string(registry.OperEnabled), string(registry.AvailOnline)))
		return true, mtcerr.OK, "enable complete"

	default:
		return true, mtcerr.OK, ""
	}
}

func (h *EnableHandler) raiseFailure(reason string) {
	h.deps.Alarms().Raise(context.Background(), alarm.EnableFailure, alarm.Entity{Hostname: h.node.Hostname}, alarm.Major, reason, "check on-host agent logs and retry unlock")
}
