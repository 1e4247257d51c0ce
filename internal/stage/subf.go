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
	subfStageGoEnabled = "goenabled"
	subfPass           = "pass"
	subfFail           = "fail"
)

// SubfHandler runs the subfunction go-enabled check on an all-in-one host
// (one whose Subfunction is worker or storage alongside its primary
// personality), updating OperStateSubf/AvailStatusSubf independently of the
// primary personality's own enable path (§4.7's subf stage, §3's
// OperStateSubf/AvailStatusSubf).
type SubfHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	ackSent  bool
	deadline time.Time
}

// NewSubfHandler builds a subfunction-enable handler for node.
func NewSubfHandler(node *registry.Node, deps Deps, opts Options) (*SubfHandler, error) {
	h := &SubfHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.GoEnabled)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("subf:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: subfStageGoEnabled},
			fsm.StateDefinition{Name: subfPass},
			fsm.StateDefinition{Name: subfFail},
		),
		fsm.WithTransition(subfStageGoEnabled, subfPass, "goenabled_pass"),
		fsm.WithTransition(subfStageGoEnabled, subfFail, "goenabled_fail"),
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

func (h *SubfHandler) Kind() registry.StageKind { return registry.StageSubf }

func (h *SubfHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case subfStageGoEnabled:
		if !h.ackSent {
			if err := h.deps.RequestGoEnabledAck(ctx, h.node, true, time.Until(h.deadline)); err != nil {
				return false, mtcerr.OK, "subfunction go-enabled request ack pending"
			}
			h.ackSent = true
		}
		ready, passed := h.deps.GoEnabledResult(h.node)
		if !ready {
			if time.Now().After(h.deadline) {
				h.machine.Fire(ctx, "goenabled_fail", nil)
				return h.fail(ctx, mtcerr.Timeout, "subfunction go-enabled timed out")
			}
			return false, mtcerr.OK, "awaiting subfunction go-enabled verdict"
		}
		if !passed {
			h.machine.Fire(ctx, "goenabled_fail", nil)
			return h.fail(ctx, mtcerr.BadState, "subfunction go-enabled test failed")
		}
		h.machine.Fire(ctx, "goenabled_pass", nil)
		h.node.OperStateSubf = registry.OperEnabled
		h.node.AvailStatusSubf = registry.AvailOnline
		h.node.ClearDegradeCause(registry.DegradeSubfunction)
		h.deps.EnqueueHTTP(h.node, workqueue.UpdateState(h.node.Hostname, "subfunction_avail", string(registry.AvailOnline)))
		return true, mtcerr.OK, "subfunction enable complete"

	default:
		return true, mtcerr.OK, ""
	}
}

func (h *SubfHandler) fail(ctx context.Context, status mtcerr.Kind, detail string) (bool, mtcerr.Kind, string) {
	h.node.OperStateSubf = registry.OperDisabled
	h.node.AvailStatusSubf = registry.AvailFailed
	h.node.SetDegradeCause(registry.DegradeSubfunction)
	h.deps.Alarms().Raise(ctx, alarm.EnableFailure, alarm.Entity{Hostname: h.node.Hostname, SubEntity: "subfunction"}, alarm.Major, detail, "check on-host agent logs for the subfunction and retry unlock")
	return true, status, detail
}
