// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/registry"
)

const (
	sensorStageQuery  = "query"
	sensorStageVerify = "verify"
	sensorPass        = "pass"
	sensorFail        = "fail"
)

// SensorHandler re-reads a node's hardware sensor set via the BMC worker
// pool and raises/clears the hardware-monitor degrade cause on the verdict
// (§4.7's sensor stage, §3's DegradeHardwareMonitor cause).
type SensorHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	deadline time.Time
}

// NewSensorHandler builds a sensor handler for node.
func NewSensorHandler(node *registry.Node, deps Deps, opts Options) (*SensorHandler, error) {
	h := &SensorHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.Sysinv)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("sensor:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: sensorStageQuery},
			fsm.StateDefinition{Name: sensorStageVerify},
			fsm.StateDefinition{Name: sensorPass},
			fsm.StateDefinition{Name: sensorFail},
		),
		fsm.WithTransition(sensorStageQuery, sensorStageVerify, "launched"),
		fsm.WithTransition(sensorStageVerify, sensorPass, "succeeded"),
		fsm.WithTransition(sensorStageVerify, sensorFail, "failed"),
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

func (h *SensorHandler) Kind() registry.StageKind { return registry.StageSensor }

func (h *SensorHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case sensorStageQuery:
		if err := h.deps.LaunchBMCCommand(ctx, h.node, bmcworker.BMCQuery, time.Until(h.deadline)); err != nil {
			h.machine.Fire(ctx, "failed", nil)
			return true, mtcerr.NotAccessible, err.Error()
		}
		h.machine.Fire(ctx, "launched", nil)
		return false, mtcerr.OK, "sensor query launched"

	case sensorStageVerify:
		done, result, err := h.deps.PollBMCCommand(h.node)
		if err != nil {
			h.machine.Fire(ctx, "failed", nil)
			return true, mtcerr.NotAccessible, err.Error()
		}
		if !done {
			if time.Now().After(h.deadline) {
				h.machine.Fire(ctx, "failed", nil)
				return true, mtcerr.Timeout, "sensor query timed out"
			}
			return false, mtcerr.OK, "awaiting sensor query result"
		}
		if !result.Status.IsSuccess() {
			h.machine.Fire(ctx, "failed", nil)
			h.node.SetDegradeCause(registry.DegradeHardwareMonitor)
			h.deps.Alarms().Raise(ctx, alarm.SensorGroup, alarm.Entity{Hostname: h.node.Hostname}, alarm.Minor,
				"sensor group query failed", "check BMC sensor configuration")
			return true, result.Status, result.StatusString
		}
		h.machine.Fire(ctx, "succeeded", nil)
		h.node.ClearDegradeCause(registry.DegradeHardwareMonitor)
		h.deps.Alarms().ClearAlarm(ctx, alarm.SensorGroup, alarm.Entity{Hostname: h.node.Hostname})
		return true, mtcerr.OK, "sensor query complete"

	default:
		return true, mtcerr.OK, ""
	}
}
