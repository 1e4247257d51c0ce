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
)

const (
	configStageApply  = "apply"
	configStageVerify = "verify"
	configPass        = "pass"
	configFail        = "fail"
)

// ConfigHandler asks the on-host agent for an mtcAlive on every provisioned
// network and waits for the host to come back alive as confirmation,
// raising/clearing the config degrade cause on verdict (§4.7's config stage,
// §3's DegradeConfig cause). It sends no unlock notification or config
// payload of its own.
type ConfigHandler struct {
	machine  *fsm.FSM
	node     *registry.Node
	deps     Deps
	deadline time.Time
}

// NewConfigHandler builds a config handler for node.
func NewConfigHandler(node *registry.Node, deps Deps, opts Options) (*ConfigHandler, error) {
	h := &ConfigHandler{node: node, deps: deps, deadline: time.Now().Add(opts.Config.Timeouts.Sysinv)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("config:%d", node.Handle)),
		fsm.WithStates(
			fsm.StateDefinition{Name: configStageApply},
			fsm.StateDefinition{Name: configStageVerify},
			fsm.StateDefinition{Name: configPass},
			fsm.StateDefinition{Name: configFail},
		),
		fsm.WithTransition(configStageApply, configStageVerify, "sent"),
		fsm.WithTransition(configStageVerify, configPass, "alive"),
		fsm.WithTransition(configStageVerify, configFail, "timed_out"),
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

func (h *ConfigHandler) Kind() registry.StageKind { return registry.StageConfig }

func (h *ConfigHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	switch h.machine.CurrentState() {
	case configStageApply:
		h.deps.RequestMtcAliveAll(h.node)
		h.machine.Fire(ctx, "sent", nil)
		return false, mtcerr.OK, "config refresh requested"

	case configStageVerify:
		if h.node.MtcAliveGate {
			h.machine.Fire(ctx, "alive", nil)
			h.node.ClearDegradeCause(registry.DegradeConfig)
			h.deps.Alarms().ClearAlarm(ctx, alarm.ConfigFailure, alarm.Entity{Hostname: h.node.Hostname})
			return true, mtcerr.OK, "config applied"
		}
		if time.Now().After(h.deadline) {
			h.machine.Fire(ctx, "timed_out", nil)
			h.node.SetDegradeCause(registry.DegradeConfig)
			h.deps.Alarms().Raise(ctx, alarm.ConfigFailure, alarm.Entity{Hostname: h.node.Hostname}, alarm.Major,
				"host did not come back alive after config refresh", "check on-host agent config and logs")
			return true, mtcerr.Timeout, "config apply timed out"
		}
		return false, mtcerr.OK, "awaiting config apply confirmation"

	default:
		return true, mtcerr.OK, ""
	}
}
