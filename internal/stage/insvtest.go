// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"

	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// InsvTestHandler runs the lightweight in-service audit against an enabled
// node on its periodic schedule: it checks the health counter the on-host
// agent has been reporting via heartbeat and raises/clears the in-service
// test degrade cause, without the full go-enabled round trip used by the
// out-of-service audit (§4.9's periodic in-service audit).
type InsvTestHandler struct {
	node *registry.Node
	deps Deps
	done bool
}

// NewInsvTestHandler builds an in-service test handler for node.
func NewInsvTestHandler(node *registry.Node, deps Deps, opts Options) (*InsvTestHandler, error) {
	return &InsvTestHandler{node: node, deps: deps}, nil
}

func (h *InsvTestHandler) Kind() registry.StageKind { return registry.StageInsvTest }

func (h *InsvTestHandler) Tick(ctx context.Context) (bool, mtcerr.Kind, string) {
	if h.done {
		return true, mtcerr.OK, ""
	}
	h.done = true

	if h.node.Health != 0 {
		h.node.SetDegradeCause(registry.DegradeInServiceTest)
		h.deps.Alarms().Raise(ctx, alarm.Sensor, alarm.Entity{Hostname: h.node.Hostname}, alarm.Minor,
			"in-service health check reported a non-zero health code", "check host logs for the failing monitor")
		return true, mtcerr.BadState, "in-service test reported a health fault"
	}
	h.node.ClearDegradeCause(registry.DegradeInServiceTest)
	h.deps.Alarms().ClearAlarm(ctx, alarm.Sensor, alarm.Entity{Hostname: h.node.Hostname})
	return true, mtcerr.OK, "in-service test passed"
}
