// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/alarm"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/registry"
)

const (
	bmPingIdle   = "idle"
	bmPingQuery  = "query"
	bmPingBackoff = "backoff"
)

// bmAccessRetryCap is the number of consecutive failed BMC queries at which
// the board is declared inaccessible (§4.9's bm_handler).
const bmAccessRetryCap = 3

// bmPingPeriod is the spacing between BMC accessibility probes once the
// board is known accessible.
const bmPingPeriod = 60 * time.Second

// BMHandler is the BMC ping-monitor sub-FSM: it periodically queries board
// management accessibility independent of whatever admin stage the node is
// currently running, and raises/clears the inaccessibility alarm on
// transition (§4.9). It runs every dispatcher pass regardless of the node's
// current Stage, unlike the stage-union Handler set.
type BMHandler struct {
	node     *registry.Node
	deps     Deps
	nextPoll time.Time
}

// NewBMHandler builds a BMC ping monitor for node.
func NewBMHandler(node *registry.Node, deps Deps) *BMHandler {
	if node.BMC.Ping.Stage == "" {
		node.BMC.Ping.Stage = bmPingIdle
	}
	return &BMHandler{node: node, deps: deps}
}

// Tick runs one step of the ping monitor. It never reports a terminal
// status; the monitor simply keeps running for the node's lifetime.
func (h *BMHandler) Tick(ctx context.Context) {
	if h.node.BMC.IP == "" {
		return
	}
	ping := &h.node.BMC.Ping

	switch ping.Stage {
	case bmPingIdle:
		if time.Now().Before(h.nextPoll) {
			return
		}
		if err := h.deps.LaunchBMCCommand(ctx, h.node, bmcworker.BMCQuery, 10*time.Second); err != nil {
			h.onFailure(ctx)
			return
		}
		ping.Stage = bmPingQuery

	case bmPingQuery:
		done, result, err := h.deps.PollBMCCommand(h.node)
		if err != nil {
			h.onFailure(ctx)
			return
		}
		if !done {
			return
		}
		if !result.Status.IsSuccess() {
			h.onFailure(ctx)
			return
		}
		h.onSuccess(ctx)

	case bmPingBackoff:
		if time.Now().Before(h.nextPoll) {
			return
		}
		ping.Stage = bmPingIdle

	default:
		ping.Stage = bmPingIdle
	}
}

func (h *BMHandler) onSuccess(ctx context.Context) {
	wasInaccessible := !h.node.BMC.Accessible
	h.node.BMC.Accessible = true
	h.node.BMC.Ping.Retries = 0
	h.node.BMC.Ping.Stage = bmPingIdle
	h.nextPoll = time.Now().Add(bmPingPeriod)
	if wasInaccessible {
		h.deps.Alarms().ClearAlarm(ctx, alarm.BoardManagementInaccessible, alarm.Entity{Hostname: h.node.Hostname})
	}
}

func (h *BMHandler) onFailure(ctx context.Context) {
	h.node.BMC.Ping.Retries++
	h.node.BMC.Ping.Stage = bmPingBackoff
	h.nextPoll = time.Now().Add(bmPingPeriod)
	if h.node.BMC.Ping.Retries >= bmAccessRetryCap && h.node.BMC.Accessible {
		h.node.BMC.Accessible = false
		h.deps.Alarms().Raise(ctx, alarm.BoardManagementInaccessible, alarm.Entity{Hostname: h.node.Hostname}, alarm.Warning,
			"board management controller not responding", "check BMC network connectivity and credentials")
	}
}
