// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/ipc"
)

// heartbeatEventKind identifies which of the six heartbeat-service events a
// wire message carries.
type heartbeatEventKind string

const (
	eventLoss       heartbeatEventKind = "loss"
	eventMinorSet   heartbeatEventKind = "minor-set"
	eventMinorClear heartbeatEventKind = "minor-clear"
	eventDegradeSet heartbeatEventKind = "degrade-set"
	eventDegradeClr heartbeatEventKind = "degrade-clear"
	eventReady      heartbeatEventKind = "ready"
)

// heartbeatEvent is the wire shape the sibling heartbeat service publishes
// on ipc.SubjectHeartbeat*.
type heartbeatEvent struct {
	Hostname string                  `json:"hostname"`
	Network  registry.HeartbeatNetwork `json:"network"`
}

// HeartbeatConsumer receives loss/minor-set/minor-clear/degrade-set/
// degrade-clear/ready events from the heartbeat service and maps them to
// manage_heartbeat_failure / manage_heartbeat_degrade / manage_heartbeat_minor
// actions gated by the configured hbs_failure_action (§4.9).
type HeartbeatConsumer struct {
	log     *slog.Logger
	reg     *registry.Registry
	surface *alarm.Surface
	mnfa    *MNFA
	action  string // fail | degrade | alarm-only | none

	subs []*nats.Subscription
	inbox chan taggedEvent
}

type taggedEvent struct {
	kind  heartbeatEventKind
	event heartbeatEvent
}

// NewHeartbeatConsumer builds an idle consumer; call Start to subscribe.
func NewHeartbeatConsumer(log *slog.Logger, reg *registry.Registry, surface *alarm.Surface, mnfa *MNFA, thresholds config.HeartbeatThresholds) *HeartbeatConsumer {
	if log == nil {
		log = slog.Default()
	}
	return &HeartbeatConsumer{
		log:     log,
		reg:     reg,
		surface: surface,
		mnfa:    mnfa,
		action:  thresholds.Action,
		inbox:   make(chan taggedEvent, 256),
	}
}

// Start subscribes to every heartbeat-service subject on nc. Events are
// queued and applied on the next Advance call, keeping all registry
// mutation on the single-threaded dispatcher goroutine.
func (h *HeartbeatConsumer) Start(nc *nats.Conn) error {
	subjects := map[string]heartbeatEventKind{
		ipc.SubjectHeartbeatLoss:       eventLoss,
		ipc.SubjectHeartbeatMinorSet:   eventMinorSet,
		ipc.SubjectHeartbeatMinorClear: eventMinorClear,
		ipc.SubjectHeartbeatDegradeSet: eventDegradeSet,
		ipc.SubjectHeartbeatDegradeClr: eventDegradeClr,
		ipc.SubjectHeartbeatReady:      eventReady,
	}

	for subject, kind := range subjects {
		kind := kind
		sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			var ev heartbeatEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				h.log.Warn("fleet: malformed heartbeat event, dropping", "subject", msg.Subject, "error", err)
				return
			}
			select {
			case h.inbox <- taggedEvent{kind: kind, event: ev}:
			default:
				h.log.Warn("fleet: heartbeat event inbox full, dropping", "subject", msg.Subject)
			}
		})
		if err != nil {
			return err
		}
		h.subs = append(h.subs, sub)
	}
	return nil
}

// Stop unsubscribes from every heartbeat-service subject.
func (h *HeartbeatConsumer) Stop() {
	for _, sub := range h.subs {
		_ = sub.Unsubscribe()
	}
	h.subs = nil
}

// Advance drains every heartbeat event queued since the last call and
// applies it against the registry.
func (h *HeartbeatConsumer) Advance(ctx context.Context) error {
	for {
		select {
		case te := <-h.inbox:
			h.apply(ctx, te)
		default:
			return nil
		}
	}
}

func (h *HeartbeatConsumer) apply(ctx context.Context, te taggedEvent) {
	node, err := h.reg.GetByHostname(te.event.Hostname)
	if err != nil {
		h.log.Warn("fleet: heartbeat event for unknown host, dropping", "hostname", te.event.Hostname, "kind", te.kind)
		return
	}

	hb, ok := node.Heartbeats[te.event.Network]
	if !ok {
		return
	}

	switch te.kind {
	case eventMinorSet:
		hb.Minor = true
	case eventMinorClear:
		hb.Minor = false
	case eventDegradeSet:
		hb.Degrade = true
		node.SetDegradeCause(degradeCauseFor(te.event.Network))
	case eventDegradeClr:
		hb.Degrade = false
		node.ClearDegradeCause(degradeCauseFor(te.event.Network))
	case eventLoss:
		h.applyLoss(ctx, node, te.event.Network, hb)
	case eventReady:
		// Heartbeat service readiness is handled by ReadinessCoordinator;
		// this consumer only needs to know interfaces are live again.
	}
}

func (h *HeartbeatConsumer) applyLoss(ctx context.Context, node *registry.Node, network registry.HeartbeatNetwork, hb *registry.Heartbeat) {
	if h.mnfa != nil && h.mnfa.Suppressing(network) {
		// §4.9: individual heartbeat failures are suppressed fleet-wide
		// while multi-node-failure-avoidance is active.
		return
	}

	switch h.action {
	case "none":
		return
	case "alarm-only":
		hb.Failure = true
		h.raiseCombined(ctx, node)
	case "degrade":
		hb.Failure = true
		node.SetDegradeCause(degradeCauseFor(network))
		h.raiseCombined(ctx, node)
	default: // "fail"
		hb.Failure = true
		node.SetDegradeCause(degradeCauseFor(network))
		h.raiseCombined(ctx, node)
		if node.Stage == registry.StageNone {
			registry.SetStage(h.log, node, registry.StageRecovery)
		}
	}
}

func (h *HeartbeatConsumer) raiseCombined(ctx context.Context, node *registry.Node) {
	if h.surface == nil {
		return
	}
	id := alarm.CombinedWorkerFailure
	if node.Personality == registry.Controller {
		id = alarm.CombinedControllerFailure
	}
	_ = h.surface.Raise(ctx, id, alarm.Entity{Hostname: node.Hostname}, alarm.Major,
		"Heartbeat loss detected", "Check network connectivity and host health")
}

func degradeCauseFor(network registry.HeartbeatNetwork) registry.DegradeCause {
	if network == registry.HeartbeatCluster {
		return registry.DegradeHeartbeatCluster
	}
	return registry.DegradeHeartbeatMgmt
}
