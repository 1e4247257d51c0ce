// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/ipc"
)

// hostSummary is the inventory slice shape pushed to a peer daemon on
// readiness, carrying just enough for the daemon to build its own
// per-host monitoring table.
type hostSummary struct {
	Hostname     string `json:"hostname"`
	UUID         string `json:"uuid"`
	Personality  string `json:"personality"`
	ManagementIP string `json:"management_ip"`
	AdminState   string `json:"admin_state"`
	OperState    string `json:"oper_state"`
	AvailStatus  string `json:"avail_status"`
}

// readyFilter narrows the pushed inventory slice to what a given daemon
// needs (§4.9: "full host list to hwmond; add+start to hbsAgent on both
// controllers; full host list to guest-agent for worker-personality
// hosts").
type readyFilter func(node *registry.Node) bool

func allHosts(*registry.Node) bool { return true }

func workerHosts(node *registry.Node) bool { return node.Personality == registry.Worker }

// ReadinessCoordinator receives ready events from peer daemons (pmond,
// hbsClient, mtcClient, hwmond, guest-agent) and responds with the
// inventory slice each one needs.
type ReadinessCoordinator struct {
	log  *slog.Logger
	reg  *registry.Registry
	subs []*nats.Subscription
}

// NewReadinessCoordinator builds an idle coordinator; call Start to
// subscribe.
func NewReadinessCoordinator(log *slog.Logger, reg *registry.Registry) *ReadinessCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &ReadinessCoordinator{log: log, reg: reg}
}

// Start subscribes to every peer-daemon readiness subject on nc, replying
// to each ready message with that daemon's inventory slice.
func (r *ReadinessCoordinator) Start(nc *nats.Conn) error {
	subjects := map[string]readyFilter{
		ipc.SubjectReadyPmond:     allHosts,
		ipc.SubjectReadyHbsClient: allHosts,
		ipc.SubjectReadyMtcClient: allHosts,
		ipc.SubjectReadyHwmond:    allHosts,
		ipc.SubjectReadyGuest:     workerHosts,
	}

	for subject, filter := range subjects {
		filter := filter
		subject := subject
		sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			r.respond(msg, filter)
		})
		if err != nil {
			return err
		}
		r.subs = append(r.subs, sub)
	}
	return nil
}

// Stop unsubscribes from every readiness subject.
func (r *ReadinessCoordinator) Stop() {
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *ReadinessCoordinator) respond(msg *nats.Msg, filter readyFilter) {
	if msg.Reply == "" {
		return
	}

	var slice []hostSummary
	for _, node := range r.reg.List() {
		if !filter(node) {
			continue
		}
		slice = append(slice, hostSummary{
			Hostname:     node.Hostname,
			UUID:         node.UUID,
			Personality:  string(node.Personality),
			ManagementIP: node.ManagementIP,
			AdminState:   string(node.AdminState),
			OperState:    string(node.OperState),
			AvailStatus:  string(node.AvailStatus),
		})
	}

	payload, err := json.Marshal(slice)
	if err != nil {
		r.log.Error("fleet: marshaling readiness push", "subject", msg.Subject, "error", err)
		return
	}
	if err := msg.Respond(payload); err != nil {
		r.log.Error("fleet: responding to readiness ping", "subject", msg.Subject, "error", err)
	}
}
