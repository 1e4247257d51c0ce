// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/netagent"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/stage"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

// handlerProxy breaks the construction-order cycle between netagent.Agent
// (which wants an InboundHandler at New time) and hostEventRouter (which
// needs the already-built *netagent.Agent via stage/cmdfsm deps). It is
// built empty, handed to netagent.New, and back-filled with SetTarget once
// the real router exists.
type handlerProxy struct {
	mu     sync.Mutex
	target netagent.InboundHandler
}

var _ netagent.InboundHandler = (*handlerProxy)(nil)

func (p *handlerProxy) SetTarget(h netagent.InboundHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = h
}

func (p *handlerProxy) get() netagent.InboundHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *handlerProxy) HandleMtcAlive(network netagent.Network, remoteAddr string, payload wireproto.MtcAlivePayload) {
	if t := p.get(); t != nil {
		t.HandleMtcAlive(network, remoteAddr, payload)
	}
}

func (p *handlerProxy) HandleWorkerMessage(network netagent.Network, remoteAddr string, frame wireproto.Frame) {
	if t := p.get(); t != nil {
		t.HandleWorkerMessage(network, remoteAddr, frame)
	}
}

func (p *handlerProxy) HandleUnmatchedResponse(network netagent.Network, remoteAddr string, frame wireproto.Frame) {
	if t := p.get(); t != nil {
		t.HandleUnmatchedResponse(network, remoteAddr, frame)
	}
}

// inboundKind identifies which of the three pieces of wire traffic this
// router cares about, queued for the dispatcher goroutine.
type inboundKind int

const (
	inboundMtcAlive inboundKind = iota
	inboundGoEnabled
	inboundHostServicesResult
)

type inboundEvent struct {
	kind       inboundKind
	network    netagent.Network
	remoteAddr string

	mtcAlive wireproto.MtcAlivePayload

	goEnabledPassed bool
	goEnabledSubf   bool

	hostServices wireproto.HostServicesResultPayload
}

// hostEventRouter is the real netagent.InboundHandler. Every callback runs
// on a UDP read-loop goroutine, so it never touches *registry.Node
// directly — it queues an inboundEvent and Advance (called once per
// dispatcher tick, on the single dispatcher goroutine) applies it.
type hostEventRouter struct {
	log     *slog.Logger
	reg     *registry.Registry
	netDeps *stage.NetworkDeps
	cmdMgr  *cmdfsm.Manager

	inbox chan inboundEvent
}

var _ netagent.InboundHandler = (*hostEventRouter)(nil)

func newHostEventRouter(log *slog.Logger, reg *registry.Registry, netDeps *stage.NetworkDeps, cmdMgr *cmdfsm.Manager) *hostEventRouter {
	if log == nil {
		log = slog.Default()
	}
	return &hostEventRouter{
		log:     log,
		reg:     reg,
		netDeps: netDeps,
		cmdMgr:  cmdMgr,
		inbox:   make(chan inboundEvent, 512),
	}
}

func (r *hostEventRouter) queue(ev inboundEvent) {
	select {
	case r.inbox <- ev:
	default:
		r.log.Warn("mtced: inbound event queue full, dropping", "kind", ev.kind, "remote_addr", ev.remoteAddr)
	}
}

func (r *hostEventRouter) HandleMtcAlive(network netagent.Network, remoteAddr string, payload wireproto.MtcAlivePayload) {
	r.queue(inboundEvent{kind: inboundMtcAlive, network: network, remoteAddr: remoteAddr, mtcAlive: payload})
}

func (r *hostEventRouter) HandleWorkerMessage(network netagent.Network, remoteAddr string, frame wireproto.Frame) {
	switch frame.Cmd {
	case wireproto.CmdMainGoEnabledMsg:
		r.queue(inboundEvent{kind: inboundGoEnabled, network: network, remoteAddr: remoteAddr, goEnabledPassed: true})
	case wireproto.CmdMainGoEnabledFailed:
		r.queue(inboundEvent{kind: inboundGoEnabled, network: network, remoteAddr: remoteAddr, goEnabledPassed: false})
	case wireproto.CmdSubfGoEnabledMsg:
		r.queue(inboundEvent{kind: inboundGoEnabled, network: network, remoteAddr: remoteAddr, goEnabledSubf: true, goEnabledPassed: true})
	case wireproto.CmdSubfGoEnabledFailed:
		r.queue(inboundEvent{kind: inboundGoEnabled, network: network, remoteAddr: remoteAddr, goEnabledSubf: true, goEnabledPassed: false})
	case wireproto.CmdHostServicesResult:
		payload, err := wireproto.DecodeHostServicesResult(frame)
		if err != nil {
			r.log.Warn("mtced: malformed host-services result, dropping", "remote_addr", remoteAddr, "error", err)
			return
		}
		r.queue(inboundEvent{kind: inboundHostServicesResult, network: network, remoteAddr: remoteAddr, hostServices: payload})
	default:
		r.log.Debug("mtced: unhandled worker message, dropping", "cmd", frame.Cmd, "remote_addr", remoteAddr)
	}
}

func (r *hostEventRouter) HandleUnmatchedResponse(network netagent.Network, remoteAddr string, frame wireproto.Frame) {
	r.log.Debug("mtced: unmatched command response, dropping", "network", network, "remote_addr", remoteAddr, "cmd", frame.Cmd)
}

// Advance drains every inbound event queued since the last call. Must be
// called once per dispatcher tick, from the dispatcher's own goroutine.
func (r *hostEventRouter) Advance(ctx context.Context) error {
	for {
		select {
		case ev := <-r.inbox:
			r.apply(ev)
		default:
			return nil
		}
	}
}

func (r *hostEventRouter) apply(ev inboundEvent) {
	switch ev.kind {
	case inboundMtcAlive:
		r.applyMtcAlive(ev)
	case inboundGoEnabled:
		r.applyGoEnabled(ev)
	case inboundHostServicesResult:
		r.applyHostServicesResult(ev)
	}
}

func (r *hostEventRouter) applyMtcAlive(ev inboundEvent) {
	node, err := r.reg.GetByHostname(ev.mtcAlive.Hostname)
	if err != nil {
		r.log.Debug("mtced: mtcAlive for unknown host, dropping", "hostname", ev.mtcAlive.Hostname)
		return
	}

	switch ev.network {
	case netagent.Management:
		node.MtcAliveMgmt = true
	case netagent.ClusterHost:
		node.MtcAliveCluster = true
	case netagent.Pxeboot:
		node.MtcAlivePxeboot = true
	}
	node.Uptime = ev.mtcAlive.Uptime
	node.Health = ev.mtcAlive.Health
	node.MtceFlags = ev.mtcAlive.Flags
}

func (r *hostEventRouter) applyGoEnabled(ev inboundEvent) {
	node := r.lookupByRemoteAddr(ev.remoteAddr)
	if node == nil {
		return
	}
	r.netDeps.ReportGoEnabled(node.Handle, ev.goEnabledPassed)
}

func (r *hostEventRouter) applyHostServicesResult(ev inboundEvent) {
	node, err := r.reg.GetByHostname(ev.hostServices.Hostname)
	if err != nil {
		r.log.Debug("mtced: host-services result for unknown host, dropping", "hostname", ev.hostServices.Hostname)
		return
	}
	r.cmdMgr.ReportHostServicesResult(node, cmdfsm.HostServicesResult{
		Ready:     true,
		Succeeded: ev.hostServices.Status == 0,
		Reason:    ev.hostServices.Detail,
	})
}

// lookupByRemoteAddr resolves a node from the UDP source address of a
// worker message, which (unlike mtcAlive) carries no hostname field of its
// own.
func (r *hostEventRouter) lookupByRemoteAddr(remoteAddr string) *registry.Node {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	node, err := r.reg.GetByManagementIP(host)
	if err != nil {
		r.log.Debug("mtced: worker message from unknown host, dropping", "remote_addr", remoteAddr)
		return nil
	}
	return node
}
