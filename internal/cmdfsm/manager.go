// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
	"github.com/mtce-project/mtce-agent/pkg/wireproto"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// subMachine is the common surface every compound-command sub-FSM in this
// package implements.
type subMachine interface {
	Tick(ctx context.Context) (terminal bool, status mtcerr.Kind, statusString string)
	Stage() string
}

// active pairs an in-flight sub-FSM with the work FIFO entry ID it is
// driving, so Manager can complete the right entry once the machine
// terminates.
type active struct {
	entryID uint64
	machine subMachine
}

// Manager drives the compound-command sub-FSM for every node that has one
// in flight, one tick per dispatcher pass per node (§4.6: "pops the head of
// the work FIFO, routes by command kind, and on terminal stage moves the
// entry to the done FIFO with status").
type Manager struct {
	log  *slog.Logger
	reg  *registry.Registry
	deps Deps
	cfg  *config.Config

	drainTimeout time.Duration

	inFlight map[registry.Handle]*active
}

// NewManager builds a command FSM manager. drainTimeout bounds how long a
// hostname-modify command waits for the HTTP work FIFO to empty.
func NewManager(log *slog.Logger, reg *registry.Registry, deps Deps, cfg *config.Config, drainTimeout time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:          log,
		reg:          reg,
		deps:         deps,
		cfg:          cfg,
		drainTimeout: drainTimeout,
		inFlight:     make(map[registry.Handle]*active),
	}
}

// Tick drives node's command FIFO by exactly one step: if no sub-FSM is
// active for node, it pops the FIFO head and routes it; otherwise it ticks
// the already-active sub-FSM and, on termination, completes the entry.
func (m *Manager) Tick(ctx context.Context, node *registry.Node) error {
	a, ok := m.inFlight[node.Handle]
	if !ok {
		entry, ok := node.CmdWorkQueue.Front()
		if !ok {
			return nil
		}
		sub, err := m.route(node, entry)
		if err != nil {
			node.CmdWorkQueue.Complete(true)
			return err
		}
		a = &active{entryID: entry.ID, machine: sub}
		m.inFlight[node.Handle] = a
	}

	terminal, status, statusString := a.machine.Tick(ctx)
	if !terminal {
		return nil
	}

	delete(m.inFlight, node.Handle)
	completed := node.CmdWorkQueue.Complete(status != mtcerr.OK)
	if cmdEntry, ok := completed.Payload.(*Entry); ok {
		cmdEntry.Status = status
		cmdEntry.StatusString = statusString
	}
	m.log.Info("cmdfsm: command complete", "node", node.Hostname, "status", status, "detail", statusString)
	return nil
}

func (m *Manager) route(node *registry.Node, entry registry.QueueEntry) (subMachine, error) {
	cmdEntry, ok := entry.Payload.(*Entry)
	if !ok {
		return nil, fmt.Errorf("cmdfsm: work fifo entry %d has no command payload", entry.ID)
	}

	name := fmt.Sprintf("cmdfsm:%d:%d", node.Handle, entry.ID)
	switch cmdEntry.Kind {
	case ResetProgression:
		return NewResetProgression(name, node, m.deps, m.cfg)
	case HostServicesStart:
		return NewHostServices(name, node, m.deps, m.cfg, startServicesCmd(node.Personality), false, false)
	case HostServicesStop:
		legacyStorage := node.Personality == registry.Storage
		return NewHostServices(name, node, m.deps, m.cfg, stopServicesCmd(node.Personality), true, legacyStorage)
	case HostnameModify:
		return NewHostnameModify(name, node, m.reg, cmdEntry.NewHostname, m.drainTimeout)
	default:
		return nil, fmt.Errorf("cmdfsm: unknown command kind %v", cmdEntry.Kind)
	}
}

func startServicesCmd(p registry.Personality) wireproto.Cmd {
	switch p {
	case registry.Controller:
		return wireproto.CmdStartServicesController
	case registry.Storage:
		return wireproto.CmdStartServicesStorage
	default:
		return wireproto.CmdStartServicesWorker
	}
}

func stopServicesCmd(p registry.Personality) wireproto.Cmd {
	switch p {
	case registry.Controller:
		return wireproto.CmdStopServicesController
	case registry.Storage:
		return wireproto.CmdStopServicesStorage
	default:
		return wireproto.CmdStopServicesWorker
	}
}

// ReportHostServicesResult feeds a RESULT-half worker message into node's
// active host-services sub-FSM, if one is running. It is a no-op otherwise.
func (m *Manager) ReportHostServicesResult(node *registry.Node, result HostServicesResult) {
	a, ok := m.inFlight[node.Handle]
	if !ok {
		return
	}
	if hs, ok := a.machine.(*HostServices); ok {
		hs.ReportResult(result)
	}
}

// Active reports whether node currently has an in-flight compound command.
func (m *Manager) Active(h registry.Handle) bool {
	_, ok := m.inFlight[h]
	return ok
}
