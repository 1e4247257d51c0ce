// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/registry"
)

// Manager drives whichever stage handler a node's Stage field currently
// names, advancing it by at most one step per call to Tick, and clears the
// node back to StageNone with the terminal status once the handler
// completes (§4.7, §4.8's "run the current stage handler" dispatcher step).
// The continuous monitors (BMHandler, DegradeHandler) are not stage-gated
// and run every pass regardless of Stage; the dispatcher drives those
// directly rather than through this Manager.
type Manager struct {
	log      *slog.Logger
	reg      *registry.Registry
	deps     Deps
	cmdDeps  cmdfsm.Deps
	cfg      *config.Config
	drainTO  time.Duration

	active map[registry.Handle]Handler

	// onComplete, if set, is called with the stage kind and terminal
	// status just before a node's stage is cleared back to StageNone —
	// the seam internal/fleet's auto-recovery counter hangs off of.
	onComplete func(node *registry.Node, kind registry.StageKind, status mtcerr.Kind)
}

// NewManager builds a stage manager. cmdDeps is threaded through separately
// so the reset action handler can embed the compound reset progression
// shared with the command work FIFO path.
func NewManager(log *slog.Logger, reg *registry.Registry, deps Deps, cmdDeps cmdfsm.Deps, cfg *config.Config, drainTimeout time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:     log,
		reg:     reg,
		deps:    deps,
		cmdDeps: cmdDeps,
		cfg:     cfg,
		drainTO: drainTimeout,
		active:  make(map[registry.Handle]Handler),
	}
}

// Tick advances node's current stage handler by one step, building it on
// first encounter and tearing it down on completion. A StageNone node is a
// no-op.
func (m *Manager) Tick(ctx context.Context, node *registry.Node) error {
	if node.Stage == registry.StageNone {
		return nil
	}

	h, ok := m.active[node.Handle]
	if !ok {
		built, err := m.build(node)
		if err != nil {
			return fmt.Errorf("stage: build handler for %s stage %s: %w", node.Hostname, node.Stage, err)
		}
		if built == nil {
			return fmt.Errorf("stage: no handler registered for stage %s", node.Stage)
		}
		h = built
		m.active[node.Handle] = h
	}

	terminal, status, detail := h.Tick(ctx)
	if !terminal {
		return nil
	}

	m.log.Info("stage complete", "hostname", node.Hostname, "stage", node.Stage, "status", status.String(), "detail", detail)
	if m.onComplete != nil {
		m.onComplete(node, node.Stage, status)
	}
	delete(m.active, node.Handle)
	registry.SetStage(m.log, node, registry.StageNone)
	return nil
}

func (m *Manager) build(node *registry.Node) (Handler, error) {
	opts := Options{Config: m.cfg}

	switch node.Stage {
	case registry.StageEnable:
		return NewEnableHandler(node, m.deps, opts)
	case registry.StageDisable:
		return NewDisableHandler(node, m.deps, opts, m.cfg.Timeouts.WorkQueue)
	case registry.StageRecovery:
		return NewRecoveryHandler(node, m.deps, opts)
	case registry.StageReset:
		return NewResetActionHandler(node, m.cmdDeps, opts)
	case registry.StageReinstall:
		return NewReinstallActionHandler(node, m.deps, opts)
	case registry.StagePower:
		return powerHandler(node, m.deps, opts, node.AdminAction)
	case registry.StagePowercycle:
		return NewPowerActionHandler(node, m.deps, opts, bmcworker.PowerCycle, registry.StagePowercycle)
	case registry.StageOosTest:
		return NewOosTestHandler(node, m.deps, opts)
	case registry.StageInsvTest:
		return NewInsvTestHandler(node, m.deps, opts)
	case registry.StageConfig:
		return NewConfigHandler(node, m.deps, opts)
	case registry.StageAdd:
		return NewAddHandler(node, m.deps, opts)
	case registry.StageDel:
		return NewDelHandler(node, m.reg, m.drainTO)
	case registry.StageOffline:
		return NewOfflineHandler(node, m.deps, opts)
	case registry.StageOnline:
		return NewOnlineHandler(node, m.deps, opts)
	case registry.StageSwact:
		return NewSwactHandler(node, m.deps, opts)
	case registry.StageSensor:
		return NewSensorHandler(node, m.deps, opts)
	case registry.StageSubf:
		return NewSubfHandler(node, m.deps, opts)
	default:
		return nil, nil
	}
}

func powerHandler(node *registry.Node, deps Deps, opts Options, action registry.AdminAction) (Handler, error) {
	cmd := bmcworker.PowerOn
	if action == registry.ActionPowerOff {
		cmd = bmcworker.PowerOff
	}
	return NewPowerActionHandler(node, deps, opts, cmd, registry.StagePower)
}

// Active reports whether a stage handler is currently in flight for h.
func (m *Manager) Active(h registry.Handle) bool {
	_, ok := m.active[h]
	return ok
}

// SetOnComplete registers a callback invoked with every stage's terminal
// status, just before the node is cleared back to StageNone.
func (m *Manager) SetOnComplete(fn func(node *registry.Node, kind registry.StageKind, status mtcerr.Kind)) {
	m.onComplete = fn
}
