// SPDX-License-Identifier: BSD-3-Clause

// Package dispatcher drives the top-level per-node tick loop: the command
// FSM, the HTTP work FIFO, the stage handler matching the node's admin
// action, the continuous health monitors, and the coarse-cadence uptime
// audit (§4.8 of the governing design).
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/stage"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

// Fleet is the fleet-level hook (MNFA, DOR, heartbeat consumer,
// service-readiness coordinator, auto-recovery) advanced once per pass,
// after every node has been visited. A nil Fleet is a no-op.
type Fleet interface {
	Advance(ctx context.Context) error
}

// Dispatcher owns the per-node handler set and ticks every node in
// registry order once per Tick call.
type Dispatcher struct {
	log *slog.Logger
	reg *registry.Registry
	cfg *config.Config

	cmdMgr   *cmdfsm.Manager
	stageMgr *stage.Manager
	http     *workqueue.Dispatcher
	deps     stage.Deps
	fleet    Fleet

	selfHandle registry.Handle
	hasSelf    bool

	bmHandlers      map[registry.Handle]*stage.BMHandler
	degradeHandlers map[registry.Handle]*stage.DegradeHandler

	uptimeSchedule cron.Schedule
	nextUptimeRun  time.Time
}

// New builds a Dispatcher. fleet may be nil if fleet-level controllers are
// not wired yet (e.g. single-node test harnesses).
func New(log *slog.Logger, reg *registry.Registry, cfg *config.Config, cmdMgr *cmdfsm.Manager, stageMgr *stage.Manager, http *workqueue.Dispatcher, deps stage.Deps, fleet Fleet) (*Dispatcher, error) {
	if log == nil {
		log = slog.Default()
	}

	sched, err := cron.ParseStandard(fmt.Sprintf("@every %s", cfg.AuditIntervals.Uptime))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: parse uptime schedule: %w", err)
	}

	return &Dispatcher{
		log:             log,
		reg:             reg,
		cfg:             cfg,
		cmdMgr:          cmdMgr,
		stageMgr:        stageMgr,
		http:            http,
		deps:            deps,
		fleet:           fleet,
		bmHandlers:      make(map[registry.Handle]*stage.BMHandler),
		degradeHandlers: make(map[registry.Handle]*stage.DegradeHandler),
		uptimeSchedule:  sched,
		nextUptimeRun:   time.Now(),
	}, nil
}

// SetSelf marks h as the self-node, skipped by Tick per §4.8's "ignoring
// the self-node where appropriate".
func (d *Dispatcher) SetSelf(h registry.Handle) {
	d.selfHandle = h
	d.hasSelf = true
}

// Tick runs one dispatcher pass: every node in insertion order, then the
// fleet-level hook.
func (d *Dispatcher) Tick(ctx context.Context) error {
	runUptime := !d.nextUptimeRun.After(time.Now())
	if runUptime {
		d.nextUptimeRun = d.uptimeSchedule.Next(time.Now())
	}

	for _, node := range d.reg.List() {
		if d.hasSelf && node.Handle == d.selfHandle {
			continue
		}
		if err := d.tickNode(ctx, node, runUptime); err != nil {
			d.log.Error("dispatcher: node tick failed", "hostname", node.Hostname, "error", err)
		}
	}

	if d.fleet != nil {
		if err := d.fleet.Advance(ctx); err != nil {
			return fmt.Errorf("dispatcher: fleet advance: %w", err)
		}
	}
	return nil
}

// tickNode runs the five per-node steps of §4.8 in order, each advancing
// its own state by at most one step.
func (d *Dispatcher) tickNode(ctx context.Context, node *registry.Node, runUptime bool) error {
	if err := d.cmdMgr.Tick(ctx, node); err != nil {
		return fmt.Errorf("command fsm: %w", err)
	}

	d.http.Advance(ctx, node)
	d.http.Poll(node)

	if err := d.stageMgr.Tick(ctx, node); err != nil {
		return fmt.Errorf("stage handler: %w", err)
	}

	d.tickMonitors(ctx, node)

	if runUptime {
		d.tickUptime(node)
	}

	return nil
}

// tickMonitors runs the two continuous monitors that are not gated by
// node.Stage: BMC ping/accessibility and degrade-mask edge reporting. Each
// is built lazily on first encounter and lives for the node's lifetime.
func (d *Dispatcher) tickMonitors(ctx context.Context, node *registry.Node) {
	bm, ok := d.bmHandlers[node.Handle]
	if !ok {
		bm = stage.NewBMHandler(node, d.deps)
		d.bmHandlers[node.Handle] = bm
	}
	bm.Tick(ctx)

	dg, ok := d.degradeHandlers[node.Handle]
	if !ok {
		dg = stage.NewDegradeHandler(node, d.deps)
		d.degradeHandlers[node.Handle] = dg
	}
	dg.Tick(ctx)
}

// tickUptime pushes the coarse-cadence uptime refresh (§4.8 step 5) as a
// non-critical inventory patch.
func (d *Dispatcher) tickUptime(node *registry.Node) {
	node.UptimeRefreshCounter++
	d.http.Enqueue(node, workqueue.UpdateUptime(node.Hostname, node.Uptime))
}

// Forget releases the per-node monitor state for a deleted node, matching
// §5's "no node is freed while any of its timers has an unfired callback"
// resource-safety rule by making sure the dispatcher itself holds nothing
// back once the registry lets a handle go.
func (d *Dispatcher) Forget(h registry.Handle) {
	delete(d.bmHandlers, h)
	delete(d.degradeHandlers, h)
}
