// SPDX-License-Identifier: BSD-3-Clause

// Package fleet implements the fleet-level controllers (C9) the dispatcher
// advances once per pass in addition to its per-node work: multi-node-
// failure-avoidance, dead-office recovery, the heartbeat-service
// event consumer, the service-readiness coordinator, and auto-recovery
// suppression (§4.9).
package fleet

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

// Controller bundles every fleet-level subsystem and satisfies
// internal/dispatcher's Fleet interface.
type Controller struct {
	log *slog.Logger
	reg *registry.Registry

	MNFA         *MNFA
	DOR          *DOR
	Heartbeat    *HeartbeatConsumer
	Readiness    *ReadinessCoordinator
	AutoRecovery *AutoRecovery
}

// New builds every fleet controller from cfg. The AutoRecovery counter is
// exposed as the returned Controller's AutoRecovery field so callers can
// wire its Observe method into stage.Manager.SetOnComplete.
func New(log *slog.Logger, reg *registry.Registry, cfg *config.Config, surface *alarm.Surface, http *workqueue.Dispatcher, startedAt time.Time) *Controller {
	if log == nil {
		log = slog.Default()
	}

	mnfa := NewMNFA(cfg.MNFA, cfg.Timeouts.MNFARecovery)

	return &Controller{
		log:          log,
		reg:          reg,
		MNFA:         mnfa,
		DOR:          NewDOR(startedAt),
		Heartbeat:    NewHeartbeatConsumer(log, reg, surface, mnfa, cfg.HeartbeatThresholds),
		Readiness:    NewReadinessCoordinator(log, reg),
		AutoRecovery: NewAutoRecovery(http, cfg.Retry.AutoRecoveryCap),
	}
}

// Start subscribes the NATS-driven subsystems (heartbeat consumer,
// readiness coordinator) on nc. Call once at agent startup.
func (c *Controller) Start(nc *nats.Conn) error {
	if err := c.Heartbeat.Start(nc); err != nil {
		return err
	}
	return c.Readiness.Start(nc)
}

// Stop unsubscribes every NATS-driven subsystem.
func (c *Controller) Stop() {
	c.Heartbeat.Stop()
	c.Readiness.Stop()
}

// Advance runs one fleet-level pass: drain queued heartbeat events, then
// re-evaluate MNFA and DOR against the current registry snapshot.
func (c *Controller) Advance(ctx context.Context) error {
	if err := c.Heartbeat.Advance(ctx); err != nil {
		return err
	}

	nodes := c.reg.List()
	now := time.Now()
	c.MNFA.Advance(nodes, now)
	c.DOR.Advance(nodes, now)
	return nil
}
