// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mtce-project/mtce-agent/internal/dispatcher"
	"github.com/mtce-project/mtce-agent/internal/netagent"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

// agentListenerService binds the on-host agent's UDP sockets and blocks
// for the life of the process; internal/netagent.Agent.Listen itself
// returns once each socket is bound and its read loop is started as its
// own goroutine, so this service's only remaining job is to hold the
// process open and close the sockets on shutdown.
type agentListenerService struct {
	agent *netagent.Agent
	cfg   *config.Config
}

func (s *agentListenerService) Name() string { return "netagent-listener" }

func (s *agentListenerService) Run(ctx context.Context, _ nats.InProcessConnProvider) error {
	listens := map[netagent.Network]string{
		netagent.Management:  s.cfg.NetworkListen.Management,
		netagent.ClusterHost: s.cfg.NetworkListen.ClusterHost,
		netagent.Pxeboot:     s.cfg.NetworkListen.Pxeboot,
	}
	for network, addr := range listens {
		if addr == "" {
			continue
		}
		if err := s.agent.Listen(ctx, network, addr); err != nil {
			return err
		}
	}

	<-ctx.Done()
	return s.agent.Close()
}

// tickerService drives the fixed-cadence dispatcher pass: drain queued
// inbound wire events, then run one dispatcher.Tick, on a single
// goroutine, per cfg.TickInterval.
type tickerService struct {
	log    *slog.Logger
	cfg    *config.Config
	router *hostEventRouter
	disp   *dispatcher.Dispatcher
}

func (s *tickerService) Name() string { return "dispatcher-tick" }

func (s *tickerService) Run(ctx context.Context, _ nats.InProcessConnProvider) error {
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.router.Advance(ctx); err != nil {
				s.log.Error("mtced: inbound router advance failed", "error", err)
				continue
			}
			if err := s.disp.Tick(ctx); err != nil {
				s.log.Error("mtced: dispatcher tick failed", "error", err)
			}
		}
	}
}

// restService runs the REST/websocket HTTP server and shuts it down
// cleanly when ctx is canceled.
type restService struct {
	addr   string
	router http.Handler
}

func (s *restService) Name() string { return "restapi" }

func (s *restService) Run(ctx context.Context, _ nats.InProcessConnProvider) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
