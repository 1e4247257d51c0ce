// SPDX-License-Identifier: BSD-3-Clause

// Package ipcserver embeds a NATS server for in-process use when no
// external NATS deployment is configured (pkg/config.Config.NATSURL
// empty), adapted from u-bmc's embedded-broker idiom
// (service/ipc/{ipc.go,conn.go}) down to the pieces this agent actually
// needs: start/stop and an in-process connection provider. JetStream,
// service-discovery metadata and the rest of that package's surface were
// dropped — this core has no durable-stream or service-registry
// requirement of its own; persisted state lives entirely in the
// inventory database, not in NATS.
package ipcserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/mtce-project/mtce-agent/pkg/log"
)

// Server wraps an embedded NATS server instance.
type Server struct {
	log            *slog.Logger
	ns             *server.Server
	startupTimeout time.Duration
}

// New builds an embedded server bound to addr (host:port, or "" for
// in-process-only with no TCP listener).
func New(logger *slog.Logger, addr string, startupTimeout time.Duration) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &server.Options{
		ServerName: "mtce-agent",
		DontListen: addr == "",
		Host:       "127.0.0.1",
	}
	if addr != "" {
		host, port, err := splitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("ipcserver: %w", err)
		}
		opts.Host = host
		opts.Port = port
		opts.DontListen = false
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: create embedded nats server: %w", err)
	}
	ns.SetLoggerV2(log.NewNATSLogger(logger), false, false, false)

	return &Server{log: logger, ns: ns, startupTimeout: startupTimeout}, nil
}

// Start runs the embedded server and blocks until it is ready for
// connections or startupTimeout elapses.
func (s *Server) Start() error {
	s.ns.Start()
	if !s.ns.ReadyForConnections(s.startupTimeout) {
		s.ns.Shutdown()
		return fmt.Errorf("ipcserver: embedded nats server not ready within %s", s.startupTimeout)
	}
	s.log.Info("ipcserver: embedded nats server ready", "server_id", s.ns.ID())
	return nil
}

// Shutdown performs a lame-duck drain before stopping the server.
func (s *Server) Shutdown() {
	s.ns.LameDuckShutdown()
	s.ns.Shutdown()
}

// ConnProvider returns the nats.InProcessConnProvider other services dial
// through to reach this embedded server without a TCP round-trip.
func (s *Server) ConnProvider() *ConnProvider {
	return &ConnProvider{server: s.ns}
}
