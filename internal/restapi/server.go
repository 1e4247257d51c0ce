// SPDX-License-Identifier: BSD-3-Clause

// Package restapi implements the inbound/outbound-adjacent REST surface of
// §6: the add/modify/delete/get host endpoints the inventory
// service, VIM and service-manager drive the core with, plus an
// operator-facing websocket event stream that is an ambient supplement
// beyond the closed REST list (§4's supplemented-feature
// list). The embedded HTTP server itself is out of scope (§6: "served by
// the embedded HTTP server that is out-of-scope, but consumed here") —
// this package only wires chi routes to registry/dispatcher operations and
// returns an http.Handler for whatever listener cmd/mtced constructs.
package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

// Server adapts registry operations to the REST surface.
type Server struct {
	log    *slog.Logger
	reg    *registry.Registry
	cfg    *config.Config
	events *EventHub
}

// NewServer builds a Server. events may be nil, in which case the
// websocket stream route is simply not mounted.
func NewServer(log *slog.Logger, reg *registry.Registry, cfg *config.Config, events *EventHub) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, reg: reg, cfg: cfg, events: events}
}

// Router builds the chi router mounting every route of §6.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/v1/hosts", s.handleAddHost)
	r.Patch("/v1/hosts/{uuid}", s.handlePatchHost)
	r.Delete("/v1/hosts/{uuid}", s.handleDeleteHost)
	r.Get("/v1/hosts/{uuid}", s.handleGetHost)
	r.Get("/v1/systems", s.handleGetSystems)

	if s.events != nil {
		r.Get("/v1/events", s.events.ServeWS)
	}

	return r
}
