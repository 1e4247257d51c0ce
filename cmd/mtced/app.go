// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cirello.io/oversight/v2"
	"github.com/arunsworld/nursery"
	"github.com/nats-io/nats.go"

	"github.com/mtce-project/mtce-agent/internal/bmcworker"
	"github.com/mtce-project/mtce-agent/internal/cmdfsm"
	"github.com/mtce-project/mtce-agent/internal/dispatcher"
	"github.com/mtce-project/mtce-agent/internal/fleet"
	"github.com/mtce-project/mtce-agent/internal/ipcserver"
	"github.com/mtce-project/mtce-agent/internal/netagent"
	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/internal/restapi"
	"github.com/mtce-project/mtce-agent/internal/stage"
	"github.com/mtce-project/mtce-agent/internal/workqueue"
	"github.com/mtce-project/mtce-agent/pkg/alarm"
	"github.com/mtce-project/mtce-agent/pkg/config"
	loglib "github.com/mtce-project/mtce-agent/pkg/log"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
	"github.com/mtce-project/mtce-agent/pkg/process"
	"github.com/mtce-project/mtce-agent/pkg/telemetry"
	"github.com/mtce-project/mtce-agent/service"
)

// app holds every component mtced's services are built from and the
// resources a clean shutdown must release.
type app struct {
	log *slog.Logger
	cfg *config.Config

	ipcServer    *ipcserver.Server // nil when an external NATS deployment is used
	nc           *nats.Conn
	fleetCtrl    *fleet.Controller
	otelShutdown func(context.Context) error

	services []service.Service
}

// newApp loads configuration, wires every collaborator, and returns an app
// ready to Run. It does not start anything with a goroutine of its own;
// that all happens inside Run via the supervision tree.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := loglib.NewDefaultLogger()

	otelShutdown, err := telemetry.Setup(context.Background(), telemetry.WithServiceName(cfg.AgentID))
	if err != nil {
		log.Warn("mtced: telemetry setup failed, continuing without it", "error", err)
		otelShutdown = func(context.Context) error { return nil }
	}

	reg := registry.New(registry.AlwaysMigratable{})

	// The embedded NATS server (or a direct dial to an external deployment)
	// is started synchronously, before the supervision tree, because
	// several collaborators below need a concrete *nats.Conn at
	// construction time rather than deferring the dial into their own
	// Run(ctx, ipcConn).
	var ipcSrv *ipcserver.Server
	var nc *nats.Conn
	if cfg.NATSURL == "" {
		ipcSrv, err = ipcserver.New(log, "", 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("mtced: embedded nats server: %w", err)
		}
		if err := ipcSrv.Start(); err != nil {
			return nil, fmt.Errorf("mtced: embedded nats server start: %w", err)
		}
		nc, err = nats.Connect("", nats.InProcessServer(ipcSrv.ConnProvider()))
		if err != nil {
			ipcSrv.Shutdown()
			return nil, fmt.Errorf("mtced: in-process nats connect: %w", err)
		}
	} else {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("mtced: nats connect %s: %w", cfg.NATSURL, err)
		}
	}

	proxy := &handlerProxy{}
	agent := netagent.New(log, proxy)

	bmcPool := bmcworker.NewPool(log, cfg.BMCWorkerTmpDir, cfg.BMCWorkerOutputDir, cfg.Timeouts.BMCWorkerGrace, cfg.Timeouts.BMCKillCooloff)

	workBaseURLs := map[workqueue.Target]string{
		workqueue.TargetInventory: cfg.Endpoints.Sysinv,
		workqueue.TargetVIM:       cfg.Endpoints.VIM,
		workqueue.TargetKeystone:  cfg.Endpoints.Keystone,
		workqueue.TargetSM:        cfg.Endpoints.ServiceManager,
	}
	work := workqueue.NewDispatcher(log, &http.Client{Timeout: cfg.Timeouts.WorkQueue}, workBaseURLs, cfg.Timeouts.WorkQueue)

	alarmSurface := alarm.New(alarm.NewNATSPublisher(nc))

	netDeps := stage.NewNetworkDeps(agent, bmcPool, work, alarmSurface)

	cmdDeps := &cmdfsm.NetworkDeps{
		Agent:               agent,
		BMC:                 bmcPool,
		Config:              cfg,
		UptimeHighWaterMark: cfg.UptimeHighWaterMark,
	}
	cmdMgr := cmdfsm.NewManager(log, reg, cmdDeps, cfg, cfg.Timeouts.CmdAck)

	stageMgr := stage.NewManager(log, reg, netDeps, cmdDeps, cfg, cfg.Timeouts.CmdAck)

	fleetCtrl := fleet.New(log, reg, cfg, alarmSurface, work, time.Now())

	events := restapi.NewEventHub(log)
	stageMgr.SetOnComplete(func(node *registry.Node, kind registry.StageKind, status mtcerr.Kind) {
		fleetCtrl.AutoRecovery.Observe(node, kind, status)
		events.NotifyStateChange(node)
	})

	router := newHostEventRouter(log, reg, netDeps, cmdMgr)
	proxy.SetTarget(router)

	disp, err := dispatcher.New(log, reg, cfg, cmdMgr, stageMgr, work, netDeps, fleetCtrl)
	if err != nil {
		return nil, fmt.Errorf("mtced: dispatcher: %w", err)
	}

	if self, err := reg.GetByHostname(cfg.AgentID); err == nil {
		disp.SetSelf(self.Handle)
	} else {
		log.Info("mtced: no self-node found in registry yet, running without one", "agent_id", cfg.AgentID)
	}

	restSrv := restapi.NewServer(log, reg, cfg, events)

	if err := fleetCtrl.Start(nc); err != nil {
		return nil, fmt.Errorf("mtced: fleet controller start: %w", err)
	}

	a := &app{
		log:          log,
		cfg:          cfg,
		ipcServer:    ipcSrv,
		nc:           nc,
		fleetCtrl:    fleetCtrl,
		otelShutdown: otelShutdown,
		services: []service.Service{
			&agentListenerService{agent: agent, cfg: cfg},
			&tickerService{log: log, cfg: cfg, router: router, disp: disp},
			&restService{addr: cfg.RESTListenAddr, router: restSrv.Router()},
		},
	}
	return a, nil
}

// Run starts every service under a supervision tree and blocks until ctx
// is canceled or a service fails unrecoverably.
func (a *app) Run(ctx context.Context) error {
	supervisionTree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
		oversight.WithLogger(loglib.NewOversightLogger(a.log)),
	)

	supervise := func(ctx context.Context, c chan error) {
		c <- supervisionTree.Start(ctx)
	}

	spawnProcs := func(ctx context.Context, c chan error) {
		for _, svc := range a.services {
			if err := supervisionTree.Add(
				process.New(svc, nil),
				oversight.Transient(),
				oversight.Timeout(10*time.Second),
				svc.Name(),
			); err != nil {
				c <- fmt.Errorf("mtced: add %s to supervision tree: %w", svc.Name(), err)
				return
			}
		}
		c <- nil
	}

	a.log.Info("mtced: starting", "agent_id", a.cfg.AgentID)
	return nursery.RunConcurrentlyWithContext(ctx, supervise, spawnProcs)
}

// Close releases every resource newApp acquired that Run's context
// cancellation doesn't already unwind (the NATS connection and, when
// running embedded, the in-process server).
func (a *app) Close() {
	a.fleetCtrl.Stop()
	if a.nc != nil {
		a.nc.Close()
	}
	if a.ipcServer != nil {
		a.ipcServer.Shutdown()
	}
	_ = a.otelShutdown(context.Background())
}
