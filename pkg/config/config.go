// SPDX-License-Identifier: BSD-3-Clause

// Package config loads the maintenance agent's tunables from a TOML config
// file (§6), filling in documented defaults for any option the file omits.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Timeouts holds every protocol timeout named in §6, each as a time.Duration.
type Timeouts struct {
	MtcAliveController time.Duration `toml:"mtcalive_controller"`
	MtcAliveWorker     time.Duration `toml:"mtcalive_worker"`
	MtcAliveStorage    time.Duration `toml:"mtcalive_storage"`
	GoEnabled          time.Duration `toml:"goenabled"`
	Swact              time.Duration `toml:"swact"`
	Sysinv             time.Duration `toml:"sysinv"`
	SysinvNoncrit      time.Duration `toml:"sysinv_noncrit"`
	LossOfCommRecovery time.Duration `toml:"loss_of_comm_recovery"`
	MNFARecovery       time.Duration `toml:"mnfa_recovery"`
	WorkQueue          time.Duration `toml:"work_queue"`
	Reinstall          time.Duration `toml:"reinstall"`

	// CmdAck is the ACK timeout for on-host commands with side effects (§4.2).
	CmdAck time.Duration `toml:"cmd_ack"`
	// BMCWorkerGrace is added to the worker-side deadline for the parent's
	// own timeout (§4.5).
	BMCWorkerGrace time.Duration `toml:"bmc_worker_grace"`
	// BMCKillCooloff is the mandatory wait after a worker KILL before the
	// next LAUNCH is permitted (§4.5, §5).
	BMCKillCooloff time.Duration `toml:"bmc_kill_cooloff"`
	// BMCResetDelay is the holdoff before a BMC reset during reset
	// progression (§4.6); the retry-cap clamp in Open Question 3 uses it.
	BMCResetDelay time.Duration `toml:"bmc_reset_delay"`
	// StorageServicesHoldoff is the legacy-mode storage-stop holdoff (§4.6).
	StorageServicesHoldoff time.Duration `toml:"storage_services_holdoff"`
}

// AuditIntervals holds the coarse-cadence audit cycle lengths named in §6.
type AuditIntervals struct {
	InsvTest     time.Duration `toml:"insv_test"`
	OosTest      time.Duration `toml:"oos_test"`
	Uptime       time.Duration `toml:"uptime"`
	Online       time.Duration `toml:"online"`
	TokenRefresh time.Duration `toml:"token_refresh"`
}

// HeartbeatThresholds holds the consecutive-miss counts for each heartbeat
// severity and the reaction policy applied once a threshold trips.
type HeartbeatThresholds struct {
	Minor    int    `toml:"minor"`
	Degrade  int    `toml:"degrade"`
	Failure  int    `toml:"failure"`
	Action   string `toml:"action"` // fail | degrade | alarm-only | none
	Offline  int    `toml:"offline_threshold"`
	OnlineHi int    `toml:"online_hysteresis"`
}

// MNFA holds the multi-node-failure-avoidance threshold configuration (§4.9).
type MNFA struct {
	ThresholdType string `toml:"threshold_type"` // "absolute" | "percent"
	Percent       int    `toml:"percent"`
	Number        int    `toml:"number"`
}

// Retry holds the named retry caps this design pins exact values for.
type Retry struct {
	RebootCap          int `toml:"reboot_cap"`
	PowerActionCap     int `toml:"power_action_cap"`
	AutoRecoveryCap    int `toml:"auto_recovery_cap"`
	HTTPMaxRetries     int `toml:"http_max_retries"`
}

// NetworkListen holds the UDP listen address for each physical network
// internal/netagent binds a socket on (§6's "one socket per provisioned
// network").
type NetworkListen struct {
	Management  string `toml:"management"`
	ClusterHost string `toml:"cluster_host"`
	Pxeboot     string `toml:"pxeboot"`
}

// Endpoints holds the base URLs for the external services the work queue
// (§4.8) delivers announcements and acknowledgements to. cmd/mtced turns
// this into the map internal/workqueue.NewDispatcher wants; the config
// package itself doesn't import internal/workqueue to keep the dependency
// direction pointing inward.
type Endpoints struct {
	Sysinv         string `toml:"sysinv"`
	VIM            string `toml:"vim"`
	Keystone       string `toml:"keystone"`
	ServiceManager string `toml:"service_manager"`
}

// Config is the fully resolved, documented-defaults-applied configuration
// for one agent instance.
type Config struct {
	AgentID  string `toml:"agent_id"`
	DryRun   bool   `toml:"dry_run"`
	ConfigFile string `toml:"-"`

	// TickInterval is the dispatcher's per-node pass cadence. The original
	// source's scheduling loop runs on sub-second granularity; this keeps
	// the same rough cadence as a single documented Go tunable instead of
	// per-subsystem sleep constants.
	TickInterval time.Duration `toml:"tick_interval"`

	Timeouts            Timeouts            `toml:"timeouts"`
	AuditIntervals      AuditIntervals      `toml:"audit_intervals"`
	HeartbeatThresholds HeartbeatThresholds `toml:"heartbeat"`
	MNFA                MNFA                `toml:"mnfa"`
	Retry               Retry               `toml:"retry"`
	Endpoints           Endpoints           `toml:"endpoints"`
	NetworkListen       NetworkListen       `toml:"network_listen"`

	// BMCWorkerTmpDir/BMCWorkerOutputDir are the directories
	// internal/bmcworker writes its ephemeral password files and captured
	// CLI output to.
	BMCWorkerTmpDir    string `toml:"bmc_worker_tmp_dir"`
	BMCWorkerOutputDir string `toml:"bmc_worker_output_dir"`

	// UptimeHighWaterMark is the uptime counter (seconds) below which a
	// node is still considered to be in the same boot session for the
	// reset progression's late-offline-cancels-reset check (§4.6).
	UptimeHighWaterMark uint32 `toml:"uptime_high_water_mark"`

	// StressTestMask and FaultInsertion are named in §6 for test harnesses;
	// both default off in production configs.
	StressTestMask  uint32 `toml:"stress_test_mask"`
	FaultInsertion  string `toml:"fault_insertion_code"`
	FaultTarget     string `toml:"fault_insertion_target"`

	// NATSURL is the in-process or external NATS deployment used for C2
	// peer-service and C9 fleet coordination.
	NATSURL string `toml:"nats_url"`
	// RESTListenAddr is where internal/restapi serves the external REST
	// surface (§6) and the operator websocket stream.
	RESTListenAddr string `toml:"rest_listen_addr"`
}

// Default returns a Config populated entirely with documented defaults,
// matching the constants §4 resolves from the original C++ sources.
func Default() *Config {
	return &Config{
		AgentID:      "mtce-agent",
		TickInterval: 100 * time.Millisecond,
		Timeouts: Timeouts{
			MtcAliveController: 5 * time.Second,
			MtcAliveWorker:     8 * time.Second,
			MtcAliveStorage:    8 * time.Second,
			GoEnabled:          300 * time.Second,
			Swact:              120 * time.Second,
			Sysinv:             10 * time.Second,
			SysinvNoncrit:      10 * time.Second,
			LossOfCommRecovery: 60 * time.Second,
			MNFARecovery:       300 * time.Second,
			WorkQueue:          30 * time.Second,
			Reinstall:          1800 * time.Second,
			CmdAck:             5 * time.Second,
			BMCWorkerGrace:     5 * time.Second,
			BMCKillCooloff:     10 * time.Second,
			BMCResetDelay:      90 * time.Second,
			StorageServicesHoldoff: 90 * time.Second,
		},
		AuditIntervals: AuditIntervals{
			InsvTest:     600 * time.Second,
			OosTest:      600 * time.Second,
			Uptime:       60 * time.Second,
			Online:       60 * time.Second,
			TokenRefresh: 1800 * time.Second,
		},
		HeartbeatThresholds: HeartbeatThresholds{
			Minor:    4,
			Degrade:  6,
			Failure:  10,
			Action:   "fail",
			Offline:  3,
			OnlineHi: 5,
		},
		MNFA: MNFA{
			ThresholdType: "absolute",
			Percent:       25,
			Number:        5,
		},
		Retry: Retry{
			RebootCap:       5,
			PowerActionCap:  3,
			AutoRecoveryCap: 3,
			HTTPMaxRetries:  3,
		},
		NATSURL:        "",
		RESTListenAddr: ":6385",
		Endpoints: Endpoints{
			Sysinv:         "http://localhost:6385",
			VIM:            "http://localhost:4545",
			Keystone:       "http://localhost:5000",
			ServiceManager: "http://localhost:7777",
		},
		NetworkListen: NetworkListen{
			Management:  "0.0.0.0:2112",
			ClusterHost: "0.0.0.0:2113",
			Pxeboot:     "0.0.0.0:2114",
		},
		BMCWorkerTmpDir:     "/var/run/mtce-agent/bmc-tmp",
		BMCWorkerOutputDir:  "/var/run/mtce-agent/bmc-out",
		UptimeHighWaterMark: 100,
	}
}

// Load reads a TOML config file at path, merging its values over the
// documented defaults. A missing file is not an error — Default() is
// returned unchanged, matching the "missing options use documented
// defaults" requirement at the file-absent level too.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if isNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	cfg.ConfigFile = path
	return cfg, nil
}

// BMCResetDelayClamped implements Open Question 3: the reset-progression
// reboot-retry path computes bmc_reset_delay - (rebootCap * cmdAck),
// clamped to zero when the arithmetic goes negative for a short
// bmc_reset_delay.
func (c *Config) BMCResetDelayClamped() time.Duration {
	d := c.Timeouts.BMCResetDelay - time.Duration(c.Retry.RebootCap)*c.Timeouts.CmdAck
	if d < 0 {
		return 0
	}
	return d
}
