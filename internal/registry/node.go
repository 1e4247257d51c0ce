// SPDX-License-Identifier: BSD-3-Clause

package registry

import (
	"time"

	"github.com/mtce-project/mtce-agent/pkg/timer"
)

// HeartbeatNetwork is one of the physical networks a node's liveness is
// tracked on independently (§3: "for each of up to N interfaces").
type HeartbeatNetwork string

// Heartbeat holds the per-network liveness counters and flags of §3.
type Heartbeat struct {
	Minor        bool
	Degrade      bool
	Failure      bool
	Count        uint32
	B2BMisses    uint32
	MaxCount     uint32
	MinorCount   uint32
	DegradeCount uint32
	FailureCount uint32
	Monitored    bool
}

// PingMonitor is the BMC ping-monitor sub-FSM state (§4.9's bm_handler).
type PingMonitor struct {
	Stage   string
	Retries uint32
}

// MCInfo snapshots board-management-controller identification queried once
// per accessibility transition.
type MCInfo struct {
	Manufacturer string
	Model        string
	FirmwareRev  string
	ResetCause   string
	PowerStatus  string
}

// BMC holds the per-node board-management-controller state of §3.
type BMC struct {
	IP               string
	Username         string
	Password         string
	Type             string // "legacy" (ipmitool) or "redfish" (redfishtool)
	Provisioned      bool
	Accessible       bool
	TestInProgress   bool
	OperInProgress   bool
	Ping             PingMonitor
	Info             MCInfo
	QueryMCInfoDone  bool
	QueryResetDone   bool
	QueryPowerDone   bool
	HwmonResetRecovery      int
	HwmonPowercycleRecovery int
}

// Retries tracks the general and per-subsystem retry/throttle counters of §3.
type Retries struct {
	General               uint32
	Cmd                   uint32
	HTTPCur               uint32
	PowerAction           uint32
	HealthThresholdCount  uint32
	GracefulRecoveryCount uint32
}

// Timers is the set of per-node timer handles of §3. A zero Handle means
// "not currently armed".
type Timers struct {
	MtcAlive     timer.Handle
	Offline      timer.Handle
	MtcTimer     timer.Handle
	HTTP         timer.Handle
	MtcCmd       timer.Handle
	OosTest      timer.Handle
	InsvTest     timer.Handle
	Swact        timer.Handle
	Config       timer.Handle
	Power        timer.Handle
	HostServices timer.Handle
	BM           timer.Handle
	BMCAccess    timer.Handle
}

// BMCWorkerSlot is the thread-control and thread-info state of §3's "BMC
// worker slot"; internal/bmcworker is the executor that drives it.
type BMCWorkerSlot struct {
	Stage       BMCWorkerStage
	Done        bool
	Retries     uint32
	ID          uint64
	Status      int
	RunCount    uint32
	SeenRunCount uint32

	Hostname     string
	Command      string
	Signal       string
	Progress     string
	StatusString string
	Data         string

	PasswordFilePath string

	// Thread-extra info: a snapshot of the BMC credentials/type taken at
	// launch time so a concurrent credential change never races the
	// in-flight worker.
	SnapshotIP       string
	SnapshotUsername string
	SnapshotPassword string
	SnapshotType     string
}

// Node is one provisioned host's complete record (§3).
type Node struct {
	Handle Handle

	// Identity
	Hostname      string
	UUID          string
	ManagementIP  string
	MAC           string
	ClusterHostIP string
	PxebootIP     string
	Personality   Personality
	Subfunction   Subfunction
	NodeType      uint32

	// Admin lifecycle
	AdminAction        AdminAction
	AdminActionTodoList []AdminAction
	AdminState         AdminState
	OperState          OperState
	AvailStatus        AvailStatus
	OperStateSubf      OperState
	AvailStatusSubf    AvailStatus
	OperStateDport     OperState
	AvailStatusDport   AvailStatus

	// Stage union: exactly one is "current" — selected by AdminAction and
	// read/written only through the registry's stage-change helper.
	Stage StageKind

	// Liveness
	MtcAliveGate        bool
	MtcAliveMgmt        bool
	MtcAliveCluster     bool
	MtcAlivePxeboot     bool
	Uptime              uint32
	Health              uint32
	MtceFlags           uint32
	UptimeRefreshCounter uint32

	// Per-network heartbeat, keyed by network name (e.g. "management").
	Heartbeats map[HeartbeatNetwork]*Heartbeat

	BMC     BMC
	Retries Retries
	Timers  Timers

	HTTPWorkQueue  FIFO
	CmdWorkQueue   FIFO

	Alarms map[string]int // alarm id -> severity; populated lazily via pkg/alarm
	AlarmsLoaded bool

	DegradeMask uint32

	BMCWorker BMCWorkerSlot

	CreatedAt time.Time
}

// MtceFlag bits for MtceFlags (§3).
const (
	FlagConfigured uint32 = 1 << iota
	FlagHealthy
	FlagLocked
	FlagSubfConfigured
	FlagMainGoEnabled
	FlagSubfGoEnabled
	FlagPatching
	FlagPatched
	FlagSMDegraded
	FlagSMUnhealthy
)

// IsDegraded reports whether the node's degrade mask is non-zero while
// enabled — §3's "the node is degraded iff the mask is non-zero and
// operState==enabled".
func (n *Node) IsDegraded() bool {
	return n.DegradeMask != 0 && n.OperState == OperEnabled
}

// SetDegradeCause ORs a cause bit into the degrade mask.
func (n *Node) SetDegradeCause(cause DegradeCause) {
	n.DegradeMask |= uint32(cause)
}

// ClearDegradeCause ANDs out a cause bit from the degrade mask.
func (n *Node) ClearDegradeCause(cause DegradeCause) {
	n.DegradeMask &^= uint32(cause)
}

// HasDegradeCause reports whether a specific cause bit is set.
func (n *Node) HasDegradeCause(cause DegradeCause) bool {
	return n.DegradeMask&uint32(cause) != 0
}
