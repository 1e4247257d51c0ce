// SPDX-License-Identifier: BSD-3-Clause

package registry

// Personality is a host's primary role in the cluster.
type Personality string

const (
	Controller Personality = "controller"
	Worker     Personality = "worker"
	Storage    Personality = "storage"
)

// Subfunction is the secondary role an all-in-one host also runs.
type Subfunction string

const (
	SubfunctionNone    Subfunction = ""
	SubfunctionWorker  Subfunction = "worker"
	SubfunctionStorage Subfunction = "storage"
)

// AdminAction is the action currently queued or executing for a node.
type AdminAction string

const (
	ActionNone        AdminAction = "none"
	ActionLock        AdminAction = "lock"
	ActionUnlock      AdminAction = "unlock"
	ActionReset       AdminAction = "reset"
	ActionReboot      AdminAction = "reboot"
	ActionReinstall   AdminAction = "reinstall"
	ActionPowerOff    AdminAction = "power-off"
	ActionPowerOn     AdminAction = "power-on"
	ActionRecover     AdminAction = "recover"
	ActionDelete      AdminAction = "delete"
	ActionPowercycle  AdminAction = "powercycle"
	ActionAdd         AdminAction = "add"
	ActionSwact       AdminAction = "swact"
	ActionForceLock   AdminAction = "force-lock"
	ActionForceSwact  AdminAction = "force-swact"
	ActionEnable      AdminAction = "enable"
	ActionEnableSubf  AdminAction = "enable-subf"
)

// AdminState is the administrative lock state.
type AdminState string

const (
	AdminLocked   AdminState = "locked"
	AdminUnlocked AdminState = "unlocked"
)

// OperState is operational readiness.
type OperState string

const (
	OperEnabled  OperState = "enabled"
	OperDisabled OperState = "disabled"
)

// AvailStatus is fine-grained availability within an OperState.
type AvailStatus string

const (
	AvailAvailable  AvailStatus = "available"
	AvailDegraded   AvailStatus = "degraded"
	AvailFailed     AvailStatus = "failed"
	AvailIntest     AvailStatus = "intest"
	AvailOffline    AvailStatus = "offline"
	AvailOnline     AvailStatus = "online"
	AvailOffduty    AvailStatus = "offduty"
	AvailPoweredOff AvailStatus = "powered-off"
	AvailNotInstalled AvailStatus = "not-installed"
)

// StageKind names which stage-union member is currently active for a node,
// selected by AdminAction (§3: "exactly one is current at any time").
type StageKind string

const (
	StageNone      StageKind = "none"
	StageEnable    StageKind = "enable"
	StageDisable   StageKind = "disable"
	StageRecovery  StageKind = "recovery"
	StageReset     StageKind = "reset"
	StageReinstall StageKind = "reinstall"
	StagePower     StageKind = "power"
	StagePowercycle StageKind = "powercycle"
	StageOosTest   StageKind = "oosTest"
	StageInsvTest  StageKind = "insvTest"
	StageConfig    StageKind = "config"
	StageAdd       StageKind = "add"
	StageDel       StageKind = "del"
	StageOffline   StageKind = "offline"
	StageOnline    StageKind = "online"
	StageSwact     StageKind = "swact"
	StageSensor    StageKind = "sensor"
	StageSubf      StageKind = "subf"
	StageResetProg StageKind = "resetProg"
)

// BMCWorkerStage is the lifecycle stage of a node's BMC worker slot (§3's
// invariant: "IDLE (not launched), LAUNCHED (in progress), DONE (result
// available, not yet consumed) or WAIT (post-kill cool-off)").
type BMCWorkerStage string

const (
	BMCWorkerIdle    BMCWorkerStage = "idle"
	BMCWorkerLaunch  BMCWorkerStage = "launch"
	BMCWorkerMonitor BMCWorkerStage = "monitor"
	BMCWorkerDone    BMCWorkerStage = "done"
	BMCWorkerWait    BMCWorkerStage = "wait"
)

// Heartbeat network identifiers, keying Node.Heartbeats. Only management
// and cluster-host carry a heartbeat pulse; pxeboot is agent-wire-protocol
// only (§3, §4.9).
const (
	HeartbeatMgmt    HeartbeatNetwork = "management"
	HeartbeatCluster HeartbeatNetwork = "cluster-host"
)

// DegradeCause is one bit of the 32-bit degrade mask (§3).
type DegradeCause uint32

const (
	DegradeHeartbeatMgmt DegradeCause = 1 << iota
	DegradeHeartbeatCluster
	DegradeProcessMonitor
	DegradeInServiceTest
	DegradeDataPortMajor
	DegradeDataPortCritical
	DegradeResourceMonitor
	DegradeHardwareMonitor
	DegradeSubfunction
	DegradeServiceManager
	DegradeConfig
	DegradeCollectd
	DegradeEnable
)
