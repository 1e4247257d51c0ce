// SPDX-License-Identifier: BSD-3-Clause

// Package mtcerr defines the closed enumeration of result kinds returned by
// every handler, registry operation and worker in the maintenance agent, and
// the table that maps a kind to the REST {status, reason, action} triple
// returned from internal/restapi. Handlers never panic to signal failure;
// they return a Kind, and the dispatcher decides what to do with it.
package mtcerr

// Kind is a closed enumeration of result kinds, mirroring the original
// source's error taxonomy (§7).
type Kind int

const (
	// OK indicates success; the zero value so a bare `var k Kind` is valid.
	OK Kind = iota

	// Input/parse kinds.
	BadParm
	BadCase
	JSONParse
	InvalidData
	StringEmpty
	UnknownHostname
	HostaddrLookup
	NodeType

	// Resource/system kinds.
	NullPointer
	BadState
	SocketCreate
	SocketBind
	SocketListen
	SocketOption
	SocketSendto
	FileCreate
	FileAccess
	NoClstrProv

	// Protocol kinds.
	Timeout
	NoCmdAck
	Retry
	ResetControl
	PowerControl
	NotAccessible
	NotConnected
	BMProvisionErr
	ThreadCreate
	ThreadExit
	ThreadRunning
	NotActive

	// Semantic kinds.
	UnitActive
	LowStorage
	PatchInProgress
	PatchedNoReboot
	NeedStorageMon
	NeedDuplex
	DelUnlocked
	AdminAction
	SwactNoInsvmate
	OperInProgress
	SwactInProgress
	ResetPoweroff
	DupHostname
	DupUUID
	DupIPAddr
	DupMACAddr
	ReservedName
	NoIPSupport

	// Fault-insertion kind, test only.
	FIT
)

//go:generate stringer -type=Kind

var kindNames = map[Kind]string{
	OK:              "OK",
	BadParm:         "BAD_PARM",
	BadCase:         "BAD_CASE",
	JSONParse:       "JSON_PARSE",
	InvalidData:     "INVALID_DATA",
	StringEmpty:     "STRING_EMPTY",
	UnknownHostname: "UNKNOWN_HOSTNAME",
	HostaddrLookup:  "HOSTADDR_LOOKUP",
	NodeType:        "NODETYPE",

	NullPointer:  "NULL_POINTER",
	BadState:     "BAD_STATE",
	SocketCreate: "SOCKET_CREATE",
	SocketBind:   "SOCKET_BIND",
	SocketListen: "SOCKET_LISTEN",
	SocketOption: "SOCKET_OPTION",
	SocketSendto: "SOCKET_SENDTO",
	FileCreate:   "FILE_CREATE",
	FileAccess:   "FILE_ACCESS",
	NoClstrProv:  "NO_CLSTR_PROV",

	Timeout:        "TIMEOUT",
	NoCmdAck:       "NO_CMD_ACK",
	Retry:          "RETRY",
	ResetControl:   "RESET_CONTROL",
	PowerControl:   "POWER_CONTROL",
	NotAccessible:  "NOT_ACCESSIBLE",
	NotConnected:   "NOT_CONNECTED",
	BMProvisionErr: "BM_PROVISION_ERR",
	ThreadCreate:   "THREAD_CREATE",
	ThreadExit:     "THREAD_EXIT",
	ThreadRunning:  "THREAD_RUNNING",
	NotActive:      "NOT_ACTIVE",

	UnitActive:      "UNIT_ACTIVE",
	LowStorage:      "LOW_STORAGE",
	PatchInProgress: "PATCH_INPROGRESS",
	PatchedNoReboot: "PATCHED_NOREBOOT",
	NeedStorageMon:  "NEED_STORAGE_MON",
	NeedDuplex:      "NEED_DUPLEX",
	DelUnlocked:     "DEL_UNLOCKED",
	AdminAction:     "ADMIN_ACTION",
	SwactNoInsvmate: "SWACT_NOINSVMATE",
	OperInProgress:  "OPER_INPROGRESS",
	SwactInProgress: "SWACT_INPROGRESS",
	ResetPoweroff:   "RESET_POWEROFF",
	DupHostname:     "DUP_HOSTNAME",
	DupUUID:         "DUP_UUID",
	DupIPAddr:       "DUP_IPADDR",
	DupMACAddr:      "DUP_MACADDR",
	ReservedName:    "RESERVED_NAME",
	NoIPSupport:     "NO_IP_SUPPORT",

	FIT: "FIT",
}

// String renders the kind's stable, original-taxonomy name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Error implements the error interface so a Kind can be returned or wrapped
// directly (fmt.Errorf("%w: ...", kind)) wherever Go idiom expects an error
// alongside the original C enum's kind value.
func (k Kind) Error() string {
	return k.String()
}

// IsSuccess reports whether the kind represents success.
func (k Kind) IsSuccess() bool {
	return k == OK
}

// IsRetryable reports whether the dispatcher should re-run the owning stage
// on the next tick rather than transitioning to a failure sub-stage.
func (k Kind) IsRetryable() bool {
	return k == Retry
}

// IsSemantic reports whether the kind is an admin-action rejection that must
// never be retried and instead maps straight through the REST error table.
func (k Kind) IsSemantic() bool {
	switch k {
	case UnitActive, LowStorage, PatchInProgress, PatchedNoReboot, NeedStorageMon,
		NeedDuplex, DelUnlocked, AdminAction, SwactNoInsvmate, OperInProgress,
		SwactInProgress, ResetPoweroff, DupHostname, DupUUID, DupIPAddr, DupMACAddr,
		ReservedName, NoIPSupport:
		return true
	default:
		return false
	}
}
