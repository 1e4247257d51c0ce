// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/micro"
)

// IPC Subject Constants for NATS Micro Services
// These constants define all the subjects used for coordination between the
// maintenance agent's event loop and its peer services. Services should use
// these constants rather than constructing subjects dynamically.
//
// These are control-plane subjects only. The fixed-header on-host wire
// protocol (pkg/wireproto) is carried over raw UDP sockets, not NATS.

// Node Registry Subjects (C3). No endpoint in this module serves them.
const (
	SubjectNodeAdd    = "node.add"
	SubjectNodeModify = "node.modify"
	SubjectNodeDelete = "node.delete"
	SubjectNodeGet    = "node.get"
	SubjectNodeList   = "node.list"
)

// HTTP Work-Queue Subjects (C4). Nothing in this module publishes on them.
const (
	SubjectWorkQueueEnqueued  = "workqueue.enqueued"
	SubjectWorkQueueCompleted = "workqueue.completed"
	SubjectWorkQueueFailed    = "workqueue.failed"
)

// BMC Worker Subjects (C5)
const (
	SubjectBMCLaunch       = "bmc.launch"
	SubjectBMCDone         = "bmc.done"
	SubjectBMCTimeout      = "bmc.timeout"
	SubjectBMCAccessible   = "bmc.accessible"
	SubjectBMCInaccessible = "bmc.inaccessible"
)

// Command FSM Subjects (C6)
const (
	SubjectCommandEnqueued = "command.enqueued"
	SubjectCommandDone     = "command.done"
)

// Heartbeat Service Event Subjects (C9), consumed from the sibling
// heartbeat service, which is out of this core's scope.
const (
	SubjectHeartbeatLoss       = "heartbeat.loss"
	SubjectHeartbeatMinorSet   = "heartbeat.minorset"
	SubjectHeartbeatMinorClear = "heartbeat.minorclear"
	SubjectHeartbeatDegradeSet = "heartbeat.degradeset"
	SubjectHeartbeatDegradeClr = "heartbeat.degradeclear"
	SubjectHeartbeatReady      = "heartbeat.ready"
)

// Service-Readiness Coordination Subjects (C9), one per peer daemon.
const (
	SubjectReadyPmond     = "ready.pmond"
	SubjectReadyHbsClient = "ready.hbsclient"
	SubjectReadyMtcClient = "ready.mtcclient"
	SubjectReadyHwmond    = "ready.hwmond"
	SubjectReadyGuest     = "ready.guest"
)

// Alarm/Log Surface Subjects (C10)
const (
	SubjectAlarmRaise = "alarm.raise"
	SubjectAlarmClear = "alarm.clear"
)

// State-change broadcast subject. Nothing in this module publishes on it;
// internal/restapi's websocket stream is fed by EventHub directly.
const (
	SubjectStateChange = "mtce.statechange"
)

// Queue Groups for Load Balancing
const (
	QueueGroupMtce = "mtce-agent"
)

// Default Timeouts (in milliseconds), mirrored from the command and
// holdoff sections.
const (
	DefaultCmdAckTimeoutMS    = 5000
	DefaultBMCWorkerGraceMS   = 5000
	DefaultBMCKillCooloffMS   = 10000
	DefaultStorageHoldoffMS   = 90000
	DefaultHTTPRequestTimeMS  = 30000
	DefaultTokenRefreshTimeMS = 60000
)

// IPC Error Constants
var (
	// Request/Response errors
	ErrMissingRequiredField = NewIPCError("MISSING_REQUIRED_FIELD", "missing required field")
	ErrMarshalingFailed     = NewIPCError("MARSHALING_FAILED", "marshaling failed")
	ErrUnmarshalingFailed   = NewIPCError("UNMARSHALING_FAILED", "unmarshaling failed")
	ErrResponseTimeout      = NewIPCError("RESPONSE_TIMEOUT", "response timeout")

	// Component errors
	ErrComponentNotFound     = NewIPCError("COMPONENT_NOT_FOUND", "component not found")
	ErrInvalidTrigger        = NewIPCError("INVALID_TRIGGER", "invalid trigger")
	ErrStateTransitionFailed = NewIPCError("STATE_TRANSITION_FAILED", "state transition failed")
	ErrInvalidRequest        = NewIPCError("INVALID_REQUEST", "invalid request")

	// Service errors
	ErrInternalError = NewIPCError("INTERNAL_ERROR", "internal error")
)

// IPCError represents a structured IPC error.
type IPCError struct {
	Code    string
	Message string
}

func (e *IPCError) Error() string {
	return e.Message
}

// NewIPCError creates a new IPC error.
func NewIPCError(code, message string) *IPCError {
	return &IPCError{
		Code:    code,
		Message: message,
	}
}

// ParseSubject splits a subject into group and endpoint components for NATS
// micro registration. For subjects like "node.add", it returns group="node"
// and endpoint="add". Returns an error if the subject doesn't contain
// exactly one dot or if either component is empty.
func ParseSubject(subject string) (group, endpoint string, err error) {
	if subject == "" {
		return "", "", NewIPCError("INVALID_SUBJECT", "subject cannot be empty")
	}

	parts := strings.Split(subject, ".")
	if len(parts) != 2 {
		return "", "", NewIPCError("INVALID_SUBJECT", fmt.Sprintf("subject %s must contain exactly one dot", subject))
	}

	group = strings.TrimSpace(parts[0])
	endpoint = strings.TrimSpace(parts[1])

	if group == "" {
		return "", "", NewIPCError("INVALID_SUBJECT", "group component cannot be empty")
	}

	if endpoint == "" {
		return "", "", NewIPCError("INVALID_SUBJECT", "endpoint component cannot be empty")
	}

	return group, endpoint, nil
}

// RegisterEndpointWithParsedSubject parses an IPC subject and returns the
// group and endpoint names for use with NATS micro registration. This
// ensures services use IPC constants consistently and follow the
// group.endpoint pattern.
//
// Example usage:
//
//	group, endpoint, err := ipc.RegisterEndpointWithParsedSubject(ipc.SubjectNodeAdd)
//	if err != nil {
//	    return err
//	}
//	nodeGroup := service.AddGroup(group)
//	return nodeGroup.AddEndpoint(endpoint, handler)
func RegisterEndpointWithParsedSubject(subject string) (group, endpoint string, err error) {
	return ParseSubject(subject)
}

// RegisterEndpointWithGroupCache registers an endpoint by parsing the IPC
// subject and managing group creation. This helper reduces boilerplate by
// automatically creating and caching groups as needed.
//
// Example usage:
//
//	groups := make(map[string]micro.Group)
//	err := ipc.RegisterEndpointWithGroupCache(service, ipc.SubjectNodeAdd, handler, groups)
func RegisterEndpointWithGroupCache(service micro.Service, subject string, handler micro.Handler, groups map[string]micro.Group) error {
	groupName, endpointName, err := ParseSubject(subject)
	if err != nil {
		return fmt.Errorf("failed to parse subject %s: %w", subject, err)
	}

	// Get or create group
	group, exists := groups[groupName]
	if !exists {
		group = service.AddGroup(groupName)
		groups[groupName] = group
	}

	// Register endpoint
	if err := group.AddEndpoint(endpointName, handler); err != nil {
		return fmt.Errorf("failed to register endpoint %s in group %s: %w", endpointName, groupName, err)
	}

	return nil
}
