// SPDX-License-Identifier: BSD-3-Clause

package workqueue

import (
	"encoding/json"
	"fmt"
	"time"
)

// patchOp is one element of the canonical inventory PATCH body: a
// JSON-patch-shaped {path, value} replace operation.
type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func replacePatch(pairs ...patchOp) []byte {
	for i := range pairs {
		pairs[i].Op = "replace"
	}
	body, _ := json.Marshal(pairs)
	return body
}

// UpdateTask builds a non-critical-by-default task-string patch body.
func UpdateTask(hostname, task string) Request {
	return Request{
		Target:       TargetInventory,
		Method:       "PATCH",
		URLTemplate:  fmt.Sprintf("/v1/ihosts/%s", hostname),
		Body:         replacePatch(patchOp{Path: "/task", Value: task}),
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  true,
		OperationTag: "update_task",
		LogPrefix:    hostname,
	}
}

// ForceTask is UpdateTask's critical counterpart: retried to exhaustion
// rather than logged-and-dropped on failure.
func ForceTask(hostname, task string) Request {
	r := UpdateTask(hostname, task)
	r.NonCritical = false
	r.OperationTag = "force_task"
	return r
}

// UpdateUptime is always non-critical — losing an uptime sample is
// harmless, matching the request's explicit critical/non-critical classification.
func UpdateUptime(hostname string, uptime uint32) Request {
	return Request{
		Target:       TargetInventory,
		Method:       "PATCH",
		URLTemplate:  fmt.Sprintf("/v1/ihosts/%s", hostname),
		Body:         replacePatch(patchOp{Path: "/uptime", Value: uptime}),
		Timeout:      10 * time.Second,
		MaxRetries:   1,
		NonCritical:  true,
		OperationTag: "update_uptime",
		LogPrefix:    hostname,
	}
}

// UpdateValue patches an arbitrary single inventory attribute.
func UpdateValue(hostname, key string, value any) Request {
	return Request{
		Target:       TargetInventory,
		Method:       "PATCH",
		URLTemplate:  fmt.Sprintf("/v1/ihosts/%s", hostname),
		Body:         replacePatch(patchOp{Path: "/" + key, Value: value}),
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "update_value",
		LogPrefix:    hostname,
	}
}

// UpdateState patches a single lifecycle field (one of adminState/
// operState/availStatus) to value.
func UpdateState(hostname, state string, value any) Request {
	return Request{
		Target:       TargetInventory,
		Method:       "PATCH",
		URLTemplate:  fmt.Sprintf("/v1/ihosts/%s", hostname),
		Body:         replacePatch(patchOp{Path: "/" + state, Value: value}),
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "update_state",
		LogPrefix:    hostname,
	}
}

// UpdateStates patches admin/oper/avail together in one request.
func UpdateStates(hostname string, admin, oper, avail string) Request {
	return Request{
		Target:      TargetInventory,
		Method:      "PATCH",
		URLTemplate: fmt.Sprintf("/v1/ihosts/%s", hostname),
		Body: replacePatch(
			patchOp{Path: "/administrative", Value: admin},
			patchOp{Path: "/operational", Value: oper},
			patchOp{Path: "/availability", Value: avail},
		),
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "update_states",
		LogPrefix:    hostname,
	}
}

// ForceStates is UpdateStates's critical counterpart.
func ForceStates(hostname string, admin, oper, avail string) Request {
	r := UpdateStates(hostname, admin, oper, avail)
	r.OperationTag = "force_states"
	return r
}

// SubfStates patches the AIO worker-subfunction oper/avail pair.
func SubfStates(hostname string, operSubf, availSubf string) Request {
	return Request{
		Target:      TargetInventory,
		Method:      "PATCH",
		URLTemplate: fmt.Sprintf("/v1/ihosts/%s", hostname),
		Body: replacePatch(
			patchOp{Path: "/subfunction_oper", Value: operSubf},
			patchOp{Path: "/subfunction_avail", Value: availSubf},
		),
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "subf_states",
		LogPrefix:    hostname,
	}
}

// UpdateStatesNow is UpdateStates under the update_states_now operation
// tag, built for Dispatcher.RunBlocking, which sends a request without
// enqueuing it. No handler in this module sends it.
func UpdateStatesNow(hostname string, admin, oper, avail string) Request {
	r := UpdateStates(hostname, admin, oper, avail)
	r.OperationTag = "update_states_now"
	return r
}

// VIMNotification builds a host-state transition notification to VIM.
func VIMNotification(hostname, newState string) Request {
	body, _ := json.Marshal(struct {
		Hostname string `json:"hostname"`
		State    string `json:"state"`
	}{Hostname: hostname, State: newState})

	return Request{
		Target:       TargetVIM,
		Method:       "POST",
		URLTemplate:  "/v1/hosts/state",
		Body:         body,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "vim_notify",
		LogPrefix:    hostname,
	}
}

// SMNotification builds a service-manager failure-event notification.
func SMNotification(hostname, event string) Request {
	body, _ := json.Marshal(struct {
		Hostname string `json:"hostname"`
		Event    string `json:"event"`
	}{Hostname: hostname, Event: event})

	return Request{
		Target:       TargetSM,
		Method:       "POST",
		URLTemplate:  "/v1/sm/events",
		Body:         body,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "sm_notify",
		LogPrefix:    hostname,
	}
}

// KeystoneTokenRefresh builds the blocking-at-startup, enqueued-thereafter
// token refresh request.
func KeystoneTokenRefresh() Request {
	return Request{
		Target:       TargetKeystone,
		Method:       "POST",
		URLTemplate:  "/v3/auth/tokens",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		NonCritical:  false,
		OperationTag: "token_refresh",
		LogPrefix:    "keystone",
	}
}
