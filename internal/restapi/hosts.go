// SPDX-License-Identifier: BSD-3-Clause

package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

// addHostRequest is the body of POST /v1/hosts — an inventory record (§6).
type addHostRequest struct {
	Hostname      string `json:"hostname"`
	UUID          string `json:"uuid"`
	ManagementIP  string `json:"management_ip"`
	MAC           string `json:"mac"`
	ClusterHostIP string `json:"cluster_host_ip"`
	PxebootIP     string `json:"pxeboot_ip"`
	Personality   string `json:"personality"`
	Subfunction   string `json:"subfunction"`
	NodeType      uint32 `json:"node_type"`
}

// patchHostRequest is the sparse body of PATCH /v1/hosts/<uuid>. Exactly
// one of Severity, Action or a bare inventory-field set is expected to be
// populated per request, per which caller sent it (§6).
type patchHostRequest struct {
	Hostname      *string `json:"hostname,omitempty"`
	ManagementIP  *string `json:"management_ip,omitempty"`
	MAC           *string `json:"mac,omitempty"`
	ClusterHostIP *string `json:"cluster_host_ip,omitempty"`
	PxebootIP     *string `json:"pxeboot_ip,omitempty"`
	Personality   *string `json:"personality,omitempty"`
	Subfunction   *string `json:"subfunction,omitempty"`

	// Action is a sysinv/sm administrative action: lock, unlock, reset,
	// reboot, reinstall, power-off, power-on, powercycle, swact,
	// force-lock, recover.
	Action *string `json:"action,omitempty"`

	// Severity is the VIM severity sub-protocol of §6: only "failed" is
	// accepted; "degraded"/"cleared" are rejected with a fixed 405.
	Severity *string `json:"severity,omitempty"`

	// NodeType only matters when the patch is promoted to an add (§3's
	// registry operation table) because the uuid names no existing host.
	NodeType *uint32 `json:"node_type,omitempty"`
}

// hostSummary is the JSON rendering of a node returned to callers.
type hostSummary struct {
	UUID          string `json:"uuid"`
	Hostname      string `json:"hostname"`
	ManagementIP  string `json:"management_ip"`
	MAC           string `json:"mac"`
	ClusterHostIP string `json:"cluster_host_ip"`
	PxebootIP     string `json:"pxeboot_ip"`
	Personality   string `json:"personality"`
	Subfunction   string `json:"subfunction"`
	AdminState    string `json:"admin_state"`
	OperState     string `json:"oper_state"`
	AvailStatus   string `json:"avail_status"`
}

func renderHost(n *registry.Node) hostSummary {
	return hostSummary{
		UUID:          n.UUID,
		Hostname:      n.Hostname,
		ManagementIP:  n.ManagementIP,
		MAC:           n.MAC,
		ClusterHostIP: n.ClusterHostIP,
		PxebootIP:     n.PxebootIP,
		Personality:   string(n.Personality),
		Subfunction:   string(n.Subfunction),
		AdminState:    string(n.AdminState),
		OperState:     string(n.OperState),
		AvailStatus:   string(n.AvailStatus),
	}
}

// combinedState renders the "<admin>-<oper>-<avail>" operator-facing string
// scenario walkthroughs use, e.g. "unlocked-enabled-available".
func combinedState(n *registry.Node) string {
	return fmt.Sprintf("%s-%s-%s", n.AdminState, n.OperState, n.AvailStatus)
}

func (s *Server) handleAddHost(w http.ResponseWriter, r *http.Request) {
	var req addHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeKindError(w, mtcerr.JSONParse)
		return
	}

	in := registry.AddInput{
		Hostname:      req.Hostname,
		UUID:          req.UUID,
		ManagementIP:  req.ManagementIP,
		MAC:           req.MAC,
		ClusterHostIP: req.ClusterHostIP,
		PxebootIP:     req.PxebootIP,
		Personality:   registry.Personality(req.Personality),
		Subfunction:   registry.Subfunction(req.Subfunction),
		NodeType:      req.NodeType,
	}

	h, kind := s.reg.Add(in)
	if kind == mtcerr.ReservedName {
		writeReservedNameError(w, req.Hostname)
		return
	}
	if kind != mtcerr.OK {
		writeKindError(w, kind)
		return
	}

	node, err := s.reg.Get(h)
	if err != nil {
		writeKindError(w, mtcerr.BadState)
		return
	}
	s.log.Info("restapi: host added", "hostname", node.Hostname, "uuid", node.UUID)
	writeJSON(w, http.StatusCreated, renderHost(node))
}

// writeReservedNameError renders the scenario-5 reserved-hostname rejection
// with its exact operator-facing text, instead of the generic table entry's
// unparameterized reason.
func writeReservedNameError(w http.ResponseWriter, hostname string) {
	resp := mtcerr.REST(mtcerr.ReservedName)
	resp.Reason = registry.ReservedNameError(hostname)
	writeJSON(w, resp.HTTPStatus, resp)
}

func (s *Server) handlePatchHost(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	c, ok := requireCaller(w, r, callerSysinv, callerVIM, callerSM)
	if !ok {
		return
	}

	var req patchHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeKindError(w, mtcerr.JSONParse)
		return
	}

	// Severity and admin-action patches act on a live host; only a bare
	// inventory patch may be promoted to an add for a uuid no host owns yet.
	if req.Severity != nil || req.Action != nil {
		node, err := s.reg.GetByUUID(uuid)
		if err != nil {
			writeKindError(w, mtcerr.UnknownHostname)
			return
		}
		if req.Severity != nil {
			s.handleVIMSeverity(w, node, c, *req.Severity)
		} else {
			s.handleAdminAction(w, node, c, *req.Action)
		}
		return
	}

	s.handleInventoryModify(w, uuid, req)
}

// handleVIMSeverity implements the VIM severity sub-protocol of §6: only
// "failed" is supported, forcing the host through the disable path without
// the usual lock preconditions. "degraded"/"cleared" are refused.
func (s *Server) handleVIMSeverity(w http.ResponseWriter, node *registry.Node, c caller, severity string) {
	if c != callerVIM {
		writeJSON(w, http.StatusForbidden, map[string]string{"reason": forbiddenCallerReason})
		return
	}
	if severity != "failed" {
		writeKindError(w, mtcerr.UnitActive)
		return
	}

	node.AdminAction = registry.ActionForceLock
	registry.SetStage(s.log, node, registry.StageDisable)
	s.log.Warn("restapi: vim forced host failure", "hostname", node.Hostname)
	if s.events != nil {
		s.events.NotifyStateChange(node)
	}
	writeJSON(w, http.StatusOK, renderHost(node))
}

// adminActionStage maps a PATCH "action" string to the (AdminAction,
// StageKind) pair the dispatcher's stage manager picks up on its next tick.
// "reboot" shares reset's stage, which drives the same reboot-then-BMC-reset
// progression (§4.6's "the canonical example").
func adminActionStage(action string) (registry.AdminAction, registry.StageKind, bool) {
	switch registry.AdminAction(action) {
	case registry.ActionLock:
		return registry.ActionLock, registry.StageDisable, true
	case registry.ActionForceLock:
		return registry.ActionForceLock, registry.StageDisable, true
	case registry.ActionUnlock:
		return registry.ActionUnlock, registry.StageEnable, true
	case registry.ActionReset, registry.ActionReboot:
		return registry.AdminAction(action), registry.StageReset, true
	case registry.ActionReinstall:
		return registry.ActionReinstall, registry.StageReinstall, true
	case registry.ActionPowerOff, registry.ActionPowerOn:
		return registry.AdminAction(action), registry.StagePower, true
	case registry.ActionPowercycle:
		return registry.ActionPowercycle, registry.StagePowercycle, true
	case registry.ActionSwact, registry.ActionForceSwact:
		return registry.AdminAction(action), registry.StageSwact, true
	case registry.ActionRecover:
		return registry.ActionRecover, registry.StageRecovery, true
	default:
		return "", "", false
	}
}

func (s *Server) handleAdminAction(w http.ResponseWriter, node *registry.Node, c caller, action string) {
	newAction, stage, ok := adminActionStage(action)
	if !ok {
		writeKindError(w, mtcerr.BadParm)
		return
	}

	if newAction == registry.ActionLock {
		if kind := s.reg.LockPrecondition(node.Handle); kind != mtcerr.OK {
			writeKindError(w, kind)
			return
		}
	}

	node.AdminAction = newAction
	registry.SetStage(s.log, node, stage)
	s.log.Info("restapi: admin action queued", "hostname", node.Hostname, "action", newAction, "caller", c)
	if s.events != nil {
		s.events.NotifyStateChange(node)
	}
	writeJSON(w, http.StatusAccepted, renderHost(node))
}

func (s *Server) handleInventoryModify(w http.ResponseWriter, uuid string, req patchHostRequest) {
	in := registry.ModifyInput{
		Hostname:      req.Hostname,
		ManagementIP:  req.ManagementIP,
		MAC:           req.MAC,
		ClusterHostIP: req.ClusterHostIP,
		PxebootIP:     req.PxebootIP,
		Subfunction:   (*registry.Subfunction)(req.Subfunction),
		NodeType:      req.NodeType,
	}
	if req.Personality != nil {
		p := registry.Personality(*req.Personality)
		in.Personality = &p
	}

	h, kind := s.reg.ModifyOrAdd(uuid, in)
	if kind == mtcerr.ReservedName {
		writeReservedNameError(w, *req.Hostname)
		return
	}
	if kind != mtcerr.OK {
		writeKindError(w, kind)
		return
	}

	node, err := s.reg.Get(h)
	if err != nil {
		writeKindError(w, mtcerr.BadState)
		return
	}
	s.log.Info("restapi: host inventory modified", "hostname", node.Hostname, "uuid", node.UUID)
	writeJSON(w, http.StatusOK, renderHost(node))
}

func (s *Server) handleDeleteHost(w http.ResponseWriter, r *http.Request) {
	node, err := s.reg.GetByUUID(chi.URLParam(r, "uuid"))
	if err != nil {
		writeKindError(w, mtcerr.UnknownHostname)
		return
	}

	if kind := s.reg.CanDelete(node.Handle); kind != mtcerr.OK {
		writeKindError(w, kind)
		return
	}

	node.AdminAction = registry.ActionDelete
	registry.SetStage(s.log, node, registry.StageDel)
	s.log.Info("restapi: delete queued", "hostname", node.Hostname)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "delete queued"})
}

func (s *Server) handleGetHost(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r, callerVIM); !ok {
		return
	}

	node, err := s.reg.GetByUUID(chi.URLParam(r, "uuid"))
	if err != nil {
		writeKindError(w, mtcerr.UnknownHostname)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": combinedState(node)})
}

// systemInfo is the minimal system summary §6's "GET /v1/systems — VIM-only,
// returns system info" names, reporting a per-personality host count.
type systemInfo struct {
	HostCount       int `json:"host_count"`
	ControllerCount int `json:"controller_count"`
	WorkerCount     int `json:"worker_count"`
	StorageCount    int `json:"storage_count"`
}

func (s *Server) handleGetSystems(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r, callerVIM); !ok {
		return
	}

	info := systemInfo{}
	for _, n := range s.reg.List() {
		info.HostCount++
		switch n.Personality {
		case registry.Controller:
			info.ControllerCount++
		case registry.Worker:
			info.WorkerCount++
		case registry.Storage:
			info.StorageCount++
		}
	}
	writeJSON(w, http.StatusOK, info)
}
