// SPDX-License-Identifier: BSD-3-Clause

// Package registry implements the node registry (C3): an ordered collection
// of node records with secondary lookups and the uniqueness/lifecycle
// invariants of §3.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

// MigrationChecker answers whether instance migration off a worker host is
// currently feasible. Real deployments back this with a call to the guest-
// instance/placement collaborator; the Non-goals exclude implementing
// that lifecycle here, so this stays a narrow interface the registry
// consults rather than code it owns.
type MigrationChecker interface {
	CanMigrateInstancesOff(hostname string) bool
}

// AlwaysMigratable is a MigrationChecker that always permits migration,
// used when no placement collaborator is wired (tests, single-node labs).
type AlwaysMigratable struct{}

func (AlwaysMigratable) CanMigrateInstancesOff(string) bool { return true }

// Registry owns every node record and its secondary indices.
type Registry struct {
	mu sync.RWMutex

	nodes map[Handle]*Node

	byHostname map[string]Handle
	byUUID     map[string]Handle
	byIP       map[string]Handle // management IP only, per §3's uniqueness scope
	byMAC      map[string]Handle

	nextHandle Handle
	migration  MigrationChecker
}

// New creates an empty registry.
func New(migration MigrationChecker) *Registry {
	if migration == nil {
		migration = AlwaysMigratable{}
	}
	return &Registry{
		nodes:      make(map[Handle]*Node),
		byHostname: make(map[string]Handle),
		byUUID:     make(map[string]Handle),
		byIP:       make(map[string]Handle),
		byMAC:      make(map[string]Handle),
		migration:  migration,
	}
}

// AddInput carries the fields an add_host call supplies; unset fields take
// their zero value.
type AddInput struct {
	Hostname      string
	UUID          string
	ManagementIP  string
	MAC           string
	ClusterHostIP string
	PxebootIP     string
	Personality   Personality
	Subfunction   Subfunction
	NodeType      uint32
}

// Precheck validates an AddInput against the uniqueness and reserved-name
// invariants without mutating the registry — the §3 "precheck" operation.
func (r *Registry) Precheck(in AddInput) mtcerr.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.precheckLocked(in)
}

func (r *Registry) precheckLocked(in AddInput) mtcerr.Kind {
	if _, exists := r.byHostname[in.Hostname]; exists {
		return mtcerr.DupHostname
	}
	if _, exists := r.byUUID[in.UUID]; exists {
		return mtcerr.DupUUID
	}
	if in.ManagementIP != "" {
		if _, exists := r.byIP[in.ManagementIP]; exists {
			return mtcerr.DupIPAddr
		}
	}
	if in.MAC != "" {
		if _, exists := r.byMAC[in.MAC]; exists {
			return mtcerr.DupMACAddr
		}
	}
	if in.Personality != Controller && in.Personality != Worker && in.Personality != Storage {
		return mtcerr.NodeType
	}
	if reserved, wantPersonality := reservedHostname(in.Hostname); reserved && in.Personality != wantPersonality {
		return mtcerr.ReservedName
	}
	return mtcerr.OK
}

// reservedHostname reports whether hostname is one of the reserved names
// and, if so, which personality it is reserved for (§3: "controller-0 /
// controller-1 ... only when personality is controller; storage-0 ... only
// when personality is storage").
func reservedHostname(hostname string) (reserved bool, personality Personality) {
	switch hostname {
	case "controller-0", "controller-1":
		return true, Controller
	case "storage-0":
		return true, Storage
	default:
		return false, ""
	}
}

// ReservedNameError renders the fixed operator-facing text scenario 5
// requires, for callers building a REST response.
func ReservedNameError(hostname string) string {
	_, personality := reservedHostname(hostname)
	return fmt.Sprintf("Can only add reserved '%s' hostname with personality set to '%s'", hostname, personality)
}

// Add creates a new node record after the precheck passes, returning its
// handle.
func (r *Registry) Add(in AddInput) (Handle, mtcerr.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind := r.precheckLocked(in); kind != mtcerr.OK {
		return 0, kind
	}

	r.nextHandle++
	h := r.nextHandle

	node := &Node{
		Handle:        h,
		Hostname:      in.Hostname,
		UUID:          in.UUID,
		ManagementIP:  in.ManagementIP,
		MAC:           in.MAC,
		ClusterHostIP: in.ClusterHostIP,
		PxebootIP:     in.PxebootIP,
		Personality:   in.Personality,
		Subfunction:   in.Subfunction,
		NodeType:      in.NodeType,
		AdminAction:   ActionAdd,
		AdminState:    AdminLocked,
		OperState:     OperDisabled,
		AvailStatus:   AvailOffline,
		Stage:         StageAdd,
		Heartbeats:    make(map[HeartbeatNetwork]*Heartbeat),
		Alarms:        make(map[string]int),
	}
	node.BMCWorker.Stage = BMCWorkerIdle

	r.nodes[h] = node
	r.byHostname[in.Hostname] = h
	r.byUUID[in.UUID] = h
	if in.ManagementIP != "" {
		r.byIP[in.ManagementIP] = h
	}
	if in.MAC != "" {
		r.byMAC[in.MAC] = h
	}

	return h, mtcerr.OK
}

// ModifyInput is a sparse patch; a nil pointer field means "leave unchanged".
type ModifyInput struct {
	Hostname      *string
	ManagementIP  *string
	MAC           *string
	ClusterHostIP *string
	PxebootIP     *string
	Personality   *Personality
	Subfunction   *Subfunction
	NodeType      *uint32
}

// Modify applies a sparse patch to the node identified by handle, enforcing
// the same uniqueness invariants Add does for any field actually changing.
// handle must already name a live node; callers that only hold a uuid and
// may be addressing a node that doesn't exist yet want ModifyOrAdd instead.
func (r *Registry) Modify(h Handle, in ModifyInput) mtcerr.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[h]
	if !ok {
		return mtcerr.BadParm
	}
	return r.modifyLocked(node, in)
}

// ModifyOrAdd applies a sparse patch to the node registered under uuid, or,
// if none is registered yet, promotes the patch to an add — §3's registry
// operation table: "modify ... node record mutated in place; if absent,
// promoted to add". Promotion needs enough fields to satisfy Add's
// invariants, so it requires at least Hostname and Personality.
func (r *Registry) ModifyOrAdd(uuid string, in ModifyInput) (Handle, mtcerr.Kind) {
	r.mu.Lock()
	h, ok := r.byUUID[uuid]
	if ok {
		node := r.nodes[h]
		kind := r.modifyLocked(node, in)
		r.mu.Unlock()
		return h, kind
	}
	r.mu.Unlock()

	if in.Hostname == nil || in.Personality == nil {
		return 0, mtcerr.BadParm
	}
	add := AddInput{
		Hostname:    *in.Hostname,
		UUID:        uuid,
		Personality: *in.Personality,
	}
	if in.ManagementIP != nil {
		add.ManagementIP = *in.ManagementIP
	}
	if in.MAC != nil {
		add.MAC = *in.MAC
	}
	if in.ClusterHostIP != nil {
		add.ClusterHostIP = *in.ClusterHostIP
	}
	if in.PxebootIP != nil {
		add.PxebootIP = *in.PxebootIP
	}
	if in.Subfunction != nil {
		add.Subfunction = *in.Subfunction
	}
	if in.NodeType != nil {
		add.NodeType = *in.NodeType
	}
	return r.Add(add)
}

func (r *Registry) modifyLocked(node *Node, in ModifyInput) mtcerr.Kind {
	h := node.Handle

	if in.Hostname != nil && *in.Hostname != node.Hostname {
		if reserved, _ := reservedHostname(*in.Hostname); reserved {
			return mtcerr.ReservedName
		}
		if _, exists := r.byHostname[*in.Hostname]; exists {
			return mtcerr.DupHostname
		}
		delete(r.byHostname, node.Hostname)
		r.byHostname[*in.Hostname] = h
		node.Hostname = *in.Hostname
	}
	if in.ManagementIP != nil && *in.ManagementIP != node.ManagementIP {
		if _, exists := r.byIP[*in.ManagementIP]; exists {
			return mtcerr.DupIPAddr
		}
		delete(r.byIP, node.ManagementIP)
		r.byIP[*in.ManagementIP] = h
		node.ManagementIP = *in.ManagementIP
	}
	if in.MAC != nil && *in.MAC != node.MAC {
		if _, exists := r.byMAC[*in.MAC]; exists {
			return mtcerr.DupMACAddr
		}
		delete(r.byMAC, node.MAC)
		r.byMAC[*in.MAC] = h
		node.MAC = *in.MAC
	}
	if in.ClusterHostIP != nil {
		node.ClusterHostIP = *in.ClusterHostIP
	}
	if in.PxebootIP != nil {
		node.PxebootIP = *in.PxebootIP
	}
	if in.Personality != nil {
		node.Personality = *in.Personality
	}
	if in.Subfunction != nil {
		node.Subfunction = *in.Subfunction
	}
	if in.NodeType != nil {
		node.NodeType = *in.NodeType
	}

	return mtcerr.OK
}

// CanDelete reports whether handle may be deleted: the node must be
// administratively locked, and must carry no outstanding timers, BMC
// worker activity or queue entries (§3's destroy-time safety precondition).
func (r *Registry) CanDelete(h Handle) mtcerr.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[h]
	if !ok {
		return mtcerr.BadParm
	}
	if node.AdminState != AdminLocked {
		return mtcerr.DelUnlocked
	}
	if node.BMCWorker.Stage != BMCWorkerIdle {
		return mtcerr.OperInProgress
	}
	if node.HTTPWorkQueue.Len() > 0 || node.CmdWorkQueue.Len() > 0 {
		return mtcerr.OperInProgress
	}
	return mtcerr.OK
}

// Delete removes a node's record and every secondary index entry. Callers
// must call CanDelete first; Delete itself does not re-check safety so the
// del stage handler can perform one atomic precondition-then-unlink step
// under its own lock discipline.
func (r *Registry) Delete(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[h]
	if !ok {
		return
	}
	delete(r.nodes, h)
	delete(r.byHostname, node.Hostname)
	delete(r.byUUID, node.UUID)
	delete(r.byIP, node.ManagementIP)
	delete(r.byMAC, node.MAC)
}

// Get returns the node for handle, or ErrNotFound.
func (r *Registry) Get(h Handle) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[h]
	if !ok {
		return nil, ErrNotFound
	}
	return node, nil
}

// GetByHostname looks up a node by its unique hostname.
func (r *Registry) GetByHostname(hostname string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byHostname[hostname]
	if !ok {
		return nil, ErrNotFound
	}
	return r.nodes[h], nil
}

// GetByUUID looks up a node by its unique uuid.
func (r *Registry) GetByUUID(uuid string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byUUID[uuid]
	if !ok {
		return nil, ErrNotFound
	}
	return r.nodes[h], nil
}

// GetByManagementIP looks up a node by its unique management IP.
func (r *Registry) GetByManagementIP(ip string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byIP[ip]
	if !ok {
		return nil, ErrNotFound
	}
	return r.nodes[h], nil
}

// List returns every node, in ascending handle (insertion) order, matching
// §4.8's "visits the registry in insertion order" dispatcher requirement.
func (r *Registry) List() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// LockPrecondition evaluates whether the node at handle h may be locked, per
// §3's semantic check: "a controller may be locked only if the peer
// controller is enabled and in service; a storage host may be locked only
// if storage-redundancy remains; a worker may be locked only if instance
// migration is feasible."
func (r *Registry) LockPrecondition(h Handle) mtcerr.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[h]
	if !ok {
		return mtcerr.BadParm
	}

	switch node.Personality {
	case Controller:
		if !r.hasEnabledPeerLocked(node, Controller) {
			return mtcerr.SwactNoInsvmate
		}
	case Storage:
		if !r.hasStorageRedundancyLocked(node) {
			return mtcerr.NeedStorageMon
		}
	case Worker:
		if !r.migration.CanMigrateInstancesOff(node.Hostname) {
			return mtcerr.OperInProgress
		}
	}
	return mtcerr.OK
}

func (r *Registry) hasEnabledPeerLocked(self *Node, personality Personality) bool {
	for _, node := range r.nodes {
		if node.Handle == self.Handle || node.Personality != personality {
			continue
		}
		if node.OperState == OperEnabled && node.AvailStatus == AvailAvailable {
			return true
		}
	}
	return false
}

func (r *Registry) hasStorageRedundancyLocked(self *Node) bool {
	count := 0
	for _, node := range r.nodes {
		if node.Handle == self.Handle || node.Personality != Storage {
			continue
		}
		if node.OperState == OperEnabled && node.AvailStatus == AvailAvailable {
			count++
		}
	}
	return count > 0
}
