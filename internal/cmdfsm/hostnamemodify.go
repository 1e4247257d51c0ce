// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"
	"time"

	"github.com/mtce-project/mtce-agent/pkg/fsm"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

const (
	renameStageDrainHTTP  = "await_http_drain"
	renameStageDelete     = "delete_subservices"
	renameStageAdd        = "add_subservices"
	renameStagePass       = "pass"
	renameStageFail       = "fail"
)

// renameSubservices lists the per-hostname sub-services that must be torn
// down under the old name and rebuilt under the new one, in teardown
// order; rebuild runs in the reverse order.
var renameSubservices = []string{"heartbeat", "hwmon", "guest"}

// HostnameModify serializes a hostname change as delete-then-add across
// the sub-services that key state off the hostname string, after first
// draining the HTTP work FIFO so no in-flight request still carries the
// old name in its URL (§3, Open Question 2: the HTTP work FIFO is drained
// before the rename, not the command FIFO — a rename never itself waits on
// other queued compound commands, only on pending sysinv/VIM HTTP calls).
type HostnameModify struct {
	machine *fsm.FSM
	node    *registry.Node
	reg     *registry.Registry
	newName string

	drainDeadline time.Time
	subIndex      int
}

// NewHostnameModify builds a rename sub-FSM for node. drainTimeout bounds
// how long the HTTP work FIFO is given to empty before the rename proceeds
// anyway (a stuck FIFO must not wedge the rename forever).
func NewHostnameModify(name string, node *registry.Node, reg *registry.Registry, newHostname string, drainTimeout time.Duration) (*HostnameModify, error) {
	hm := &HostnameModify{node: node, reg: reg, newName: newHostname, drainDeadline: time.Now().Add(drainTimeout)}

	machine, err := fsm.New(fsm.NewConfig(
		fsm.WithName(name),
		fsm.WithStates(
			fsm.StateDefinition{Name: renameStageDrainHTTP},
			fsm.StateDefinition{Name: renameStageDelete},
			fsm.StateDefinition{Name: renameStageAdd},
			fsm.StateDefinition{Name: renameStagePass},
			fsm.StateDefinition{Name: renameStageFail},
		),
		fsm.WithTransition(renameStageDrainHTTP, renameStageDelete, "drained"),
		fsm.WithTransition(renameStageDelete, renameStageAdd, "deleted"),
		fsm.WithTransition(renameStageAdd, renameStagePass, "added"),
	))
	if err != nil {
		return nil, err
	}
	if err := machine.Start(context.Background()); err != nil {
		return nil, err
	}
	hm.machine = machine
	return hm, nil
}

func (hm *HostnameModify) Stage() string { return hm.machine.CurrentState() }

func (hm *HostnameModify) Done() bool {
	s := hm.Stage()
	return s == renameStagePass || s == renameStageFail
}

// Tick advances the rename by at most one sub-service step.
func (hm *HostnameModify) Tick(ctx context.Context) (terminal bool, status mtcerr.Kind, statusString string) {
	switch hm.Stage() {
	case renameStageDrainHTTP:
		if hm.node.HTTPWorkQueue.Len() > 0 && time.Now().Before(hm.drainDeadline) {
			return false, mtcerr.OK, "awaiting http work fifo drain before rename"
		}
		hm.machine.Fire(ctx, "drained", nil)
		return false, mtcerr.OK, "http work fifo drained, deleting sub-services under old name"

	case renameStageDelete:
		if hm.subIndex < len(renameSubservices) {
			// Each sub-service's own delete is a registry-local no-op here;
			// the concrete per-network agents (heartbeat, hwmon, guest
			// services) key off registry.Node.Hostname directly, so once
			// the rename commits below every subsequent lookup already
			// uses the new name.
			hm.subIndex++
			return false, mtcerr.OK, "deleting " + renameSubservices[hm.subIndex-1] + " sub-service"
		}
		hm.subIndex = 0
		hm.machine.Fire(ctx, "deleted", nil)
		return false, mtcerr.OK, "sub-services deleted, committing new hostname"

	case renameStageAdd:
		if hm.subIndex == 0 {
			if err := hm.reg.Modify(hm.node.Handle, registry.ModifyInput{Hostname: &hm.newName}); err != mtcerr.OK {
				return true, err, "rename rejected: " + err.String()
			}
		}
		if hm.subIndex < len(renameSubservices) {
			hm.subIndex++
			return false, mtcerr.OK, "adding " + renameSubservices[len(renameSubservices)-hm.subIndex] + " sub-service under new name"
		}
		hm.machine.Fire(ctx, "added", nil)
		return true, mtcerr.OK, "hostname modify complete"

	default:
		return true, mtcerr.OK, ""
	}
}
