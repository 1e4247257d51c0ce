// SPDX-License-Identifier: BSD-3-Clause

package registry

import "log/slog"

// validStages enumerates every StageKind a node may legally be set to; an
// unrecognized value coerces to StageNone rather than propagating garbage
// into the dispatcher (§3: "illegal new-stage values coerce to a
// kill/reset of that handler").
var validStages = map[StageKind]bool{
	StageNone: true, StageEnable: true, StageDisable: true, StageRecovery: true,
	StageReset: true, StageReinstall: true, StagePower: true, StagePowercycle: true,
	StageOosTest: true, StageInsvTest: true, StageConfig: true, StageAdd: true,
	StageDel: true, StageOffline: true, StageOnline: true, StageSwact: true,
	StageSensor: true, StageSubf: true, StageResetProg: true,
}

// SetStage is the one legal way to change a node's active stage-union
// member. It logs every transition and demotes an unrecognized stage value
// to StageNone rather than letting it reach the dispatcher.
func SetStage(log *slog.Logger, node *Node, stage StageKind) {
	if !validStages[stage] {
		if log != nil {
			log.Warn("registry: illegal stage value coerced to none", "hostname", node.Hostname, "attempted", stage)
		}
		stage = StageNone
	}

	if node.Stage == stage {
		return
	}

	if log != nil {
		log.Debug("registry: stage transition", "hostname", node.Hostname, "from", node.Stage, "to", stage)
	}
	node.Stage = stage
}
