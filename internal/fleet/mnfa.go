// SPDX-License-Identifier: BSD-3-Clause

package fleet

import (
	"time"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/config"
)

// MNFA tracks the fleet-wide count of currently in-trouble hosts per
// heartbeat interface and enters multi-node-failure-avoidance once the
// count crosses a configured threshold (§4.9). While active, individual
// heartbeat failures are suppressed — no reset/degrade on a single host —
// for a configurable recovery window.
type MNFA struct {
	cfg config.MNFA

	recoveryWindow time.Duration
	active         map[registry.HeartbeatNetwork]bool
	enteredAt      map[registry.HeartbeatNetwork]time.Time
	clearedAt      map[registry.HeartbeatNetwork]time.Time
}

// NewMNFA builds an MNFA tracker from the resolved threshold config and
// recovery window (cfg.Timeouts.MNFARecovery).
func NewMNFA(cfg config.MNFA, recoveryWindow time.Duration) *MNFA {
	return &MNFA{
		cfg:            cfg,
		recoveryWindow: recoveryWindow,
		active:         make(map[registry.HeartbeatNetwork]bool),
		enteredAt:      make(map[registry.HeartbeatNetwork]time.Time),
		clearedAt:      make(map[registry.HeartbeatNetwork]time.Time),
	}
}

// Advance re-evaluates the in-trouble count for every heartbeat network
// against the current registry snapshot, entering or exiting MNFA per
// network as the threshold crosses.
func (m *MNFA) Advance(nodes []*registry.Node, now time.Time) {
	for _, network := range []registry.HeartbeatNetwork{registry.HeartbeatMgmt, registry.HeartbeatCluster} {
		enabled, trouble := m.countLocked(nodes, network)

		if m.active[network] {
			// Exit once the trouble count returns to zero, or once the
			// recovery window elapses even if hosts are still flagged —
			// §4.9's two independent exit conditions.
			if trouble == 0 || now.Sub(m.enteredAt[network]) >= m.recoveryWindow {
				m.active[network] = false
				m.clearedAt[network] = now
			}
			continue
		}

		if m.crossesThreshold(trouble, enabled) {
			m.active[network] = true
			m.enteredAt[network] = now
		}
	}
}

func (m *MNFA) countLocked(nodes []*registry.Node, network registry.HeartbeatNetwork) (enabled, trouble int) {
	for _, node := range nodes {
		if node.OperState != registry.OperEnabled {
			continue
		}
		enabled++

		hb, ok := node.Heartbeats[network]
		if ok && (hb.Failure || hb.Degrade) {
			trouble++
		}
	}
	return enabled, trouble
}

func (m *MNFA) crossesThreshold(trouble, enabled int) bool {
	if m.cfg.ThresholdType == "percent" {
		if enabled == 0 {
			return false
		}
		return trouble*100/enabled >= m.cfg.Percent
	}
	return trouble >= m.cfg.Number
}

// Suppressing reports whether individual heartbeat-failure actions on
// network should be suppressed right now.
func (m *MNFA) Suppressing(network registry.HeartbeatNetwork) bool {
	return m.active[network]
}
