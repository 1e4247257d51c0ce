// SPDX-License-Identifier: BSD-3-Clause

package alarm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mtce-project/mtce-agent/pkg/ipc"
)

// natsEvent is the wire shape published on ipc.SubjectAlarmRaise/Clear.
type natsEvent struct {
	ID           ID       `json:"id"`
	Hostname     string   `json:"hostname"`
	SubEntity    string   `json:"sub_entity,omitempty"`
	Severity     Severity `json:"severity"`
	ReasonText   string   `json:"reason_text,omitempty"`
	RepairAction string   `json:"repair_action,omitempty"`
}

// NATSPublisher publishes alarm transitions over an existing NATS
// connection using plain nc.Publish calls for fire-and-forget event
// subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher wraps an established NATS connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) PublishRaise(ctx context.Context, id ID, entity Entity, sev Severity, reasonText, repairAction string) error {
	payload, err := json.Marshal(natsEvent{
		ID:           id,
		Hostname:     entity.Hostname,
		SubEntity:    entity.SubEntity,
		Severity:     sev,
		ReasonText:   reasonText,
		RepairAction: repairAction,
	})
	if err != nil {
		return fmt.Errorf("alarm: marshaling raise event: %w", err)
	}
	return p.nc.Publish(ipc.SubjectAlarmRaise, payload)
}

func (p *NATSPublisher) PublishClear(ctx context.Context, id ID, entity Entity) error {
	payload, err := json.Marshal(natsEvent{
		ID:        id,
		Hostname:  entity.Hostname,
		SubEntity: entity.SubEntity,
		Severity:  Clear,
	})
	if err != nil {
		return fmt.Errorf("alarm: marshaling clear event: %w", err)
	}
	return p.nc.Publish(ipc.SubjectAlarmClear, payload)
}
