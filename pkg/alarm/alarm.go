// SPDX-License-Identifier: BSD-3-Clause

// Package alarm implements the alarm/log surface (C10): well-known alarm
// ids raised and cleared against a fault manager for every significant
// per-host state change. Raises are idempotent against the current
// severity; clears are idempotent against an absent alarm.
package alarm

import (
	"context"
	"sync"
)

// Severity is one of the four fault-manager severities, plus Clear for "no
// alarm currently raised".
type Severity int

const (
	Clear Severity = iota
	Warning
	Minor
	Major
	Critical
)

func (s Severity) String() string {
	switch s {
	case Clear:
		return "clear"
	case Warning:
		return "warning"
	case Minor:
		return "minor"
	case Major:
		return "major"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ID is a well-known alarm identifier (§4.10).
type ID string

const (
	OperationallyLocked        ID = "host.locked"
	ConfigFailure              ID = "host.config-failure"
	EnableFailure              ID = "host.enable-failure"
	BoardManagementInaccessible ID = "host.bm-inaccessible"
	CombinedControllerFailure  ID = "host.combined-controller-failure"
	CombinedWorkerFailure      ID = "host.combined-worker-failure"
	Sensor                     ID = "host.sensor"
	SensorGroup                ID = "host.sensor-group"
	SensorConfig               ID = "host.sensor-config"
)

// Entity identifies what an alarm is raised against: a hostname, and for
// sensor alarms a sub-entity name (the sensor or sensor-group).
type Entity struct {
	Hostname  string
	SubEntity string // empty unless the alarm id is sensor-scoped
}

// Publisher emits an alarm state transition to the fault manager. Real
// deployments back this with a NATS publish to SubjectAlarmRaise/Clear
// (see pkg/ipc); tests use a recording fake.
type Publisher interface {
	PublishRaise(ctx context.Context, id ID, entity Entity, sev Severity, reasonText, repairAction string) error
	PublishClear(ctx context.Context, id ID, entity Entity) error
}

type alarmKey struct {
	id ID
	Entity
}

// Surface tracks current severity per (alarm id, entity) and enforces
// idempotence: raising an already-raised alarm at the same severity, or
// clearing an already-clear alarm, does not re-publish.
type Surface struct {
	mu        sync.Mutex
	publisher Publisher
	current   map[alarmKey]Severity
}

// New creates an alarm surface backed by the given publisher.
func New(publisher Publisher) *Surface {
	return &Surface{
		publisher: publisher,
		current:   make(map[alarmKey]Severity),
	}
}

// Raise sets the alarm to the given severity. It is idempotent: raising the
// same id/entity at the same severity it is already at does not re-publish.
// Raising at severity Clear clears the alarm instead.
func (s *Surface) Raise(ctx context.Context, id ID, entity Entity, sev Severity, reasonText, repairAction string) error {
	if sev == Clear {
		return s.clear(ctx, id, entity)
	}

	key := alarmKey{id: id, Entity: entity}

	s.mu.Lock()
	if s.current[key] == sev {
		s.mu.Unlock()
		return nil
	}
	s.current[key] = sev
	s.mu.Unlock()

	return s.publisher.PublishRaise(ctx, id, entity, sev, reasonText, repairAction)
}

// ClearAlarm clears the alarm for the given id/entity. Idempotent against an
// already-clear alarm.
func (s *Surface) ClearAlarm(ctx context.Context, id ID, entity Entity) error {
	return s.clear(ctx, id, entity)
}

func (s *Surface) clear(ctx context.Context, id ID, entity Entity) error {
	key := alarmKey{id: id, Entity: entity}

	s.mu.Lock()
	sev, exists := s.current[key]
	if !exists || sev == Clear {
		s.mu.Unlock()
		return nil
	}
	delete(s.current, key)
	s.mu.Unlock()

	return s.publisher.PublishClear(ctx, id, entity)
}

// Severity returns the current severity for an alarm id/entity, Clear if
// none is raised.
func (s *Surface) Severity(id ID, entity Entity) Severity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sev, ok := s.current[alarmKey{id: id, Entity: entity}]; ok {
		return sev
	}
	return Clear
}
