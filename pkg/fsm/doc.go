// SPDX-License-Identifier: BSD-3-Clause

// Package fsm provides a small, thread-safe finite state machine wrapper
// around github.com/qmuntal/stateless, tuned for the maintenance agent's
// per-node stage handlers and compound command sub-FSMs.
//
// # Building a machine
//
//	machine, err := fsm.New(fsm.NewConfig(
//		fsm.WithName("enable:node-17"),
//		fsm.WithStates(
//			fsm.StateDefinition{Name: "start"},
//			fsm.StateDefinition{Name: "goenabled"},
//			fsm.StateDefinition{Name: "enabled"},
//			fsm.StateDefinition{Name: "failed"},
//		),
//		fsm.WithTransition("start", "goenabled", "begin"),
//		fsm.WithActionTransition("goenabled", "enabled", "pass", onEnabled),
//		fsm.WithTransition("goenabled", "failed", "fail"),
//		fsm.WithStateTimeout(90*time.Second),
//	))
//
// # Persistence and broadcast
//
// A machine can be configured with a PersistenceCallback, invoked after
// every committed transition so the owning node record can be updated, and
// a BroadcastCallback, invoked so operator tooling and fleet controllers can
// observe the state change without polling:
//
//	machine.SetPersistenceCallback(func(name, state string) error {
//		return registry.SetStage(nodeID, state)
//	})
//	machine.SetBroadcastCallback(func(name, from, to, trigger string) error {
//		return restapi.PublishStateChange(name, from, to, trigger)
//	})
//
// # Manager
//
// Manager keys a set of machines by name. Neither internal/stage nor
// internal/cmdfsm uses it: each stage handler and compound command holds
// its own *FSM.
package fsm
