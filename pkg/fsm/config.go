// SPDX-License-Identifier: BSD-3-Clause

package fsm

import (
	"context"
	"fmt"
	"time"
)

// StateDefinition describes a single state, including optional entry and
// exit callbacks. They run inside Fire while the machine's lock is held.
type StateDefinition struct {
	Name    string
	OnEntry func(ctx context.Context) error
	OnExit  func(ctx context.Context) error
}

// TransitionDefinition describes a single permitted transition. A nil Guard
// always permits the transition; a non-nil Guard is evaluated at Fire time
// and the transition only proceeds if it returns true. A non-nil Action
// runs once the underlying stateless machine has committed to the new state.
type TransitionDefinition struct {
	From    string
	To      string
	Trigger string
	Guard   GuardFunc
	Action  ActionFunc
}

// GuardFunc determines whether a transition may proceed.
type GuardFunc func(ctx context.Context) bool

// ActionFunc runs after a transition has committed.
type ActionFunc func(ctx context.Context, from, to string) error

// PersistenceCallback is called when state needs to be persisted.
type PersistenceCallback func(machineName, state string) error

// BroadcastCallback is called when state changes need to be broadcast.
type BroadcastCallback func(machineName, previousState, currentState, trigger string) error

// Config holds the configuration for a state machine wrapper.
type Config struct {
	// Name is the unique identifier for the state machine.
	Name string
	// Description provides human-readable information about the state machine.
	Description string
	// InitialState is the starting state of the machine. Defaults to the
	// first entry of States when left empty.
	InitialState string
	// States defines every state the machine can be in.
	States []StateDefinition
	// Transitions defines every permitted transition.
	Transitions []TransitionDefinition
	// StateTimeout bounds how long a single Fire call may take.
	StateTimeout time.Duration
	// EnableTracing wraps Fire calls in an OpenTelemetry span.
	EnableTracing bool
	// PersistState calls PersistenceCallback after every committed transition.
	PersistState bool

	PersistenceCallback PersistenceCallback
	BroadcastCallback   BroadcastCallback
}

// Option configures a state machine.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithName sets the name of the state machine.
func WithName(name string) Option {
	return optionFunc(func(c *Config) { c.Name = name })
}

// WithDescription sets the description of the state machine.
func WithDescription(description string) Option {
	return optionFunc(func(c *Config) { c.Description = description })
}

// WithInitialState sets the initial state of the state machine.
func WithInitialState(state string) Option {
	return optionFunc(func(c *Config) { c.InitialState = state })
}

// WithStates adds one or more states to the state machine.
func WithStates(states ...StateDefinition) Option {
	return optionFunc(func(c *Config) { c.States = append(c.States, states...) })
}

// WithState adds a single named state with optional entry/exit callbacks.
func WithState(name string, onEntry, onExit func(ctx context.Context) error) Option {
	return optionFunc(func(c *Config) {
		c.States = append(c.States, StateDefinition{Name: name, OnEntry: onEntry, OnExit: onExit})
	})
}

// WithTransition adds an unconditional transition.
func WithTransition(from, to, trigger string) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger})
	})
}

// WithGuardedTransition adds a transition with a guard condition.
func WithGuardedTransition(from, to, trigger string, guard GuardFunc) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger, Guard: guard})
	})
}

// WithActionTransition adds a transition with a post-commit action.
func WithActionTransition(from, to, trigger string, action ActionFunc) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger, Action: action})
	})
}

// WithCompleteTransition adds a transition with both a guard and an action.
func WithCompleteTransition(from, to, trigger string, guard GuardFunc, action ActionFunc) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger, Guard: guard, Action: action})
	})
}

// WithStateTimeout sets the maximum duration a Fire call may take.
func WithStateTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *Config) { c.StateTimeout = timeout })
}

// WithTracing enables OpenTelemetry tracing of Fire calls.
func WithTracing(enable bool) Option {
	return optionFunc(func(c *Config) { c.EnableTracing = enable })
}

// WithPersistState enables invoking the persistence callback after every
// committed transition.
func WithPersistState(enable bool) Option {
	return optionFunc(func(c *Config) { c.PersistState = enable })
}

// WithPersistence sets the persistence callback.
func WithPersistence(callback PersistenceCallback) Option {
	return optionFunc(func(c *Config) { c.PersistenceCallback = callback })
}

// WithBroadcast sets the broadcast callback.
func WithBroadcast(callback BroadcastCallback) Option {
	return optionFunc(func(c *Config) { c.BroadcastCallback = callback })
}

// NewConfig creates a new state machine configuration with the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		StateTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt.apply(cfg)
	}

	if cfg.InitialState == "" && len(cfg.States) > 0 {
		cfg.InitialState = cfg.States[0].Name
	}

	return cfg
}

// Validate checks if the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidConfig)
	}

	if c.InitialState == "" {
		return fmt.Errorf("%w: initial state cannot be empty", ErrInvalidConfig)
	}

	if len(c.States) == 0 {
		return fmt.Errorf("%w: at least one state must be defined", ErrInvalidConfig)
	}

	initialStateFound := false
	stateNames := make(map[string]bool, len(c.States))
	for _, s := range c.States {
		if s.Name == "" {
			return fmt.Errorf("%w: state name cannot be empty", ErrInvalidConfig)
		}
		if stateNames[s.Name] {
			return fmt.Errorf("%w: duplicate state name: %s", ErrInvalidConfig, s.Name)
		}
		stateNames[s.Name] = true
		if s.Name == c.InitialState {
			initialStateFound = true
		}
	}

	if !initialStateFound {
		return fmt.Errorf("%w: initial state %s not found in states list", ErrInvalidConfig, c.InitialState)
	}

	for _, t := range c.Transitions {
		if t.From == "" || t.To == "" {
			return fmt.Errorf("%w: transition from and to states cannot be empty", ErrInvalidConfig)
		}
		if t.Trigger == "" {
			return fmt.Errorf("%w: transition trigger cannot be empty", ErrInvalidConfig)
		}
		if !stateNames[t.From] {
			return fmt.Errorf("%w: transition from state %s not found", ErrInvalidConfig, t.From)
		}
		if !stateNames[t.To] {
			return fmt.Errorf("%w: transition to state %s not found", ErrInvalidConfig, t.To)
		}
	}

	if c.StateTimeout <= 0 {
		return fmt.Errorf("%w: state timeout must be positive", ErrInvalidConfig)
	}

	return nil
}
