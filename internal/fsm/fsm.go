// Package fsm is a generalized copy of the teacher's
// internal/domain/workflow package: the same builder/configure/permit API,
// generalized from the teacher's fixed approval-lifecycle State/Trigger
// enums to arbitrary string-based state and trigger sets, so it can back
// both the onboarding FSM and the invoice-generation FSM in this repo
// (spec.md §4.5 and §4.8) without duplicating the transition-table engine
// twice.
package fsm

import (
	"context"
	"fmt"
)

// State is one node of a state machine's transition graph.
type State string

// Trigger is an event that can cause a state transition.
type Trigger string

// GuardFunc evaluates whether a transition should be allowed to fire.
type GuardFunc func(ctx context.Context) bool

// Builder accumulates state configurations before producing a Machine.
type Builder interface {
	Configure(state State) StateConfig
	Build(initial State) Machine
}

// StateConfig configures the outgoing transitions of one state.
type StateConfig interface {
	Permit(trigger Trigger, to State) StateConfig
	PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfig
}

// Machine tracks current state and fires triggers against its transition
// table.
type Machine interface {
	State() State
	CanFire(trigger Trigger) bool
	Fire(ctx context.Context, trigger Trigger) error
	PermittedTriggers() []Trigger
}

var (
	// ErrInvalidTransition is returned when a trigger has no configured
	// transition from the current state.
	ErrInvalidTransition = fmt.Errorf("fsm: invalid state transition")
	// ErrGuardFailed is returned when every transition configured for a
	// trigger has a guard that rejected it.
	ErrGuardFailed = fmt.Errorf("fsm: guard condition failed")
)

type transition struct {
	to    State
	guard GuardFunc
}

type stateConfig struct {
	transitions map[Trigger][]transition
}

type builder struct {
	configurations map[State]*stateConfig
}

type machine struct {
	current        State
	configurations map[State]*stateConfig
}

// NewBuilder returns an empty transition-table builder.
func NewBuilder() Builder {
	return &builder{configurations: make(map[State]*stateConfig)}
}

func (b *builder) Configure(state State) StateConfig {
	cfg, ok := b.configurations[state]
	if !ok {
		cfg = &stateConfig{transitions: make(map[Trigger][]transition)}
		b.configurations[state] = cfg
	}
	return cfg
}

func (b *builder) Build(initial State) Machine {
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, cfg := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			transitionsCopy[trigger] = append([]transition{}, ts...)
		}
		configsCopy[state] = &stateConfig{transitions: transitionsCopy}
	}
	return &machine{current: initial, configurations: configsCopy}
}

func (c *stateConfig) Permit(trigger Trigger, to State) StateConfig {
	return c.PermitIf(trigger, to, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfig {
	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}

func (m *machine) State() State { return m.current }

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configurations[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.configurations[m.current]
	if !ok {
		return fmt.Errorf("%w: %s from %s (no configuration)", ErrInvalidTransition, trigger, m.current)
	}
	transitions, ok := cfg.transitions[trigger]
	if !ok || len(transitions) == 0 {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.configurations[m.current]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
