package fsm

import (
	"context"
	"errors"
	"testing"
)

const (
	stateA State = "A"
	stateB State = "B"
	stateC State = "C"

	triggerNext Trigger = "NEXT"
	triggerSkip Trigger = "SKIP"
)

func buildLinear() Machine {
	b := NewBuilder()
	b.Configure(stateA).Permit(triggerNext, stateB)
	b.Configure(stateB).Permit(triggerNext, stateC)
	return b.Build(stateA)
}

func TestMachine_Fire(t *testing.T) {
	m := buildLinear()

	if m.State() != stateA {
		t.Fatalf("State() = %v, want %v", m.State(), stateA)
	}
	if !m.CanFire(triggerNext) {
		t.Fatal("CanFire(triggerNext) = false, want true")
	}
	if err := m.Fire(context.Background(), triggerNext); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.State() != stateB {
		t.Fatalf("State() = %v, want %v", m.State(), stateB)
	}
}

func TestMachine_Fire_InvalidTransition(t *testing.T) {
	m := buildLinear()

	err := m.Fire(context.Background(), triggerSkip)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want ErrInvalidTransition", err)
	}
}

func TestMachine_PermitIf_GuardFailed(t *testing.T) {
	b := NewBuilder()
	b.Configure(stateA).PermitIf(triggerNext, stateB, func(ctx context.Context) bool { return false })
	m := b.Build(stateA)

	err := m.Fire(context.Background(), triggerNext)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want ErrGuardFailed", err)
	}
	if m.State() != stateA {
		t.Fatalf("State() = %v, want unchanged %v", m.State(), stateA)
	}
}

func TestMachine_PermitIf_FallsThroughToUnguardedAlternative(t *testing.T) {
	b := NewBuilder()
	b.Configure(stateA).
		PermitIf(triggerNext, stateB, func(ctx context.Context) bool { return false }).
		Permit(triggerNext, stateC)
	m := b.Build(stateA)

	if err := m.Fire(context.Background(), triggerNext); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.State() != stateC {
		t.Fatalf("State() = %v, want %v", m.State(), stateC)
	}
}

func TestMachine_PermittedTriggers(t *testing.T) {
	m := buildLinear()

	triggers := m.PermittedTriggers()
	if len(triggers) != 1 || triggers[0] != triggerNext {
		t.Fatalf("PermittedTriggers() = %v, want [%v]", triggers, triggerNext)
	}
}

func TestBuilder_Build_IsolatesSubsequentConfiguration(t *testing.T) {
	b := NewBuilder()
	b.Configure(stateA).Permit(triggerNext, stateB)
	m1 := b.Build(stateA)

	b.Configure(stateA).Permit(triggerSkip, stateC)
	m2 := b.Build(stateA)

	if m1.CanFire(triggerSkip) {
		t.Fatal("m1.CanFire(triggerSkip) = true, want false (built before triggerSkip was configured)")
	}
	if !m2.CanFire(triggerSkip) {
		t.Fatal("m2.CanFire(triggerSkip) = false, want true")
	}
}
