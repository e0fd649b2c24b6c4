package onboarding

import (
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/fsm"
)

// Steps mirror domain.OnboardingStep, recast as fsm.State so the shared
// engine can drive them.
const (
	stateLanguage     fsm.State = fsm.State(domain.StepLanguage)
	stateBusinessName fsm.State = fsm.State(domain.StepBusinessName)
	stateOwnerDetails fsm.State = fsm.State(domain.StepOwnerDetails)
	stateAddress      fsm.State = fsm.State(domain.StepAddress)
	stateTaxStatus    fsm.State = fsm.State(domain.StepTaxStatus)
	stateLogo         fsm.State = fsm.State(domain.StepLogo)
	stateSheet        fsm.State = fsm.State(domain.StepSheet)
	stateCounter      fsm.State = fsm.State(domain.StepCounter)
	stateComplete     fsm.State = fsm.State(domain.StepComplete)
)

// triggerAdvance is the single trigger fired once a step's input validates;
// every step accepts the same trigger and moves to the next state in the
// sequence spec.md §4.5 lays out.
const triggerAdvance fsm.Trigger = "advance"

// buildMachine wires the fixed nine-step transition table spec.md §4.5
// describes. Each step accepts exactly one outgoing transition: there is no
// branching, only forward progress driven by the caller validating input
// before firing.
func buildMachine(initial fsm.State) fsm.Machine {
	b := fsm.NewBuilder()
	b.Configure(stateLanguage).Permit(triggerAdvance, stateBusinessName)
	b.Configure(stateBusinessName).Permit(triggerAdvance, stateOwnerDetails)
	b.Configure(stateOwnerDetails).Permit(triggerAdvance, stateAddress)
	b.Configure(stateAddress).Permit(triggerAdvance, stateTaxStatus)
	b.Configure(stateTaxStatus).Permit(triggerAdvance, stateLogo)
	b.Configure(stateLogo).Permit(triggerAdvance, stateSheet)
	b.Configure(stateSheet).Permit(triggerAdvance, stateCounter)
	b.Configure(stateCounter).Permit(triggerAdvance, stateComplete)
	return b.Build(initial)
}
