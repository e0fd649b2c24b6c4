// Package invoicegen implements the four-step invoice-authoring state
// machine spec.md §4.8 describes, and its "produce" saga. Built on
// internal/fsm the same way internal/onboarding is, sharing the engine
// without sharing any step-specific logic.
package invoicegen

import (
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/fsm"
)

const (
	stateSelectType      fsm.State = fsm.State(domain.GenSelectType)
	stateAwaitingDetails fsm.State = fsm.State(domain.GenAwaitingDetails)
	stateAwaitingPayment fsm.State = fsm.State(domain.GenAwaitingPayment)
	stateConfirming      fsm.State = fsm.State(domain.GenConfirming)
)

const triggerAdvance fsm.Trigger = "advance"

// buildMachine wires the fixed four-step transition table spec.md §4.8
// describes: select_type → awaiting_details → awaiting_payment →
// confirming. "produce" is not itself a state transition; it is the side
// effect Controller.Confirm runs once the session reaches confirming.
func buildMachine(initial fsm.State) fsm.Machine {
	b := fsm.NewBuilder()
	b.Configure(stateSelectType).Permit(triggerAdvance, stateAwaitingDetails)
	b.Configure(stateAwaitingDetails).Permit(triggerAdvance, stateAwaitingPayment)
	b.Configure(stateAwaitingPayment).Permit(triggerAdvance, stateConfirming)
	return b.Build(initial)
}
