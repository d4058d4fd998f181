package domain

import "fmt"

// RegistrationState is a node of the registration workflow.
//
//	submitted -> blocked
//	submitted -> pending_approval -> denied
//	                              -> pending_confirmation
//	submitted -> pending_confirmation -> confirmed
//
// Only pending_approval, pending_confirmation and confirmed are ever stored.
type RegistrationState string

const (
	StateSubmitted           RegistrationState = "submitted"
	StateBlocked             RegistrationState = "blocked"
	StatePendingApproval     RegistrationState = "pending_approval"
	StatePendingConfirmation RegistrationState = "pending_confirmation"
	StateConfirmed           RegistrationState = "confirmed"
	StateDenied              RegistrationState = "denied"
)

var transitions = map[RegistrationState][]RegistrationState{
	StateSubmitted:           {StateBlocked, StatePendingApproval, StatePendingConfirmation},
	StatePendingApproval:     {StateDenied, StatePendingConfirmation},
	StatePendingConfirmation: {StateConfirmed},
}

func CanTransition(from, to RegistrationState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to if the workflow allows moving there from s.
func (s RegistrationState) Transition(to RegistrationState) (RegistrationState, error) {
	if !CanTransition(s, to) {
		return s, fmt.Errorf("invalid registration transition %s -> %s", s, to)
	}
	return to, nil
}

// Persisted reports whether a user row exists in this state.
func (s RegistrationState) Persisted() bool {
	switch s {
	case StatePendingApproval, StatePendingConfirmation, StateConfirmed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RegistrationState) Terminal() bool {
	return len(transitions[s]) == 0
}
