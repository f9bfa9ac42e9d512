package checkout

// State is a checkout (or business sub-order) state
type State string

const (
	StateDraft       State = "draft"
	StateValidating  State = "validating"
	StateAwaiting    State = "awaiting_shortage_resolution"
	StateReserved    State = "reserved"
	StatePriced      State = "priced"
	StatePlaced      State = "placed"
	StateRollingBack State = "rolling_back"
	StateAborted     State = "aborted"
)

// IsValid checks if the state is known
func (s State) IsValid() bool {
	switch s {
	case StateDraft, StateValidating, StateAwaiting, StateReserved, StatePriced,
		StatePlaced, StateRollingBack, StateAborted:
		return true
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the state is placed or aborted
func (s State) IsTerminal() bool {
	return s == StatePlaced || s == StateAborted
}

// HoldsStock reports whether reservations may be held in this state
func (s State) HoldsStock() bool {
	switch s {
	case StateAwaiting, StateReserved, StatePriced, StateRollingBack:
		return true
	}
	return false
}

// CanTransitionTo checks if the state can transition to the target state.
// Awaiting may loop on itself when a resolution round produces new shortages,
// and reserved may fall back to awaiting while a sibling group waits in
// all-or-nothing mode.
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StateDraft:
		return target == StateValidating || target == StateAborted
	case StateValidating:
		return target == StateReserved || target == StateAwaiting || target == StateRollingBack || target == StateAborted
	case StateAwaiting:
		return target == StateReserved || target == StateAwaiting || target == StateRollingBack || target == StateAborted
	case StateReserved:
		return target == StatePriced || target == StateAwaiting || target == StateRollingBack
	case StatePriced:
		return target == StatePlaced || target == StateRollingBack
	case StateRollingBack:
		return target == StateAborted
	case StatePlaced, StateAborted:
		return false // Terminal states
	}
	return false
}
