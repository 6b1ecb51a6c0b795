package transfer

// State 单次转账的状态，按顺序推进，任意状态都可以直接进入 Failed
type State int

const (
	StateIdle              State = 0
	StateValidating        State = 1
	StateResolvingAccounts State = 2
	StateBuilding          State = 3
	StateSigning           State = 4
	StateSubmitting        State = 5
	StateConfirming        State = 6
	StateSucceeded         State = 7
	StateFailed            State = 8
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateValidating:        "validating",
	StateResolvingAccounts: "resolving_accounts",
	StateBuilding:          "building",
	StateSigning:           "signing",
	StateSubmitting:        "submitting",
	StateConfirming:        "confirming",
	StateSucceeded:         "succeeded",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CanTransition 只允许前进一步，或从非终态进入 Failed
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return to == from+1
}
