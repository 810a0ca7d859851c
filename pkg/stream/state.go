package stream

import "time"

// State of a Supervisor run.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateBackingOff
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackingOff:
		return "backing_off"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Termination says why a run ended.
type Termination int

const (
	TerminationNone Termination = iota
	TerminationCancelled
	TerminationRetryBudgetExhausted
	TerminationFatal
)

func (t Termination) String() string {
	switch t {
	case TerminationNone:
		return "none"
	case TerminationCancelled:
		return "cancelled"
	case TerminationRetryBudgetExhausted:
		return "retry_budget_exhausted"
	case TerminationFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Transition is passed to the state hook on every state change.
type Transition struct {
	From State
	To   State
	// Attempt is the retry counter after the transition.
	Attempt int
	// Delay is the backoff wait, set when entering StateBackingOff.
	Delay time.Duration
	// Termination is set when entering StateTerminated.
	Termination Termination
	// Err is the cause of a backoff or of a failed termination.
	Err error
}

// StateHook observes transitions. It runs on the streaming goroutine.
type StateHook func(Transition)
