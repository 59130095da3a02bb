package poll

import "fmt"

// State is the lifecycle state of a Loop.
type State int32

const (
	Idle State = iota
	Running
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome is the result of one Loop run. It is produced once, when the loop
// exits, and is either Stopped or Failed.
type Outcome struct {
	Name  string
	State State
	Err   error

	// Ticks and Errors count completed ticks and per-tick fetch errors.
	Ticks  int64
	Errors int64
}

// StoppedOutcome builds a clean-exit outcome.
func StoppedOutcome(name string) Outcome {
	return Outcome{Name: name, State: Stopped}
}

// FailedOutcome builds an outcome for a loop whose task mechanism broke.
func FailedOutcome(name string, err error) Outcome {
	return Outcome{Name: name, State: Failed, Err: err}
}

func (o Outcome) String() string {
	if o.State == Failed {
		return fmt.Sprintf("%s: %s (%v)", o.Name, o.State, o.Err)
	}
	return fmt.Sprintf("%s: %s", o.Name, o.State)
}
