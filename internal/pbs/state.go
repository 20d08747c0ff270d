package pbs

import "fmt"

// JobState is the scheduler-reported state code for a job. The set is
// closed; DescribeState fails on anything outside it.
type JobState string

const (
	StateArrayBegun JobState = "B" // array job has started at least one subjob
	StateExiting    JobState = "E" // exiting after having run
	StateFinished   JobState = "F" // finished (terminal)
	StateHeld       JobState = "H" // held by user, operator or system
	StateMoved      JobState = "M" // moved to another server
	StateQueued     JobState = "Q" // queued, eligible to run
	StateRunning    JobState = "R" // running
	StateSuspended  JobState = "S" // suspended by the scheduler
	StateTransiting JobState = "T" // transiting between locations
	StateUserSusp   JobState = "U" // suspended due to workstation user activity
	StateWaiting    JobState = "W" // waiting for its execution time
	StateSubjobDone JobState = "X" // array subjob finished (terminal)
)

// Terminal reports whether the job has reached a terminal state.
func (s JobState) Terminal() bool {
	return s == StateFinished || s == StateSubjobDone
}

// DescribeState maps each state code to an explanatory string. A code
// outside the fixed enumeration returns ErrUnknownState; callers treat
// that as a contract violation, not a recoverable condition.
func DescribeState(s JobState) (string, error) {
	switch s {
	case StateArrayBegun:
		return "Array job has begun (at least one subjob started)", nil
	case StateExiting:
		return "Job is exiting after having run", nil
	case StateFinished:
		return "Job is finished", nil
	case StateHeld:
		return "Job is held by the user, an operator, or the system", nil
	case StateMoved:
		return "Job was moved to another server", nil
	case StateQueued:
		return "Job is queued and eligible to run", nil
	case StateRunning:
		return "Job is running", nil
	case StateSuspended:
		return "Job was suspended by the scheduler to free resources", nil
	case StateTransiting:
		return "Job is in transit between locations", nil
	case StateUserSusp:
		return "Job is suspended due to workstation user activity", nil
	case StateWaiting:
		return "Job is waiting for its requested execution time", nil
	case StateSubjobDone:
		return "Array subjob is finished", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownState, string(s))
	}
}
