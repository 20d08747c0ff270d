package pbs

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
)

// jobIDRe matches a scheduler-assigned identifier on its own line, e.g.
// "1234.pbsserver" or "1234[].pbsserver" for array jobs.
var jobIDRe = regexp.MustCompile(`(?m)^(\d+(\[\])?\.\S+|\d+)\s*$`)

// Submit writes the script to a temp file, hands it to qsub, and parses
// the assigned job identifier from the submit output. The temp file is
// removed before returning; the scheduler keeps its own copy.
func Submit(scriptText string) (*Job, error) {
	tmpFile, err := os.CreateTemp("", "mqsub-*.pbs")
	if err != nil {
		return nil, fmt.Errorf("creating submission script: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(scriptText); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("writing submission script: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("writing submission script: %w", err)
	}

	out, err := runCommand(fmt.Sprintf("%s %s", config.Global.QsubBin, tmpFile.Name()), nil)
	if err != nil {
		return nil, err
	}

	jobID := jobIDRe.FindString(string(out))
	if jobID == "" {
		return nil, fmt.Errorf("%w: %q", ErrSubmissionRejected, string(out))
	}

	return &Job{ID: jobID}, nil
}

// PollOptions configures the submit-and-poll loop. Zero values fall back
// to the global configuration; Fetch and Sleep are seams for tests.
type PollOptions struct {
	Interval time.Duration
	Backoff  time.Duration
	Fetch    func(jobID string) (*JobInfo, error)
	Sleep    func(d time.Duration)
	// Notify receives one line per observed state transition.
	Notify func(format string, a ...interface{})
}

func (o *PollOptions) fill() {
	if o.Interval <= 0 {
		o.Interval = config.Global.PollInterval
	}
	if o.Backoff <= 0 {
		o.Backoff = config.Global.TransientBackoff
	}
	if o.Fetch == nil {
		o.Fetch = FetchJobInfo
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Notify == nil {
		o.Notify = utils.PrintMessage
	}
}

// WaitForJob blocks until the job reaches a terminal state, reporting
// state transitions as they are observed. Transient scheduler failures
// never terminate the loop; they trigger the fixed back-off and a
// retry, with no retry limit (scheduler outages are expected to be
// brief, and the caller's patience is the only cap). Any other query
// failure is fatal and returned as-is.
func WaitForJob(jobID string, opts PollOptions) (*JobInfo, error) {
	opts.fill()

	var lastState JobState
	for {
		info, err := opts.Fetch(jobID)
		if err != nil {
			if IsTransient(err) {
				utils.PrintWarning("Scheduler unreachable (%v); retrying in %s", err, opts.Backoff)
				opts.Sleep(opts.Backoff)
				continue
			}
			return nil, err
		}

		if lastState == "" {
			lastState = info.State
		} else if info.State != lastState {
			if info.State == StateRunning && info.ExecHost != "" {
				opts.Notify("Job %s: %s -> %s on %s", jobID, lastState, info.State, info.ExecHost)
			} else {
				opts.Notify("Job %s: %s -> %s", jobID, lastState, info.State)
			}
			lastState = info.State
		}

		if info.State.Terminal() {
			return info, nil
		}

		opts.Sleep(opts.Interval)
	}
}
