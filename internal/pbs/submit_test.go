package pbs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
)

// scriptedFetcher replays a fixed sequence of query results.
type scriptedFetcher struct {
	results []func() (*JobInfo, error)
	calls   int
}

func (f *scriptedFetcher) fetch(jobID string) (*JobInfo, error) {
	if f.calls >= len(f.results) {
		return nil, fmt.Errorf("unexpected fetch #%d", f.calls+1)
	}
	result := f.results[f.calls]
	f.calls++
	return result()
}

func stateResult(state JobState, host string) func() (*JobInfo, error) {
	return func() (*JobInfo, error) {
		return &JobInfo{ID: "1.server", State: state, ExecHost: host}, nil
	}
}

func transientResult() func() (*JobInfo, error) {
	return func() (*JobInfo, error) {
		return nil, &TransientError{JobID: "1.server", Err: errors.New("Connection refused")}
	}
}

func TestWaitForJobReportsTransitionsOnce(t *testing.T) {
	config.LoadDefaults()

	fetcher := &scriptedFetcher{results: []func() (*JobInfo, error){
		stateResult(StateQueued, ""),
		stateResult(StateQueued, ""),
		stateResult(StateRunning, "node05/0"),
		stateResult(StateRunning, "node05/0"),
		stateResult(StateFinished, "node05/0"),
	}}

	var transitions []string
	info, err := WaitForJob("1.server", PollOptions{
		Interval: time.Millisecond,
		Backoff:  time.Millisecond,
		Fetch:    fetcher.fetch,
		Sleep:    func(time.Duration) {},
		Notify: func(format string, a ...interface{}) {
			transitions = append(transitions, fmt.Sprintf(format, a...))
		},
	})
	if err != nil {
		t.Fatalf("WaitForJob failed: %v", err)
	}
	if info.State != StateFinished {
		t.Errorf("final state = %s; want F", info.State)
	}

	// Q,Q,R,R,F observes exactly two transitions, not five notifications.
	if len(transitions) != 2 {
		t.Fatalf("got %d transition notifications (%v); want 2", len(transitions), transitions)
	}
	if want := "Job 1.server: Q -> R on node05/0"; transitions[0] != want {
		t.Errorf("first transition = %q; want %q", transitions[0], want)
	}
	if want := "Job 1.server: R -> F"; transitions[1] != want {
		t.Errorf("second transition = %q; want %q", transitions[1], want)
	}
}

func TestWaitForJobRetriesTransientErrors(t *testing.T) {
	config.LoadDefaults()

	fetcher := &scriptedFetcher{results: []func() (*JobInfo, error){
		transientResult(),
		transientResult(),
		transientResult(),
		stateResult(StateFinished, ""),
	}}

	backoff := 2 * time.Minute
	var backoffSleeps int
	info, err := WaitForJob("1.server", PollOptions{
		Interval: time.Second,
		Backoff:  backoff,
		Fetch:    fetcher.fetch,
		Sleep: func(d time.Duration) {
			if d == backoff {
				backoffSleeps++
			}
		},
		Notify: func(string, ...interface{}) {},
	})
	if err != nil {
		t.Fatalf("WaitForJob aborted on transient errors: %v", err)
	}
	if info.State != StateFinished {
		t.Errorf("final state = %s; want F", info.State)
	}
	// Fixed back-off applied once per transient failure.
	if backoffSleeps != 3 {
		t.Errorf("back-off slept %d times; want 3", backoffSleeps)
	}
	if fetcher.calls != 4 {
		t.Errorf("fetch called %d times; want 4", fetcher.calls)
	}
}

func TestWaitForJobFatalOnOtherErrors(t *testing.T) {
	config.LoadDefaults()

	fetcher := &scriptedFetcher{results: []func() (*JobInfo, error){
		func() (*JobInfo, error) { return nil, ErrJobNotFound },
	}}

	_, err := WaitForJob("1.server", PollOptions{
		Fetch:  fetcher.fetch,
		Sleep:  func(time.Duration) {},
		Notify: func(string, ...interface{}) {},
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("error = %v; want ErrJobNotFound", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch called %d times; want 1 (no retry on fatal errors)", fetcher.calls)
	}
}

func TestJobIDPattern(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"1234.pbsserver\n", "1234.pbsserver"},
		{"1234[].pbsserver\n", "1234[].pbsserver"},
		{"qsub: waiting for job\n5678.hpc.example.org\n", "5678.hpc.example.org"},
		{"qsub: error, nothing submitted\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			if got := jobIDRe.FindString(tt.output); got != tt.want {
				t.Errorf("jobIDRe on %q = %q; want %q", tt.output, got, tt.want)
			}
		})
	}
}

func TestSubmitRejectsUnparseableOutput(t *testing.T) {
	config.LoadDefaults()

	orig := runCommand
	defer func() { runCommand = orig }()
	runCommand = func(command string, stdin []byte) ([]byte, error) {
		return []byte("something unexpected\n"), nil
	}

	_, err := Submit("#!/bin/bash\ntrue\n")
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Errorf("Submit error = %v; want ErrSubmissionRejected", err)
	}
}

func TestSubmitParsesJobID(t *testing.T) {
	config.LoadDefaults()

	orig := runCommand
	defer func() { runCommand = orig }()
	runCommand = func(command string, stdin []byte) ([]byte, error) {
		return []byte("4242.pbsserver\n"), nil
	}

	job, err := Submit("#!/bin/bash\ntrue\n")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.ID != "4242.pbsserver" {
		t.Errorf("job ID = %q; want 4242.pbsserver", job.ID)
	}
}
