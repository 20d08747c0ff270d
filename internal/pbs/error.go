package pbs

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrJobNotFound indicates the scheduler reports no job with the given identifier
	ErrJobNotFound = errors.New("job not found")

	// ErrSubmissionRejected indicates no job identifier could be parsed from the qsub output
	ErrSubmissionRejected = errors.New("submission rejected: no job identifier in scheduler output")

	// ErrConflictingPayload indicates both an inline command and a script payload were given
	ErrConflictingPayload = errors.New("conflicting payload: both inline command and script specified")

	// ErrMissingPayload indicates neither an inline command nor a script payload was given
	ErrMissingPayload = errors.New("missing payload: specify an inline command or a script")

	// ErrMissingChunkSpec indicates chunk parameters and a command file were not given together
	ErrMissingChunkSpec = errors.New("chunking requires both a command file and --chunk-num or --chunk-size")

	// ErrUnknownState indicates a state code outside the fixed enumeration.
	// This is a programming contract violation, not a recoverable condition.
	ErrUnknownState = errors.New("unknown job state code")

	// ErrUnknownGpuType indicates a GPU type tag not present in the configured set
	ErrUnknownGpuType = errors.New("unknown GPU type")
)

// TransientError indicates a status query failed for scheduler-server
// connectivity reasons. Callers retry these with a fixed back-off; every
// other failure is fatal.
type TransientError struct {
	JobID string // Job being queried (may be empty for bulk queries)
	Err   error  // Underlying command failure
}

func (e *TransientError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("transient scheduler error querying job %s: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("transient scheduler error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient checks if an error is a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ParseError represents malformed scheduler output
type ParseError struct {
	Source string // What was being parsed (e.g., "pbsnodes", "qstat", "qusers")
	Line   int    // Line number where the error occurred (1-based, 0 if unknown)
	Text   string // Offending line content
	Reason string // Reason for parse failure
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error at line %d (%q): %s", e.Source, e.Line, e.Text, e.Reason)
	}
	return fmt.Sprintf("%s parse error: %s", e.Source, e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(source string, line int, text string, reason string) *ParseError {
	return &ParseError{Source: source, Line: line, Text: text, Reason: reason}
}

// IsParseError checks if an error is a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
