// Package report turns finished-job results into terminal and email
// reports: exit-code classification, segregated log directories, and
// sendmail delivery.
package report

import "fmt"

// Classification is the human-readable category for a job exit status.
type Classification struct {
	Label  string // short form, used in email subjects
	Detail string // one-line explanation for the terminal log and body
}

// Classify maps a scheduler-reported exit status to a failure class.
// The specific codes are the ones PBS produces for scheduler-enforced
// kills (signal number + 128, or + 256 when reported by the server) and
// negative statuses for jobs the execution host failed to start.
func Classify(exitStatus int) Classification {
	switch {
	case exitStatus == 0:
		return Classification{"succeeded", "Job completed successfully"}
	case exitStatus < 0:
		return Classification{"failed (system fault)",
			"Job never ran: the execution host rejected or failed to start it"}
	case exitStatus == 271:
		return Classification{"failed (walltime expired)",
			"Job exceeded its requested walltime and was terminated by the scheduler"}
	case exitStatus == 137 || exitStatus == 265:
		return Classification{"failed (out of memory)",
			"Job was killed (SIGKILL), most often by the out-of-memory handler"}
	case exitStatus == 139:
		return Classification{"failed (segmentation fault)",
			"Job crashed with a segmentation fault (SIGSEGV)"}
	case exitStatus == 134:
		return Classification{"failed (aborted)",
			"Job aborted and may have dumped core (SIGABRT)"}
	default:
		return Classification{
			fmt.Sprintf("failed (exit status %d)", exitStatus),
			fmt.Sprintf("Job exited with non-zero status %d", exitStatus),
		}
	}
}
