package pbs

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/shell"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
)

// runCommand is the single seam to the outside world; tests replace it.
var runCommand = shell.Run

// JobInfo is a snapshot of scheduler-reported status for one job.
// It is re-fetched on every query; nothing here is cached.
type JobInfo struct {
	ID           string
	Name         string
	Queue        string
	State        JobState
	ExecHost     string
	WalltimeUsed time.Duration
	CPUPercent   int
	CPUTime      time.Duration
	VmemKB       int64
	OutputPath   string
	ErrorPath    string
	ExitStatus   *int // only meaningful once State is terminal
}

// Job is a handle to a scheduler-accepted job. The identifier is opaque
// and globally unique at a point in time.
type Job struct {
	ID string
}

// Info queries the scheduler for the job's current status. Every call
// re-invokes qstat; the handle never caches.
func (j *Job) Info() (*JobInfo, error) {
	return FetchJobInfo(j.ID)
}

// connectivity failure fragments seen from qstat when the server is down
var transientFragments = []string{
	"Connection refused",
	"Communication failure",
	"could not connect",
	"Invalid credential",
	"end of file",
	"Server shutting down",
}

// FetchJobInfo runs a status query for exactly one job identifier and
// parses its structured reply. Returns ErrJobNotFound when the scheduler
// reports no such identifier, and a *TransientError when the command
// fails for connectivity reasons; the polling loop retries the latter
// but never the former.
func FetchJobInfo(jobID string) (*JobInfo, error) {
	out, err := runCommand(fmt.Sprintf("%s -f -x %s", config.Global.QstatBin, jobID), nil)
	if err != nil {
		var ce *shell.CommandError
		if errors.As(err, &ce) {
			combined := ce.Stdout + ce.Stderr
			if strings.Contains(combined, "Unknown Job Id") {
				return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
			}
			for _, fragment := range transientFragments {
				if strings.Contains(combined, fragment) {
					return nil, &TransientError{JobID: jobID, Err: err}
				}
			}
		}
		return nil, err
	}

	blocks, err := ParseBlocks(bytes.NewReader(out), "qstat", "Job Id:")
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	info := jobInfoFromBlock(blocks[0])
	return info, nil
}

func jobInfoFromBlock(block Block) *JobInfo {
	attrs := block.Attrs
	info := &JobInfo{
		ID:         block.Header,
		Name:       attrs["Job_Name"],
		Queue:      attrs["queue"],
		State:      JobState(attrs["job_state"]),
		ExecHost:   attrs["exec_host"],
		OutputPath: stripHostPrefix(attrs["Output_Path"]),
		ErrorPath:  stripHostPrefix(attrs["Error_Path"]),
	}

	if v, ok := attrs["resources_used.walltime"]; ok {
		if d, err := utils.ParseHMSTime(v); err == nil {
			info.WalltimeUsed = d
		}
	}
	if v, ok := attrs["resources_used.cput"]; ok {
		if d, err := utils.ParseHMSTime(v); err == nil {
			info.CPUTime = d
		}
	}
	if v, ok := attrs["resources_used.cpupercent"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			info.CPUPercent = n
		}
	}
	if v, ok := attrs["resources_used.vmem"]; ok {
		if kb, err := NormalizeMemoryKB(v); err == nil {
			info.VmemKB = kb
		}
	}
	if v, ok := attrs["Exit_status"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			info.ExitStatus = &n
		}
	}

	return info
}

// stripHostPrefix removes the "host:" prefix qstat puts on spool paths.
func stripHostPrefix(path string) string {
	if idx := strings.Index(path, ":"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// ResolveLogPaths derives the job's output and error file paths. When a
// segregated log directory was requested at submission time, the spool
// locations are replaced with <dir>/<jobID>.OU and <dir>/<jobID>.ER.
func ResolveLogPaths(info *JobInfo, segregatedDir string) (stdoutPath, stderrPath string) {
	if segregatedDir != "" {
		return filepath.Join(segregatedDir, info.ID+".OU"),
			filepath.Join(segregatedDir, info.ID+".ER")
	}
	return info.OutputPath, info.ErrorPath
}
