package pbs

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
)

// JobRecord is one job from the bulk qstat listing. Array subjobs appear
// individually (qstat -f -t).
type JobRecord struct {
	ID           string
	Name         string
	Owner        string
	Queue        string
	State        JobState
	CPUs         int
	GPUs         int
	MemRequestKB int64
	MemUsedKB    int64
	CPUPercent   int
	WalltimeReq  time.Duration
	WalltimeUsed time.Duration
}

// RemainingWalltime is the requested wall time minus what has already
// been used, floored at zero. A job that has not started has used
// nothing, so nothing is deducted.
func (j *JobRecord) RemainingWalltime() time.Duration {
	remaining := j.WalltimeReq - j.WalltimeUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingCPUSeconds is requested CPUs times remaining wall time, the
// quantity the ETA estimate is built from.
func (j *JobRecord) RemainingCPUSeconds() int64 {
	return int64(j.CPUs) * int64(j.RemainingWalltime().Seconds())
}

// QueryJobs runs the bulk job listing and parses the reply. Array
// subjobs are expanded (-t).
func QueryJobs() ([]JobRecord, error) {
	out, err := runCommand(fmt.Sprintf("%s -f -t", config.Global.QstatBin), nil)
	if err != nil {
		return nil, err
	}
	return ParseJobs(bytes.NewReader(out))
}

// ParseJobs parses qstat -f output: a sequence of blocks each beginning
// with a "Job Id:" line. Memory fields are normalized to kilobytes;
// an unrecognized memory unit is a fatal parse error.
func ParseJobs(r io.Reader) ([]JobRecord, error) {
	blocks, err := ParseBlocks(r, "qstat", "Job Id:")
	if err != nil {
		return nil, err
	}

	jobs := make([]JobRecord, 0, len(blocks))
	for _, block := range blocks {
		attrs := block.Attrs
		job := JobRecord{
			ID:         block.Header,
			Name:       attrs["Job_Name"],
			Owner:      ownerName(attrs),
			Queue:      attrs["queue"],
			State:      JobState(attrs["job_state"]),
			CPUs:       intAttr(attrs, "Resource_List.ncpus"),
			GPUs:       intAttr(attrs, "Resource_List.ngpus"),
			CPUPercent: intAttr(attrs, "resources_used.cpupercent"),
		}

		if v, ok := attrs["Resource_List.mem"]; ok {
			kb, err := NormalizeMemoryKB(v)
			if err != nil {
				return nil, err
			}
			job.MemRequestKB = kb
		}
		if v, ok := attrs["resources_used.mem"]; ok {
			kb, err := NormalizeMemoryKB(v)
			if err != nil {
				return nil, err
			}
			job.MemUsedKB = kb
		}
		if v, ok := attrs["Resource_List.walltime"]; ok {
			d, err := utils.ParseHMSTime(v)
			if err != nil {
				return nil, NewParseError("qstat", 0, v, "bad walltime: "+err.Error())
			}
			job.WalltimeReq = d
		}
		if v, ok := attrs["resources_used.walltime"]; ok {
			d, err := utils.ParseHMSTime(v)
			if err != nil {
				return nil, NewParseError("qstat", 0, v, "bad walltime: "+err.Error())
			}
			job.WalltimeUsed = d
		}

		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ownerName extracts the bare username: euser when the server exposes
// it, otherwise Job_Owner with the @host suffix cut off.
func ownerName(attrs map[string]string) string {
	if u, ok := attrs["euser"]; ok && u != "" {
		return u
	}
	owner := attrs["Job_Owner"]
	if idx := strings.Index(owner, "@"); idx >= 0 {
		return owner[:idx]
	}
	return owner
}

// JobStats are aggregate counts over a job set plus the derived ETA.
type JobStats struct {
	Total   int
	Running int
	Queued  int
	Held    int
	Other   int

	RunningCPUs         int
	RunningGPUs         int
	RemainingCPUSeconds int64
	ETASeconds          int64
}

// StatePercent returns count/total as a percentage (0 for an empty set).
func (s *JobStats) StatePercent(count int) float64 {
	return percent(float64(count), float64(s.Total))
}

// SummarizeJobs computes state counts and the fleet ETA. The ETA is
// total remaining CPU-seconds divided by currently running CPUs; with
// nothing running it is 0, never a division error.
func SummarizeJobs(jobs []JobRecord) JobStats {
	var stats JobStats
	stats.Total = len(jobs)

	for i := range jobs {
		j := &jobs[i]
		switch j.State {
		case StateRunning:
			stats.Running++
			stats.RunningCPUs += j.CPUs
			stats.RunningGPUs += j.GPUs
			stats.RemainingCPUSeconds += j.RemainingCPUSeconds()
		case StateQueued, StateWaiting:
			stats.Queued++
			stats.RemainingCPUSeconds += j.RemainingCPUSeconds()
		case StateHeld:
			stats.Held++
		default:
			stats.Other++
		}
	}

	stats.ETASeconds = ETASeconds(stats.RemainingCPUSeconds, stats.RunningCPUs)
	return stats
}

// ETASeconds estimates time to drain remaining work: remaining
// CPU-seconds over running CPUs, 0 when nothing is running.
func ETASeconds(remainingCPUSeconds int64, runningCPUs int) int64 {
	if runningCPUs <= 0 {
		return 0
	}
	return remainingCPUSeconds / int64(runningCPUs)
}
