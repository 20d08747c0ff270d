package pbs

import (
	"fmt"
	"strings"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
)

// JobSpec describes a unit of work before submission. It is filled from
// command-line flags, normalized once by Normalize, and not mutated
// afterwards.
type JobSpec struct {
	// Resource request
	CPUs          int
	MemGB         int // 0 means default from CPUs * config mem-per-cpu ratio
	WalltimeHours int // clamped to config.Global.MaxWalltimeHours
	GPUs          int
	GPUType       string // must be one of config.Global.GpuTypes when set
	Queue         string

	// Payload: exactly one of Command or Script must be set
	Command []string // literal command line, token sequence
	Script  string   // path to a script file run through bash

	// Modifiers
	Name         string
	ArraySpec    string   // e.g. "1-100"
	Dependencies []string // job IDs that must complete successfully first
	Extras       []string // arbitrary extra scheduler directives, emitted verbatim

	// Chunking: splits a newline-delimited command list from CommandFile
	// into sub-jobs. Chunked submissions always run in background mode.
	CommandFile string
	ChunkNum    int
	ChunkSize   int

	// Behavior
	NoEmail      bool
	Background   bool
	DryRun       bool
	UseLogDir    bool
	ScratchDirs  []string // directories copied to shared scratch before execution
	TmpDirs      []string // directories copied to node-local tmp before execution
	PollInterval time.Duration
}

// Chunked reports whether this spec describes a chunked command-file
// submission.
func (s *JobSpec) Chunked() bool {
	return s.ChunkNum > 0 || s.ChunkSize > 0
}

// Normalize validates the spec and fills derived defaults. It must be
// called once before BuildScript or Submit.
func (s *JobSpec) Normalize() error {
	if len(s.Command) > 0 && s.Script != "" {
		return ErrConflictingPayload
	}
	if len(s.Command) == 0 && s.Script == "" && s.CommandFile == "" {
		return ErrMissingPayload
	}

	if s.Chunked() != (s.CommandFile != "") {
		return ErrMissingChunkSpec
	}
	if s.ChunkNum > 0 && s.ChunkSize > 0 {
		return fmt.Errorf("%w: --chunk-num and --chunk-size are mutually exclusive", ErrMissingChunkSpec)
	}

	if s.CPUs <= 0 {
		s.CPUs = 1
	}
	if s.MemGB <= 0 {
		s.MemGB = s.CPUs * config.Global.MemPerCPUGB
	}
	if s.WalltimeHours <= 0 {
		s.WalltimeHours = 1
	}
	if max := config.Global.MaxWalltimeHours; max > 0 && s.WalltimeHours > max {
		utils.PrintWarning("Requested walltime %dh exceeds the platform maximum; clamping to %dh",
			s.WalltimeHours, max)
		s.WalltimeHours = max
	}

	if s.GPUType != "" {
		if err := validateGpuType(s.GPUType); err != nil {
			return err
		}
		if s.GPUs <= 0 {
			s.GPUs = 1
		}
	}

	if s.Queue == "" {
		s.Queue = config.Global.DefaultQueue
	}
	if s.Name == "" {
		s.Name = defaultJobName(s)
	}

	// Chunked batches are fire and forget: nothing ever polls a set of
	// chunks to completion.
	if s.Chunked() {
		s.Background = true
	}

	if s.PollInterval <= 0 {
		s.PollInterval = config.Global.PollInterval
	}

	return nil
}

// validateGpuType checks the tag against the configured set. The set is
// cluster configuration, not a hard-coded enumeration.
func validateGpuType(tag string) error {
	for _, known := range config.Global.GpuTypes {
		if strings.EqualFold(tag, known) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (configured types: %s)",
		ErrUnknownGpuType, tag, strings.Join(config.Global.GpuTypes, ", "))
}

// defaultJobName derives a job name from the payload.
func defaultJobName(s *JobSpec) string {
	if s.Script != "" {
		base := s.Script
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		return base
	}
	if len(s.Command) > 0 {
		name := s.Command[0]
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		return name
	}
	return "mqsub"
}

// ChunkName derives the deterministic job name for a 1-based chunk index.
func ChunkName(base string, index int) string {
	return fmt.Sprintf("%s_c%d", base, index)
}
