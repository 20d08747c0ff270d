package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/pbs"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/report"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/shell"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"github.com/spf13/cobra"
)

var subFlags struct {
	cpus      int
	memGB     int
	hours     int
	days      int
	weeks     int
	queue     string
	gpus      int
	gpuType   string
	name      string
	array     string
	depend    []string
	directive []string

	script    string
	cmdFile   string
	chunkNum  int
	chunkSize int

	scratch []string
	tmp     []string

	dryRun       bool
	background   bool
	noEmail      bool
	useLogDir    bool
	pollInterval string
}

var subCmd = &cobra.Command{
	Use:   "sub [flags] -- [command...]",
	Short: "Submit a job to the scheduler and wait for it to finish",
	Long: `Submit a job to the PBS/Torque scheduler.

The payload is either an inline command (after --) or a script file
(--script); exactly one must be given. Unless --bg is set, sub polls the
job until it finishes, relays its output and error streams, optionally
emails a completion report, and exits with the job's own exit status.

A command file (--cmd-file) with --chunk-num or --chunk-size splits a
newline-delimited command list into independent sub-jobs; chunked
submissions always run in the background.`,
	Example: `  mq sub -c 4 -t 2 -- samtools sort -@ 4 in.bam
  mq sub -c 16 -m 64 --days 3 --script assemble.sh
  mq sub --cmd-file cmds.txt --chunk-num 8 -c 4
  mq sub --gpus 1 --gpu-type A100 -- python train.py
  mq sub --dry-run -c 2 -- echo hello`,
	RunE: runSub,
}

func init() {
	rootCmd.AddCommand(subCmd)
	f := subCmd.Flags()

	f.IntVarP(&subFlags.cpus, "cpus", "c", 1, "Number of CPUs to request")
	f.IntVarP(&subFlags.memGB, "mem", "m", 0, "Memory in GB (default: CPUs x configured ratio)")
	f.IntVarP(&subFlags.hours, "hours", "t", 0, "Walltime in hours")
	f.IntVar(&subFlags.days, "days", 0, "Walltime in days")
	f.IntVar(&subFlags.weeks, "weeks", 0, "Walltime in weeks")
	f.StringVarP(&subFlags.queue, "queue", "q", "", "Target queue name")
	f.IntVar(&subFlags.gpus, "gpus", 0, "Number of GPUs to request")
	f.StringVar(&subFlags.gpuType, "gpu-type", "", "GPU type tag (see config gpu_types)")
	f.StringVarP(&subFlags.name, "name", "N", "", "Job name (default: derived from payload)")
	f.StringVarP(&subFlags.array, "array", "J", "", "Array task range, e.g. 1-100")
	f.StringSliceVarP(&subFlags.depend, "depend", "W", nil, "Job IDs that must complete successfully first")
	f.StringArrayVar(&subFlags.directive, "directive", nil, "Extra scheduler directive, emitted verbatim (repeatable)")

	f.StringVarP(&subFlags.script, "script", "s", "", "Script file to run (instead of an inline command)")
	f.StringVar(&subFlags.cmdFile, "cmd-file", "", "Newline-delimited command list to chunk into sub-jobs")
	f.IntVar(&subFlags.chunkNum, "chunk-num", 0, "Split the command list into exactly N sub-jobs")
	f.IntVar(&subFlags.chunkSize, "chunk-size", 0, "Split the command list into sub-jobs of at most N commands")

	f.StringSliceVar(&subFlags.scratch, "scratch", nil, "Directories to copy to shared scratch before execution")
	f.StringSliceVar(&subFlags.tmp, "tmp", nil, "Directories to copy to node-local storage; results copied back")

	f.BoolVar(&subFlags.dryRun, "dry-run", false, "Print the generated script(s) without submitting")
	f.BoolVar(&subFlags.background, "bg", false, "Submit and return immediately instead of waiting")
	f.BoolVar(&subFlags.noEmail, "no-email", false, "Suppress the completion email")
	f.BoolVar(&subFlags.useLogDir, "log-dir", false, "Keep job logs in a dated, numbered directory")
	f.StringVar(&subFlags.pollInterval, "poll-interval", "", "Override the poll interval, e.g. 10s, 2m")

	subCmd.MarkFlagsMutuallyExclusive("hours", "days", "weeks")
	subCmd.MarkFlagsMutuallyExclusive("chunk-num", "chunk-size")
}

func runSub(cmd *cobra.Command, args []string) error {
	spec := &pbs.JobSpec{
		CPUs:          subFlags.cpus,
		MemGB:         subFlags.memGB,
		WalltimeHours: walltimeHours(),
		GPUs:          subFlags.gpus,
		GPUType:       subFlags.gpuType,
		Queue:         subFlags.queue,
		Command:       args,
		Script:        subFlags.script,
		Name:          subFlags.name,
		ArraySpec:     subFlags.array,
		Dependencies:  subFlags.depend,
		Extras:        subFlags.directive,
		CommandFile:   subFlags.cmdFile,
		ChunkNum:      subFlags.chunkNum,
		ChunkSize:     subFlags.chunkSize,
		NoEmail:       subFlags.noEmail,
		Background:    subFlags.background,
		DryRun:        subFlags.dryRun,
		UseLogDir:     subFlags.useLogDir,
		ScratchDirs:   subFlags.scratch,
		TmpDirs:       subFlags.tmp,
	}
	if subFlags.pollInterval != "" {
		d, err := time.ParseDuration(subFlags.pollInterval)
		if err != nil {
			return fmt.Errorf("invalid --poll-interval: %w", err)
		}
		spec.PollInterval = d
	}

	if err := spec.Normalize(); err != nil {
		return err
	}

	pbs.WarnIfOldServer()

	if spec.Chunked() {
		return submitChunks(spec)
	}
	return submitOne(spec)
}

// walltimeHours converts whichever walltime flag was given to hours.
// Mutual exclusion is enforced by cobra.
func walltimeHours() int {
	switch {
	case subFlags.weeks > 0:
		return subFlags.weeks * 7 * 24
	case subFlags.days > 0:
		return subFlags.days * 24
	default:
		return subFlags.hours
	}
}

// submitChunks expands and submits the chunk batch. Chunks already
// submitted before a later failure remain queued on the scheduler;
// there is no rollback.
func submitChunks(base *pbs.JobSpec) error {
	chunks, err := pbs.ChunkSpecs(base)
	if err != nil {
		return err
	}
	utils.PrintMessage("Submitting %d chunk(s) from %s", len(chunks), utils.StylePath(base.CommandFile))

	for _, chunk := range chunks {
		script, err := pbs.BuildScript(chunk)
		if err != nil {
			return err
		}
		if base.DryRun {
			fmt.Printf("# ----- %s -----\n%s\n", chunk.Name, script)
			continue
		}
		job, err := pbs.Submit(script)
		if err != nil {
			return fmt.Errorf("submitting chunk %s: %w", chunk.Name, err)
		}
		utils.PrintMessage("Submitted chunk %s as %s", utils.StyleName(chunk.Name), utils.StyleNumber(job.ID))
	}
	return nil
}

func submitOne(spec *pbs.JobSpec) error {
	script, err := pbs.BuildScript(spec)
	if err != nil {
		return err
	}
	if spec.DryRun {
		fmt.Print(script)
		return nil
	}

	var logDir string
	if spec.UseLogDir {
		logDir, err = report.NextLogDir(config.Global.LogBaseDir)
		if err != nil {
			return err
		}
		utils.PrintMessage("Job logs will be kept in %s", utils.StylePath(logDir))
	}

	job, err := pbs.Submit(script)
	if err != nil {
		return err
	}
	utils.PrintMessage("Submitted job %s", utils.StyleNumber(job.ID))

	if spec.Background {
		return nil
	}

	info, err := pbs.WaitForJob(job.ID, pbs.PollOptions{Interval: spec.PollInterval})
	if err != nil {
		return err
	}

	exitStatus := 0
	if info.ExitStatus != nil {
		exitStatus = *info.ExitStatus
	}
	class := report.Classify(exitStatus)
	if exitStatus == 0 {
		utils.PrintSuccess("Job %s %s (walltime %s, CPU %d%%)",
			info.ID, class.Label, utils.FormatHMSTime(info.WalltimeUsed), info.CPUPercent)
	} else {
		utils.PrintError("Job %s %s", info.ID, class.Label)
		utils.PrintError("%s", class.Detail)
	}

	stdoutPath, stderrPath := collectLogs(info, logDir)

	if !spec.NoEmail {
		if recipient := report.Recipient(); recipient != "" {
			report.Send(report.Compose(recipient, info, class, stdoutPath, stderrPath), shell.Run)
		}
	}

	// The caller's exit status is the job's own.
	os.Exit(exitStatus)
	return nil
}

// collectLogs streams the job's spool files onto our own streams, then
// either relocates them into the segregated log directory or deletes
// them. Returns the final resting paths (empty when deleted).
func collectLogs(info *pbs.JobInfo, logDir string) (stdoutPath, stderrPath string) {
	finalOut, finalErr := pbs.ResolveLogPaths(info, logDir)

	relay := func(spool, final string, dest io.Writer) string {
		if spool == "" {
			return ""
		}
		data, err := os.ReadFile(spool)
		if err != nil {
			utils.PrintWarning("Could not read job log %s: %v", spool, err)
			return ""
		}
		dest.Write(data)

		if logDir == "" {
			os.Remove(spool)
			return ""
		}
		if err := os.Rename(spool, final); err != nil {
			// Cross-device spool locations need a copy instead.
			if werr := os.WriteFile(final, data, 0o644); werr != nil {
				utils.PrintWarning("Could not relocate job log to %s: %v", final, werr)
				return spool
			}
			os.Remove(spool)
		}
		return final
	}

	stdoutPath = relay(info.OutputPath, finalOut, os.Stdout)
	stderrPath = relay(info.ErrorPath, finalErr, os.Stderr)
	return stdoutPath, stderrPath
}
