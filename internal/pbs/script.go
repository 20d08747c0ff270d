package pbs

import (
	"fmt"
	"strings"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
)

// BuildScript renders a qsub submission script for a normalized spec:
// a #PBS directive header, working-directory and environment-activation
// lines, an optional data-staging preamble, the payload, and a trailer.
// The emitted text must stay byte-compatible with what qsub accepts.
func BuildScript(spec *JobSpec) (string, error) {
	if len(spec.Command) > 0 && spec.Script != "" {
		return "", ErrConflictingPayload
	}
	if len(spec.Command) == 0 && spec.Script == "" {
		return "", ErrMissingPayload
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")

	writeDirectives(&b, spec)
	b.WriteString("\n")

	b.WriteString("cd $PBS_O_WORKDIR\n")
	writeEnvActivation(&b)

	tmpMode := len(spec.TmpDirs) > 0
	if len(spec.ScratchDirs) > 0 {
		writeStagingPreamble(&b, spec.ScratchDirs, config.Global.ScratchRoot, "MQ_SCRATCH")
	}
	if tmpMode {
		writeStagingPreamble(&b, spec.TmpDirs, config.Global.TmpRoot, "MQ_TMP")
		b.WriteString("cd \"$MQ_TMP\"\n")
	}
	b.WriteString("\n")

	// Payload
	if spec.Script != "" {
		fmt.Fprintf(&b, "bash %s\n", spec.Script)
	} else {
		b.WriteString(strings.Join(spec.Command, " ") + "\n")
	}
	b.WriteString("_rc=$?\n")

	// Trailer
	if tmpMode {
		// Copy results back to where the job was submitted from, then
		// propagate the payload's exit status as the job's own.
		b.WriteString("cp -r \"$MQ_TMP\"/* \"$PBS_O_WORKDIR\"/\n")
		b.WriteString("rm -rf \"$MQ_TMP\"\n")
	}
	if len(spec.ScratchDirs) > 0 {
		b.WriteString("rm -rf \"$MQ_SCRATCH\"\n")
	}
	b.WriteString("exit $_rc\n")

	return b.String(), nil
}

// writeDirectives emits the #PBS header block.
func writeDirectives(b *strings.Builder, spec *JobSpec) {
	fmt.Fprintf(b, "#PBS -N %s\n", safeJobName(spec.Name))

	selectParts := []string{fmt.Sprintf("select=1:ncpus=%d:mem=%dgb", spec.CPUs, spec.MemGB)}
	if spec.GPUs > 0 {
		selectParts = append(selectParts, fmt.Sprintf("ngpus=%d", spec.GPUs))
		if spec.GPUType != "" {
			selectParts = append(selectParts, fmt.Sprintf("gputype=%s", spec.GPUType))
		}
	}
	fmt.Fprintf(b, "#PBS -l %s\n", strings.Join(selectParts, ":"))
	fmt.Fprintf(b, "#PBS -l walltime=%d:00:00\n", spec.WalltimeHours)

	if spec.Queue != "" {
		fmt.Fprintf(b, "#PBS -q %s\n", spec.Queue)
	}
	if spec.ArraySpec != "" {
		fmt.Fprintf(b, "#PBS -J %s\n", spec.ArraySpec)
	}
	if len(spec.Dependencies) > 0 {
		fmt.Fprintf(b, "#PBS -W depend=afterok:%s\n", strings.Join(spec.Dependencies, ":"))
	}

	// Scheduler-side mail is always off; completion reports come from the
	// polling process itself.
	b.WriteString("#PBS -m n\n")

	for _, extra := range spec.Extras {
		fmt.Fprintf(b, "#PBS %s\n", extra)
	}
}

// writeEnvActivation re-activates the submitting shell's conda
// environment inside the job.
func writeEnvActivation(b *strings.Builder) {
	env := config.CondaEnv()
	if env == "" {
		return
	}
	b.WriteString("eval \"$(conda shell.bash hook)\" 2>/dev/null\n")
	fmt.Fprintf(b, "conda activate %s\n", env)
}

// writeStagingPreamble copies each listed directory into a per-job
// subdirectory of root and aborts the job when a copy fails. The subdir
// is keyed by $PBS_JOBID so simultaneously running chunk jobs never
// contend for the same staging path.
func writeStagingPreamble(b *strings.Builder, dirs []string, root, envName string) {
	fmt.Fprintf(b, "export %s=\"%s/$PBS_JOBID\"\n", envName, root)
	fmt.Fprintf(b, "mkdir -p \"$%s\"\n", envName)
	for _, dir := range dirs {
		fmt.Fprintf(b, "cp -r %s \"$%s\"/ || { echo 'staging copy failed: %s' >&2; exit 111; }\n",
			dir, envName, dir)
	}
}

// safeJobName strips characters qsub rejects in -N values.
func safeJobName(name string) string {
	name = strings.ReplaceAll(name, "/", "--")
	name = strings.ReplaceAll(name, " ", "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
