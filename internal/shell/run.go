// Package shell executes external scheduler commands through a command
// interpreter, capturing their output.
package shell

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
)

// CommandError is returned when an external command exits non-zero.
// It carries the command text, the exit code, and both captured streams
// verbatim so callers can inspect scheduler diagnostics.
type CommandError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, e.Command))
	if out := strings.TrimSpace(e.Stdout); out != "" {
		msg.WriteString(fmt.Sprintf("\nstdout: %s", out))
	}
	if errOut := strings.TrimSpace(e.Stderr); errOut != "" {
		msg.WriteString(fmt.Sprintf("\nstderr: %s", errOut))
	}
	return msg.String()
}

// IsCommandError checks if an error is a CommandError
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

// Run executes command through "bash -c", optionally feeding stdin, and
// returns the captured standard output on success. Both streams are
// collected fully, not streamed. A non-zero exit yields a *CommandError;
// retries are a caller concern.
func Run(command string, stdin []byte) ([]byte, error) {
	utils.PrintDebug("Executing: %s", utils.StyleCommand(command))

	cmd := exec.Command("bash", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &CommandError{
			Command:  command,
			ExitCode: exitCode,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}

	return stdout.Bytes(), nil
}
