package utils

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// DebugMode controls whether PrintDebug output is visible.
var DebugMode = false

// QuietMode controls whether verbose messages are suppressed (errors/warnings still shown)
var QuietMode = false

// projectPrefix is the standard tag for all logs.
const projectPrefix = "[MQ]"

var (
	red        = color.New(color.FgRed).SprintFunc()
	green      = color.New(color.FgGreen).SprintFunc()
	yellow     = color.New(color.FgYellow).SprintFunc()
	yellowBold = color.New(color.FgYellow, color.Bold).SprintFunc()
	blueBold   = color.New(color.FgBlue, color.Bold).SprintFunc()
	magenta    = color.New(color.FgMagenta).SprintFunc()
	cyan       = color.New(color.FgCyan).SprintFunc()
	gray       = color.New(color.FgWhite).SprintFunc() // FgWhite = Gray in ANSI
	bold       = color.New(color.Bold).SprintFunc()
)

// StyleError formats critical failure messages (Red).
func StyleError(msg string) string { return red(msg) }

// StyleSuccess formats success messages (Green).
func StyleSuccess(msg string) string { return green(msg) }

// StyleWarning formats non-critical warnings (Yellow).
func StyleWarning(msg string) string { return yellow(msg) }

// StyleHint formats helpful tips or suggestions (Cyan).
func StyleHint(msg string) string { return cyan(msg) }

// StyleInfo formats status labels or properties (Magenta).
func StyleInfo(msg string) string { return magenta(msg) }

// StyleDebug formats low-level technical info (Gray).
func StyleDebug(msg string) string { return gray(msg) }

// StyleCommand formats shell commands (Gray/Faint).
func StyleCommand(cmd string) string { return gray(cmd) }

// StyleTitle formats section titles (Bold Cyan).
func StyleTitle(title string) string { return bold(cyan(title)) }

// StyleNumber formats counts, sizes, or IDs (Magenta).
func StyleNumber(num interface{}) string {
	return magenta(fmt.Sprintf("%v", num))
}

// StylePath formats file paths (Bold Blue).
func StylePath(path string) string { return blueBold(path) }

// StyleName formats names, identifiers, or keys (Yellow).
func StyleName(name string) string { return yellow(name) }

// StyleHighlight formats outsized values in job tables (Yellow Bold).
func StyleHighlight(text string) string { return bold(yellow(text)) }

// PrintMessage prints a standard info message.
// Output: [MQ] Message...
func PrintMessage(format string, a ...interface{}) {
	if QuietMode {
		return
	}
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(os.Stdout, "%s %s\n", projectPrefix, msg)
}

// PrintSuccess prints a success message with a Green tag.
// Output: [MQ][DONE] Job complete.
func PrintSuccess(format string, a ...interface{}) {
	if QuietMode {
		return
	}
	msg := fmt.Sprintf(format, a...)
	tag := StyleSuccess("[DONE]")
	fmt.Fprintf(os.Stdout, "%s%s %s\n", projectPrefix, tag, msg)
}

// PrintError prints an error message with a Red tag to Stderr.
// Output: [MQ][ERR] Something failed.
func PrintError(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	tag := StyleError("[ERR] ")
	fmt.Fprintf(os.Stderr, "%s%s %s\n", projectPrefix, tag, msg)
}

// PrintWarning prints a warning with a Yellow tag to Stderr.
// Output: [MQ][WARN] Walltime clamped.
func PrintWarning(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	tag := StyleWarning("[WARN]")
	fmt.Fprintf(os.Stderr, "%s%s %s\n", projectPrefix, tag, msg)
}

// PrintDebug prints a debug message with a Gray tag (only if DebugMode is true).
// Output: [MQ] [DBG] Executing: qstat -f 1234
func PrintDebug(format string, a ...interface{}) {
	if DebugMode {
		msg := fmt.Sprintf(format, a...)
		tag := StyleDebug("[DBG] ")
		fmt.Fprintf(os.Stderr, "%s%s %s\n", projectPrefix, tag, msg)
	}
}

// IsInteractiveShell checks if stdout is connected to a TTY (interactive terminal).
func IsInteractiveShell() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
