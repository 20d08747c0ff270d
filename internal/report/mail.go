package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/pbs"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
)

// tailBytes is how much of each log file an email report includes.
const tailBytes = 4096

// Recipient builds the notification address for the invoking user.
// Returns empty when no mail domain is configured.
func Recipient() string {
	if config.Global.MailDomain == "" || config.Global.Username == "" {
		return ""
	}
	return config.Global.Username + "@" + config.Global.MailDomain
}

// Compose renders a complete sendmail-ready message (headers plus body)
// summarizing job outcome. The subject line varies by exit status class.
func Compose(recipient string, info *pbs.JobInfo, class Classification, stdoutPath, stderrPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "To: %s\n", recipient)
	fmt.Fprintf(&b, "Subject: [mqsub] job %s (%s) %s\n", info.ID, info.Name, class.Label)
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s\n\n", class.Detail)
	fmt.Fprintf(&b, "Job ID:      %s\n", info.ID)
	fmt.Fprintf(&b, "Job name:    %s\n", info.Name)
	fmt.Fprintf(&b, "Queue:       %s\n", info.Queue)
	if info.ExecHost != "" {
		fmt.Fprintf(&b, "Exec host:   %s\n", info.ExecHost)
	}
	fmt.Fprintf(&b, "Walltime:    %s\n", utils.FormatHMSTime(info.WalltimeUsed))
	fmt.Fprintf(&b, "CPU time:    %s\n", utils.FormatHMSTime(info.CPUTime))
	fmt.Fprintf(&b, "CPU percent: %d%%\n", info.CPUPercent)
	fmt.Fprintf(&b, "Virtual mem: %d kb\n", info.VmemKB)
	if info.ExitStatus != nil {
		fmt.Fprintf(&b, "Exit status: %d\n", *info.ExitStatus)
	}

	appendTail(&b, "stdout", stdoutPath)
	appendTail(&b, "stderr", stderrPath)

	return b.String()
}

func appendTail(b *strings.Builder, label, path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if len(data) > tailBytes {
		data = data[len(data)-tailBytes:]
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return
	}
	fmt.Fprintf(b, "\n--- last of %s ---\n%s\n", label, content)
}

// Send pipes the composed message to sendmail. Delivery problems are
// reported as a warning, never as a job failure.
func Send(message string, run func(command string, stdin []byte) ([]byte, error)) {
	cmd := fmt.Sprintf("%s -t", config.Global.SendmailBin)
	if _, err := run(cmd, []byte(message)); err != nil {
		utils.PrintWarning("Could not send completion email: %v", err)
	}
}
