package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/pbs"
)

func TestRecipient(t *testing.T) {
	config.LoadDefaults()
	config.Global.Username = "alice"
	config.Global.MailDomain = "example.org"
	if got := Recipient(); got != "alice@example.org" {
		t.Errorf("Recipient = %q; want alice@example.org", got)
	}

	config.Global.MailDomain = ""
	if got := Recipient(); got != "" {
		t.Errorf("Recipient with no mail domain = %q; want empty", got)
	}
}

func TestCompose(t *testing.T) {
	config.LoadDefaults()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "job.OU")
	errPath := filepath.Join(dir, "job.ER")
	if err := os.WriteFile(outPath, []byte("assembly done\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(errPath, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	status := 0
	info := &pbs.JobInfo{
		ID:           "4242.pbsserver",
		Name:         "genome_assembly",
		Queue:        "workq",
		ExecHost:     "node17/0*8",
		WalltimeUsed: 8 * time.Hour,
		CPUTime:      62 * time.Hour,
		CPUPercent:   780,
		VmemKB:       48234567,
		ExitStatus:   &status,
	}

	msg := Compose("alice@example.org", info, Classify(0), outPath, errPath)

	for _, want := range []string{
		"To: alice@example.org\n",
		"Subject: [mqsub] job 4242.pbsserver (genome_assembly) succeeded\n",
		"Exec host:   node17/0*8\n",
		"Exit status: 0\n",
		"--- last of stdout ---\nassembly done\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	// The empty stderr file contributes no section.
	if strings.Contains(msg, "last of stderr") {
		t.Errorf("message includes a section for the empty stderr file:\n%s", msg)
	}
}

func TestComposeTruncatesLongLogs(t *testing.T) {
	config.LoadDefaults()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "job.OU")
	long := strings.Repeat("x", 10000) + "THE END"
	if err := os.WriteFile(outPath, []byte(long), 0o644); err != nil {
		t.Fatal(err)
	}

	msg := Compose("a@b", &pbs.JobInfo{ID: "1", Name: "j"}, Classify(1), outPath, "")
	if !strings.Contains(msg, "THE END") {
		t.Error("message dropped the tail of the log")
	}
	if strings.Contains(msg, strings.Repeat("x", 5000)) {
		t.Error("message includes more than the log tail")
	}
}

func TestSendSwallowsDeliveryFailure(t *testing.T) {
	config.LoadDefaults()

	var gotStdin []byte
	Send("To: a@b\n\nhello\n", func(command string, stdin []byte) ([]byte, error) {
		gotStdin = stdin
		return nil, errors.New("sendmail: not found")
	})

	// The failure is only warned about; the message was still handed over.
	if !strings.Contains(string(gotStdin), "hello") {
		t.Errorf("sendmail stdin = %q; want the composed message", gotStdin)
	}
}
