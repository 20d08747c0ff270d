// Package config holds global settings for the mq utilities.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"time"
)

const VERSION = "2.0.0"

// Config holds global application settings
type Config struct {
	Debug   bool
	Quiet   bool
	Version string

	// Resource defaults
	MemPerCPUGB      int           // GB of memory requested per CPU when --mem is omitted
	MaxWalltimeHours int           // platform ceiling; larger requests are clamped with a warning
	DefaultQueue     string        // queue used when --queue is omitted
	GpuTypes         []string      // accepted GPU type tags (cluster configuration, not code)
	PollInterval     time.Duration // delay between qstat polls while waiting on a job
	TransientBackoff time.Duration // delay before retrying after a scheduler connectivity failure

	// External binaries (invoked through a shell)
	QsubBin     string
	QstatBin    string
	PbsnodesBin string
	QusersBin   string
	SendmailBin string

	// Paths
	LogBaseDir  string // base for segregated per-day log directories
	ScratchRoot string // fast storage root for data staging ($PBS_JOBID subdir per job)
	TmpRoot     string // node-local storage root for tmp-mode staging

	// Notification
	MailDomain string // user@MailDomain receives the completion report
	Username   string // invoking user, for mail and per-user filtering
}

// Global holds the singleton configuration instance
var Global Config

// LoadDefaults fills Global with built-in defaults. Viper values and
// command-line flags are layered on top afterwards.
func LoadDefaults() {
	home, _ := os.UserHomeDir()

	username := os.Getenv("USER")
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}

	Global = Config{
		Debug:   false,
		Quiet:   false,
		Version: VERSION,

		MemPerCPUGB:      4,
		MaxWalltimeHours: 168,
		DefaultQueue:     "",
		GpuTypes:         []string{"A100", "H100"},
		PollInterval:     30 * time.Second,
		TransientBackoff: 2 * time.Minute,

		QsubBin:     "qsub",
		QstatBin:    "qstat",
		PbsnodesBin: "pbsnodes",
		QusersBin:   "qusers",
		SendmailBin: "sendmail",

		LogBaseDir:  filepath.Join(home, "mq-logs"),
		ScratchRoot: "/scratch",
		TmpRoot:     "$TMPDIR",

		MailDomain: "",
		Username:   username,
	}
}

// CondaEnv returns the name of the currently active conda/mamba environment,
// or empty when none is active. Embedded into generated job scripts so the
// job runs with the same environment as the submitting shell.
func CondaEnv() string {
	return os.Getenv("CONDA_DEFAULT_ENV")
}
