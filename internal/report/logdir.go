package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// NextLogDir creates and returns the next segregated log directory under
// base, organized as <base>/<YYYY-MM-DD>/<n> where n counts same-day job
// groups from 1. The directory is left on disk after the run.
func NextLogDir(base string) (string, error) {
	dayDir := filepath.Join(base, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return "", fmt.Errorf("reading log directory: %w", err)
	}

	next := 1
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(entry.Name()); err == nil && n >= next {
			next = n + 1
		}
	}

	dir := filepath.Join(dayDir, strconv.Itoa(next))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}
	return dir, nil
}
