package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNextLogDirNumbersSameDayRuns(t *testing.T) {
	base := t.TempDir()
	day := time.Now().Format("2006-01-02")

	first, err := NextLogDir(base)
	if err != nil {
		t.Fatalf("NextLogDir failed: %v", err)
	}
	if want := filepath.Join(base, day, "1"); first != want {
		t.Errorf("first dir = %q; want %q", first, want)
	}
	if info, err := os.Stat(first); err != nil || !info.IsDir() {
		t.Errorf("first dir was not created on disk: %v", err)
	}

	second, err := NextLogDir(base)
	if err != nil {
		t.Fatalf("NextLogDir failed: %v", err)
	}
	if want := filepath.Join(base, day, "2"); second != want {
		t.Errorf("second dir = %q; want %q", second, want)
	}
}

func TestNextLogDirSkipsNonNumericEntries(t *testing.T) {
	base := t.TempDir()
	day := time.Now().Format("2006-01-02")
	dayDir := filepath.Join(base, day)

	if err := os.MkdirAll(filepath.Join(dayDir, "7"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dayDir, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dayDir, "9"), []byte("a file, not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, err := NextLogDir(base)
	if err != nil {
		t.Fatalf("NextLogDir failed: %v", err)
	}
	if want := filepath.Join(dayDir, "8"); dir != want {
		t.Errorf("dir = %q; want %q (highest numeric subdirectory + 1)", dir, want)
	}
}
