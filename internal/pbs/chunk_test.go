package pbs

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
)

func makeCommands(n int) []string {
	commands := make([]string, n)
	for i := range commands {
		commands[i] = fmt.Sprintf("cmd%d", i)
	}
	return commands
}

func TestSplitCommandsByNum(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		num       int
		wantSizes []int
	}{
		{"7 into 3", 7, 3, []int{3, 2, 2}},
		{"6 into 3", 6, 3, []int{2, 2, 2}},
		{"10 into 4", 10, 4, []int{3, 3, 2, 2}},
		{"3 into 5 caps at 3", 3, 5, []int{1, 1, 1}},
		{"1 into 1", 1, 1, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := makeCommands(tt.items)
			groups, err := SplitCommands(commands, ChunkByNum, tt.num)
			if err != nil {
				t.Fatalf("SplitCommands failed: %v", err)
			}

			var sizes []int
			var flattened []string
			for _, group := range groups {
				sizes = append(sizes, len(group))
				flattened = append(flattened, group...)
			}
			if !reflect.DeepEqual(sizes, tt.wantSizes) {
				t.Errorf("group sizes = %v; want %v", sizes, tt.wantSizes)
			}
			// Concatenating the groups must reproduce the input exactly.
			if !reflect.DeepEqual(flattened, commands) {
				t.Errorf("concatenated groups != input: %v", flattened)
			}
		})
	}
}

func TestSplitCommandsBySize(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		size      int
		wantSizes []int
	}{
		{"7 by 3", 7, 3, []int{3, 3, 1}},
		{"6 by 3 exact multiple", 6, 3, []int{3, 3}},
		{"5 by 10", 5, 10, []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := makeCommands(tt.items)
			groups, err := SplitCommands(commands, ChunkBySize, tt.size)
			if err != nil {
				t.Fatalf("SplitCommands failed: %v", err)
			}

			var sizes []int
			var flattened []string
			for _, group := range groups {
				sizes = append(sizes, len(group))
				flattened = append(flattened, group...)
			}
			if !reflect.DeepEqual(sizes, tt.wantSizes) {
				t.Errorf("group sizes = %v; want %v", sizes, tt.wantSizes)
			}
			if !reflect.DeepEqual(flattened, commands) {
				t.Errorf("concatenated groups != input: %v", flattened)
			}
		})
	}
}

func TestSplitCommandsRejectsNonPositive(t *testing.T) {
	if _, err := SplitCommands(makeCommands(3), ChunkByNum, 0); err == nil {
		t.Error("expected error for chunk parameter 0")
	}
	if _, err := SplitCommands(makeCommands(3), ChunkBySize, -1); err == nil {
		t.Error("expected error for negative chunk parameter")
	}
}

func TestChunkPayloadCountsFailures(t *testing.T) {
	lines := chunkPayload([]string{"do_a", "do_b"})

	if lines[0] != "_failed=0" {
		t.Errorf("first line = %q; want counter init", lines[0])
	}
	for i, cmd := range []string{"do_a", "do_b"} {
		want := cmd + " || _failed=$((_failed+1))"
		if lines[i+1] != want {
			t.Errorf("line %d = %q; want %q", i+1, lines[i+1], want)
		}
	}
	// The last statement is an echo: the chunk's scheduler exit status is
	// the echo's, not the failure count. Preserved behavior.
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "echo ") || !strings.Contains(last, "$_failed") {
		t.Errorf("last line = %q; want failure-count echo", last)
	}
}

func TestChunkSpecs(t *testing.T) {
	config.LoadDefaults()

	cmdFile := filepath.Join(t.TempDir(), "cmds.txt")
	content := "task one\ntask two\n\n# a comment\ntask three\n"
	if err := os.WriteFile(cmdFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	base := &JobSpec{
		Name:        "batch",
		CommandFile: cmdFile,
		ChunkNum:    2,
	}
	chunks, err := ChunkSpecs(base)
	if err != nil {
		t.Fatalf("ChunkSpecs failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks; want 2", len(chunks))
	}

	for i, chunk := range chunks {
		wantName := fmt.Sprintf("batch_c%d", i+1)
		if chunk.Name != wantName {
			t.Errorf("chunk %d name = %q; want %q", i, chunk.Name, wantName)
		}
		// Chunked submissions always run in the background.
		if !chunk.Background {
			t.Errorf("chunk %d not marked background", i)
		}
		if chunk.Chunked() {
			t.Errorf("chunk %d still carries chunk parameters", i)
		}
	}

	// Balanced partition: 3 commands into 2 chunks is 2 then 1.
	if !strings.Contains(chunks[0].Command[0], "task one") ||
		!strings.Contains(chunks[0].Command[0], "task two") {
		t.Errorf("first chunk payload missing commands:\n%s", chunks[0].Command[0])
	}
	if !strings.Contains(chunks[1].Command[0], "task three") {
		t.Errorf("second chunk payload missing command:\n%s", chunks[1].Command[0])
	}
}
