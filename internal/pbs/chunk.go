package pbs

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ChunkPolicy selects how a command list is split into sub-jobs.
type ChunkPolicy int

const (
	// ChunkByNum splits into exactly N roughly-equal contiguous groups.
	ChunkByNum ChunkPolicy = iota
	// ChunkBySize splits into contiguous groups of at most N commands.
	ChunkBySize
)

// SplitCommands partitions commands according to the policy.
//
// ChunkByNum uses a balanced partition: the first len%n groups receive
// one extra element, so group sizes differ by at most one and
// concatenating the groups reproduces the input order exactly.
//
// ChunkBySize fills every group to exactly n except possibly the last.
func SplitCommands(commands []string, policy ChunkPolicy, n int) ([][]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("chunk parameter must be positive, got %d", n)
	}
	if len(commands) == 0 {
		return nil, nil
	}

	var groups [][]string
	switch policy {
	case ChunkByNum:
		if n > len(commands) {
			n = len(commands)
		}
		base := len(commands) / n
		extra := len(commands) % n
		start := 0
		for i := 0; i < n; i++ {
			size := base
			if i < extra {
				size++
			}
			groups = append(groups, commands[start:start+size])
			start += size
		}
	case ChunkBySize:
		for start := 0; start < len(commands); start += n {
			end := start + n
			if end > len(commands) {
				end = len(commands)
			}
			groups = append(groups, commands[start:end])
		}
	default:
		return nil, fmt.Errorf("unknown chunk policy %d", policy)
	}

	return groups, nil
}

// ReadCommandFile reads a newline-delimited command list, skipping blank
// lines and # comments.
func ReadCommandFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("command file: %w", err)
	}
	defer file.Close()

	var commands []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("command file: %w", err)
	}
	return commands, nil
}

// chunkPayload renders the command group of one chunk. Each command is
// suffixed with a failure counter increment so one failing command does
// not abort the rest of the chunk. The script's scheduler exit status is
// that of the final echo, not the failure count; the printed count is
// the diagnostic of record for chunk batches.
func chunkPayload(commands []string) []string {
	lines := []string{"_failed=0"}
	for _, cmd := range commands {
		lines = append(lines, fmt.Sprintf("%s || _failed=$((_failed+1))", cmd))
	}
	lines = append(lines, `echo "chunk complete: $_failed of `+
		fmt.Sprintf("%d", len(commands))+` command(s) failed"`)
	return lines
}

// ChunkSpecs expands a chunked spec into one JobSpec per chunk. Chunk
// job names derive deterministically from the base name and the 1-based
// chunk index, and every chunk runs in background mode.
func ChunkSpecs(base *JobSpec) ([]*JobSpec, error) {
	commands, err := ReadCommandFile(base.CommandFile)
	if err != nil {
		return nil, err
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("command file %s contains no commands", base.CommandFile)
	}

	var groups [][]string
	if base.ChunkNum > 0 {
		groups, err = SplitCommands(commands, ChunkByNum, base.ChunkNum)
	} else {
		groups, err = SplitCommands(commands, ChunkBySize, base.ChunkSize)
	}
	if err != nil {
		return nil, err
	}

	specs := make([]*JobSpec, 0, len(groups))
	for i, group := range groups {
		chunk := *base
		chunk.Name = ChunkName(base.Name, i+1)
		chunk.Command = []string{strings.Join(chunkPayload(group), "\n")}
		chunk.Script = ""
		chunk.CommandFile = ""
		chunk.ChunkNum = 0
		chunk.ChunkSize = 0
		chunk.Background = true
		specs = append(specs, &chunk)
	}
	return specs, nil
}
