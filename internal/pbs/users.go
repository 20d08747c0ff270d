package pbs

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
)

// UserUsage is one user's row from the bulk user-summary query.
type UserUsage struct {
	User        string
	RunningCPUs int
	QueuedCPUs  int
	RunningGPUs int
	QueuedGPUs  int
}

// gpuScoreWeight privileges GPU usage in rankings; a single GPU counts
// for this many CPUs.
const gpuScoreWeight = 10

// Score is the ranking weight: running CPUs plus weighted running GPUs.
// Used only for ordering, never stored.
func (u *UserUsage) Score() int {
	return u.RunningCPUs + gpuScoreWeight*u.RunningGPUs
}

// QueryUsers runs the bulk user summary and parses the reply.
func QueryUsers() ([]UserUsage, error) {
	out, err := runCommand(config.Global.QusersBin, nil)
	if err != nil {
		return nil, err
	}
	return ParseUserSummary(bytes.NewReader(out))
}

// ParseUserSummary parses qusers output: a header line followed by one
// whitespace-separated row per user with running/queued CPU and GPU
// counts. A row with the wrong column count is a fatal parse error.
func ParseUserSummary(r io.Reader) ([]UserUsage, error) {
	var usages []UserUsage

	scanner := bufio.NewScanner(r)
	lineNum := 0
	sawHeader := false
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if !sawHeader {
			// First non-blank line is the column header.
			sawHeader = true
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, NewParseError("qusers", lineNum, line,
				fmt.Sprintf("expected 5 columns, got %d", len(fields)))
		}

		var usage UserUsage
		usage.User = fields[0]
		var err error
		if usage.RunningCPUs, err = strconv.Atoi(fields[1]); err != nil {
			return nil, NewParseError("qusers", lineNum, line, "bad running CPU count")
		}
		if usage.QueuedCPUs, err = strconv.Atoi(fields[2]); err != nil {
			return nil, NewParseError("qusers", lineNum, line, "bad queued CPU count")
		}
		if usage.RunningGPUs, err = strconv.Atoi(fields[3]); err != nil {
			return nil, NewParseError("qusers", lineNum, line, "bad running GPU count")
		}
		if usage.QueuedGPUs, err = strconv.Atoi(fields[4]); err != nil {
			return nil, NewParseError("qusers", lineNum, line, "bad queued GPU count")
		}
		usages = append(usages, usage)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading qusers output: %w", err)
	}

	return usages, nil
}

// topUsers is how many ranked users reports show.
const topUsers = 5

// RankUsers sorts by descending score and returns the top 5. Ties break
// by username so reports are stable run to run.
func RankUsers(usages []UserUsage) []UserUsage {
	ranked := make([]UserUsage, len(usages))
	copy(ranked, usages)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score() != ranked[j].Score() {
			return ranked[i].Score() > ranked[j].Score()
		}
		return ranked[i].User < ranked[j].User
	})

	if len(ranked) > topUsers {
		ranked = ranked[:topUsers]
	}
	return ranked
}
