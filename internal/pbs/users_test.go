package pbs

import (
	"strings"
	"testing"
)

const sampleQusersOutput = `User       RunCPU  QueCPU  RunGPU  QueGPU
alice      120     40      0       0
bob        30      0       4       2
carol      60      200     0       0
dave       10      0       12      0
erin       300     0       0       0
frank      5       0       0       0
grace      90      10      1       0
`

func TestParseUserSummary(t *testing.T) {
	usages, err := ParseUserSummary(strings.NewReader(sampleQusersOutput))
	if err != nil {
		t.Fatalf("ParseUserSummary failed: %v", err)
	}
	if len(usages) != 7 {
		t.Fatalf("got %d users; want 7", len(usages))
	}

	bob := usages[1]
	if bob.User != "bob" || bob.RunningCPUs != 30 || bob.QueuedCPUs != 0 ||
		bob.RunningGPUs != 4 || bob.QueuedGPUs != 2 {
		t.Errorf("bob parsed as %+v", bob)
	}
}

func TestParseUserSummaryRejectsBadRows(t *testing.T) {
	inputs := []string{
		"User RunCPU QueCPU RunGPU QueGPU\nalice 1 2 3\n",
		"User RunCPU QueCPU RunGPU QueGPU\nalice 1 2 3 4 5\n",
		"User RunCPU QueCPU RunGPU QueGPU\nalice one 2 3 4\n",
	}
	for _, input := range inputs {
		if _, err := ParseUserSummary(strings.NewReader(input)); !IsParseError(err) {
			t.Errorf("input %q: error = %v; want a parse error", input, err)
		}
	}
}

func TestScoreWeighsGPUs(t *testing.T) {
	u := UserUsage{RunningCPUs: 30, RunningGPUs: 4}
	if got := u.Score(); got != 70 {
		t.Errorf("Score = %d; want 70 (30 CPUs + 4 GPUs x 10)", got)
	}
	// Queued work never counts toward the score.
	u.QueuedCPUs = 1000
	u.QueuedGPUs = 100
	if got := u.Score(); got != 70 {
		t.Errorf("Score = %d; want 70 regardless of queued work", got)
	}
}

func TestRankUsers(t *testing.T) {
	usages, err := ParseUserSummary(strings.NewReader(sampleQusersOutput))
	if err != nil {
		t.Fatalf("ParseUserSummary failed: %v", err)
	}

	ranked := RankUsers(usages)
	if len(ranked) != 5 {
		t.Fatalf("got %d ranked users; want top 5", len(ranked))
	}

	// Scores: erin 300, dave 130, alice 120, grace 100, bob 70,
	// carol 60, frank 5.
	want := []string{"erin", "dave", "alice", "grace", "bob"}
	for i, name := range want {
		if ranked[i].User != name {
			t.Errorf("rank %d = %s; want %s", i+1, ranked[i].User, name)
		}
	}

	// Input order is untouched.
	if usages[0].User != "alice" {
		t.Errorf("RankUsers mutated its input: first user now %s", usages[0].User)
	}
}

func TestRankUsersTieBreak(t *testing.T) {
	usages := []UserUsage{
		{User: "zoe", RunningCPUs: 50},
		{User: "amy", RunningCPUs: 50},
	}
	ranked := RankUsers(usages)
	if ranked[0].User != "amy" || ranked[1].User != "zoe" {
		t.Errorf("tie order = %s, %s; want amy, zoe", ranked[0].User, ranked[1].User)
	}
}
