package cmd

import (
	"fmt"
	"os"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/pbs"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"github.com/spf13/cobra"
)

var topFlags struct {
	nodesFile  string
	qstatFile  string
	qusersFile string
	showNodes  bool
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show cluster-wide utilization, job counts, and the busiest users",
	Long: `Snapshot scheduler-wide state into a utilization report: per-node
resources, fleet CPU/memory/GPU utilization with hot-node counts, job
state counts with a drain ETA, and the five busiest users ranked by a
GPU-weighted score.`,
	Example: `  mq top
  mq top --nodes
  mq top --nodes-file pbsnodes.txt --qstat-file qstat.txt --qusers-file qusers.txt`,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().BoolVar(&topFlags.showNodes, "nodes", false, "Also print the per-node table")
	topCmd.Flags().StringVar(&topFlags.nodesFile, "nodes-file", "", "Read a saved pbsnodes -a capture instead of querying")
	topCmd.Flags().StringVar(&topFlags.qstatFile, "qstat-file", "", "Read a saved qstat -f capture instead of querying")
	topCmd.Flags().StringVar(&topFlags.qusersFile, "qusers-file", "", "Read a saved qusers capture instead of querying")
}

func runTop(cmd *cobra.Command, args []string) error {
	nodes, err := loadNodes(topFlags.nodesFile)
	if err != nil {
		return err
	}
	jobs, err := loadJobs(topFlags.qstatFile)
	if err != nil {
		return err
	}
	usages, err := loadUsers(topFlags.qusersFile)
	if err != nil {
		return err
	}

	stats := pbs.Summarize(nodes)
	jobStats := pbs.SummarizeJobs(jobs)

	if topFlags.showNodes {
		printNodeTable(nodes)
		fmt.Println()
	}
	printClusterStats(stats)
	fmt.Println()
	printJobStats(jobStats)
	fmt.Println()
	printTopUsers(pbs.RankUsers(usages))
	return nil
}

func loadNodes(path string) ([]pbs.Node, error) {
	if path == "" {
		return pbs.QueryNodes()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return pbs.ParseNodes(file)
}

func loadUsers(path string) ([]pbs.UserUsage, error) {
	if path == "" {
		return pbs.QueryUsers()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return pbs.ParseUserSummary(file)
}

func printNodeTable(nodes []pbs.Node) {
	fmt.Println(utils.StyleTitle("Nodes"))
	fmt.Printf("%-16s %5s %10s %12s %8s %6s\n", "NAME", "STATE", "CPU", "MEM(GB)", "GPU", "CPU%")
	for i := range nodes {
		n := &nodes[i]
		gpu := "-"
		if n.GPUs > 0 {
			gpu = fmt.Sprintf("%d/%d", n.GPUsAssigned, n.GPUs)
		}
		fmt.Printf("%-16s %5s %7d/%-3d %8d/%-4d %8s %5.0f%%\n",
			n.Name, n.StateLabel(),
			n.CPUsAssigned, n.CPUs,
			n.MemAssignedGB, n.MemGB,
			gpu, n.CPUPercent())
	}
}

func printClusterStats(stats pbs.ClusterStats) {
	fmt.Println(utils.StyleTitle("Cluster"))
	fmt.Printf("  Nodes:  %d total, %d busy\n", stats.Nodes, stats.BusyNodes)
	fmt.Printf("  CPU:    %d/%d used, avg %.1f%%, %d node(s) hot\n",
		stats.UsedCPUs, stats.TotalCPUs, stats.AvgCPUPct, stats.HotCPU)
	fmt.Printf("  Memory: %d/%d GB used, avg %.1f%%, %d node(s) hot\n",
		stats.UsedMemGB, stats.TotalMemGB, stats.AvgMemPct, stats.HotMem)
	if stats.GPUNodes > 0 {
		fmt.Printf("  GPU:    %d/%d used over %d GPU node(s), avg %.1f%%, %d node(s) hot\n",
			stats.UsedGPUs, stats.TotalGPUs, stats.GPUNodes, stats.AvgGPUPct, stats.HotGPU)
	}
}

func printJobStats(stats pbs.JobStats) {
	fmt.Println(utils.StyleTitle("Jobs"))
	fmt.Printf("  %d total: %d running (%.0f%%), %d queued (%.0f%%), %d held, %d other\n",
		stats.Total,
		stats.Running, stats.StatePercent(stats.Running),
		stats.Queued, stats.StatePercent(stats.Queued),
		stats.Held, stats.Other)
	if stats.ETASeconds > 0 {
		fmt.Printf("  Drain ETA: %s at current throughput (%d running CPUs)\n",
			utils.FormatSeconds(stats.ETASeconds), stats.RunningCPUs)
	}
}

func printTopUsers(ranked []pbs.UserUsage) {
	fmt.Println(utils.StyleTitle("Busiest users"))
	fmt.Printf("  %-12s %8s %8s %8s %8s %7s\n", "USER", "RUN CPU", "QUE CPU", "RUN GPU", "QUE GPU", "SCORE")
	for i := range ranked {
		u := &ranked[i]
		fmt.Printf("  %-12s %8d %8d %8d %8d %7d\n",
			u.User, u.RunningCPUs, u.QueuedCPUs, u.RunningGPUs, u.QueuedGPUs, u.Score())
	}
}
