package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/pbs"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"github.com/spf13/cobra"
)

var statFlags struct {
	all       bool
	qstatFile string
}

// Requests at or past these marks are highlighted in the listing so
// outsized jobs stand out at a glance.
const (
	bigMemGB  = 128
	bigCPUNum = 32
)

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "List the invoking user's jobs and their resource usage",
	Long: `List jobs known to the scheduler, one tab-separated row per job:
job id, name, time used, time remaining, queue, RAM, CPU, state.

By default only the invoking user's jobs are shown; --all lists every
job. Outsized RAM and CPU requests are highlighted.`,
	Example: `  mq stat
  mq stat --all
  mq stat --qstat-file saved-qstat.txt`,
	RunE: runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
	statCmd.Flags().BoolVar(&statFlags.all, "all", false, "List every user's jobs, not just your own")
	statCmd.Flags().StringVar(&statFlags.qstatFile, "qstat-file", "", "Read a saved qstat -f capture instead of querying the scheduler")
}

func runStat(cmd *cobra.Command, args []string) error {
	jobs, err := loadJobs(statFlags.qstatFile)
	if err != nil {
		return err
	}

	if !statFlags.all {
		jobs = filterOwner(jobs, config.Global.Username)
	}

	fmt.Println("job_id\tname\ttime used\ttime remaining\tqueue\tRAM\tCPU\tstate")
	for i := range jobs {
		j := &jobs[i]
		fmt.Printf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID,
			j.Name,
			utils.FormatHMSTime(j.WalltimeUsed),
			utils.FormatHMSTime(j.RemainingWalltime()),
			j.Queue,
			formatRAM(j.MemRequestKB),
			formatCPU(j.CPUs),
			string(j.State),
		)
	}
	return nil
}

// loadJobs queries the scheduler, or parses a saved capture when a file
// was given (offline seam, matches the other bulk commands).
func loadJobs(path string) ([]pbs.JobRecord, error) {
	if path == "" {
		return pbs.QueryJobs()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return pbs.ParseJobs(file)
}

func filterOwner(jobs []pbs.JobRecord, owner string) []pbs.JobRecord {
	filtered := jobs[:0]
	for _, j := range jobs {
		if j.Owner == owner {
			filtered = append(filtered, j)
		}
	}
	return filtered
}

func formatRAM(kb int64) string {
	gb := kb / (1 << 20)
	text := strconv.FormatInt(gb, 10) + "G"
	if gb >= bigMemGB {
		return utils.StyleHighlight(text)
	}
	return text
}

func formatCPU(cpus int) string {
	text := strconv.Itoa(cpus)
	if cpus >= bigCPUNum {
		return utils.StyleHighlight(text)
	}
	return text
}
