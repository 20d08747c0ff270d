package cmd

import (
	"fmt"
	"sort"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"github.com/spf13/cobra"
)

var usersFlags struct {
	qusersFile string
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Show per-user running and queued resource counts",
	Long: `Print every user's running and queued CPU and GPU counts from the
bulk user summary, ordered by the GPU-weighted score used for ranking.`,
	Example: `  mq users
  mq users --qusers-file saved-qusers.txt`,
	RunE: runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.Flags().StringVar(&usersFlags.qusersFile, "qusers-file", "", "Read a saved qusers capture instead of querying")
}

func runUsers(cmd *cobra.Command, args []string) error {
	usages, err := loadUsers(usersFlags.qusersFile)
	if err != nil {
		return err
	}

	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Score() != usages[j].Score() {
			return usages[i].Score() > usages[j].Score()
		}
		return usages[i].User < usages[j].User
	})

	fmt.Printf("%-12s %8s %8s %8s %8s %7s\n", "USER", "RUN CPU", "QUE CPU", "RUN GPU", "QUE GPU", "SCORE")
	for i := range usages {
		u := &usages[i]
		fmt.Printf("%-12s %8d %8d %8d %8d %7d\n",
			u.User, u.RunningCPUs, u.QueuedCPUs, u.RunningGPUs, u.QueuedGPUs, u.Score())
	}
	if len(usages) == 0 {
		utils.PrintMessage("No users reported by the scheduler")
	}
	return nil
}
