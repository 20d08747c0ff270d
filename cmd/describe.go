package cmd

import (
	"fmt"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/pbs"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <state-code>",
	Short: "Explain a scheduler job state code",
	Example: `  mq describe R
  mq describe H`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := pbs.DescribeState(pbs.JobState(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", utils.StyleName(args[0]), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
