package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/shell"
	"github.com/centre-for-microbiome-research/hpc-scripts/internal/utils"
	"github.com/spf13/cobra"
)

var (
	debugMode bool
	quietMode bool
)

var rootCmd = &cobra.Command{
	Use:           "mq",
	Short:         "Utilities for submitting and monitoring PBS/Torque batch jobs.",
	Version:       config.VERSION,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Step 1: Load built-in defaults
		config.LoadDefaults()

		// Step 2: Initialize Viper (read config file, env vars)
		if err := config.InitViper(); err != nil {
			utils.PrintDebug("Error reading config file: %v", err)
		}

		// Step 3: Load resolved values from Viper into Global config
		config.LoadFromViper()

		// Step 4: Apply command-line flags (highest priority)
		if debugMode {
			utils.DebugMode = true
			config.Global.Debug = true
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("qsub: %s  qstat: %s  pbsnodes: %s  qusers: %s",
				config.Global.QsubBin, config.Global.QstatBin,
				config.Global.PbsnodesBin, config.Global.QusersBin)
			utils.PrintDebug("Poll interval: %s  Transient back-off: %s",
				config.Global.PollInterval, config.Global.TransientBackoff)
		}
		if quietMode {
			utils.QuietMode = true
			config.Global.Quiet = true
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra's automatic error printing is silenced. For scheduler
		// command failures print the captured streams (trimmed) so the
		// scheduler's own diagnostic reaches the user; for other errors,
		// print the default error string.
		var ce *shell.CommandError
		if errors.As(err, &ce) {
			out := strings.TrimSpace(ce.Stderr)
			if out == "" {
				out = strings.TrimSpace(ce.Stdout)
			}
			if out != "" {
				fmt.Fprintln(os.Stderr, out)
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Suppress informational output (errors and warnings still shown)")
}
