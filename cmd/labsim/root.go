package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "labsim",
	Short: "labsim simulates lab automation protocols without hardware",
	Long: `labsim executes protocols against a virtual deck and reports what the
robot would have done, step by step, including the protocol's own log
output attributed to the command that emitted it.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("log-level", "l", "warning", "Minimum severity captured into the run log (debug|info|warning|error|none)")
}
