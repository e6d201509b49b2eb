package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wetbench/labsim"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of labsim",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("labsim version %s\n", strings.TrimSpace(labsim.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
