package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/slotflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of slotflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "slotflow version %s\n", strings.TrimSpace(slotflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
