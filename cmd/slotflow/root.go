package main

import (
	"fmt"
	"os"

	"github.com/aretw0/slotflow/internal/cli"
	"github.com/aretw0/slotflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slotflow",
	Short: "Slotflow collects structured data from chat conversations",
	Long: `Slotflow runs node-based workflows that extract, validate and confirm
fields across many turns of a conversation, pausing whenever the user has to answer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file (SLOTFLOW_* variables override it)")
}

// loadApp reads the configuration and wires the engine.
func loadApp(cmd *cobra.Command, opts ...cli.BuildOption) (*cli.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cli.Build(cfg, opts...)
}
