package main

import (
	"fmt"

	"github.com/aretw0/slotflow/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [conversation-id]",
	Short: "Export the workflow as a Mermaid diagram",
	Long: `Prints the booking workflow as a Mermaid flowchart (graph TD). Given a
conversation id, the node its next reply resumes at is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		g := app.Engine.Graph()
		var overlay *graph.Overlay
		if len(args) == 1 {
			st, err := app.Engine.Conversation(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			if st.CurrentStep != "" {
				overlay = &graph.Overlay{CurrentNode: g.Start(st)}
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
