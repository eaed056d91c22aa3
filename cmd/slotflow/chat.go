package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/cli"
	"github.com/aretw0/slotflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [conversation-id]",
	Short: "Talk to the booking flow in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := "local"
		if len(args) == 1 {
			id = args[0]
		}
		fresh, _ := cmd.Flags().GetBool("fresh")
		debug, _ := cmd.Flags().GetBool("debug")

		logWriter := io.Discard
		if debug {
			logWriter = os.Stderr
		}
		app, err := loadApp(cmd, cli.WithLogWriter(logWriter))
		if err != nil {
			return err
		}
		defer app.Close()

		// Ctrl+C is handled by the chat router: the first press prints a
		// hint, the second leaves.
		sigCtx := lifecycle.NewSignalContext(cmd.Context(), lifecycle.WithCancelOnInterrupt(false))
		defer sigCtx.Cancel()

		if fresh {
			if err := app.Engine.Reset(sigCtx, id); err != nil {
				return err
			}
		}

		tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(slotflow.Version))
		err = cli.Chat(sigCtx, app, cli.ChatOptions{
			ConversationID: id,
			In:             os.Stdin,
			Out:            cmd.OutOrStdout(),
			Render:         tui.NewRenderer(),
			Signals:        true,
		})
		if cli.IsInterrupted(err) {
			if sig := sigCtx.Signal(); sig != nil {
				fmt.Fprintf(cmd.OutOrStdout(), ">>> Interrupted (%v).\n", sig)
			}
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("fresh", false, "Forget the conversation before starting")
	chatCmd.Flags().Bool("debug", false, "Write logs to stderr")
}
