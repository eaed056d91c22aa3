package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/slotflow/api"
	httpAdapter "github.com/aretw0/slotflow/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine behind a JSON API. Without a transport URL the replies
are returned in each message response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		port := app.Config.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		validator, err := httpAdapter.NewRequestValidator(api.OpenAPI)
		if err != nil {
			return err
		}
		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithMetrics(app.Registry),
			httpAdapter.WithRequestValidator(validator),
		}
		if app.Outbox != nil {
			opts = append(opts, httpAdapter.WithReplies(app.Outbox.Drain))
		}

		srv := &http.Server{
			Addr:    ":" + strconv.Itoa(port),
			Handler: httpAdapter.NewHandler(app.Engine, opts...),
		}

		sigCtx := lifecycle.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		serverErrors := make(chan error, 1)
		lifecycle.Go(sigCtx, func(context.Context) error {
			app.Logger.Info("server_starting", "addr", srv.Addr, "store", app.Config.Store.Kind)
			serverErrors <- srv.ListenAndServe()
			return nil
		})

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			app.Logger.Info("server_shutdown", "signal", fmt.Sprint(sigCtx.Signal()))
		}

		timeout := app.Config.Server.ShutdownTimeout
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			app.Logger.Warn("graceful shutdown incomplete", "timeout", timeout, "error", err)
			if cErr := srv.Close(); cErr != nil && !errors.Is(cErr, http.ErrServerClosed) {
				return cErr
			}
		}
		app.Logger.Info("server_stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
}
