package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Leganyst/room-scheduler/internal/app"
	"github.com/Leganyst/room-scheduler/internal/config"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if migrateUp {
				if err := a.Migrate(); err != nil {
					return err
				}
			}
			return a.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(context.Context, *app.App) error { return nil })
		},
	}
}
