package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Leganyst/room-scheduler/internal/app"
	"github.com/Leganyst/room-scheduler/internal/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func NewRoot() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "roomsched",
		Short:         "Room reservation scheduling service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFiles...)
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load (missing files are skipped)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newSiteCmd())
	cmd.AddCommand(newRoomCmd())
	cmd.AddCommand(newTariffCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp собирает приложение из окружения, применяет миграции и
// вызывает fn. Ресурсы закрываются после fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(); err != nil {
		return err
	}
	return fn(cmd.Context(), a)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "roomsched %s (commit=%s)\n", Version, CommitSHA)
		},
	}
}
