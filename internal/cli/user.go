package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Leganyst/room-scheduler/internal/app"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}
	cmd.AddCommand(newUserRegisterCmd())
	return cmd
}

func newUserRegisterCmd() *cobra.Command {
	var (
		telegramID int64
		name       string
		phone      string
	)
	c := &cobra.Command{
		Use:   "register",
		Short: "Register a bot user by Telegram ID or update its contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if telegramID <= 0 {
				return fmt.Errorf("--telegram-id must be positive")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Store.Users.RegisterTelegram(ctx, telegramID, name, phone)
				if err != nil {
					return fmt.Errorf("register user: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), u.ID)
				return nil
			})
		},
	}
	c.Flags().Int64Var(&telegramID, "telegram-id", 0, "Telegram user id")
	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&phone, "phone", "", "contact phone")
	_ = c.MarkFlagRequired("telegram-id")
	return c
}
