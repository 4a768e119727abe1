package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Leganyst/room-scheduler/internal/app"
	"github.com/Leganyst/room-scheduler/internal/model"
)

func newTariffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tariff",
		Short: "Manage per-category tariffs",
	}
	cmd.AddCommand(newTariffSetCmd())
	return cmd
}

func newTariffSetCmd() *cobra.Command {
	var t model.Tariff
	var category string

	c := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the tariff of a room category",
		RunE: func(cmd *cobra.Command, args []string) error {
			t.Category = model.RoomCategory(strings.ToLower(category))
			if !t.Category.Valid() {
				return fmt.Errorf("invalid --category %q", category)
			}
			if t.HourlyCents <= 0 {
				return fmt.Errorf("--hourly must be positive")
			}
			if t.DepositPercent < 0 || t.DepositPercent > 100 {
				return fmt.Errorf("--deposit-percent must be within 0..100")
			}
			t.IsActive = true

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Tariffs.Upsert(ctx, &t); err != nil {
					return fmt.Errorf("save tariff: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/h, deposit %d%%\n", t.Category, t.HourlyCents, t.DepositPercent)
				return nil
			})
		},
	}
	c.Flags().StringVar(&category, "category", "", "standard | vip | hall")
	c.Flags().Int64Var(&t.HourlyCents, "hourly", 0, "price per hour, cents")
	c.Flags().Int64Var(&t.ExtraGuestHourlyCents, "extra-guest", 0, "price per extra guest per hour, cents")
	c.Flags().IntVar(&t.IncludedGuests, "included-guests", 4, "guests included in the hourly price")
	c.Flags().IntVar(&t.DepositPercent, "deposit-percent", 30, "deposit share of the estimate")
	_ = c.MarkFlagRequired("category")
	_ = c.MarkFlagRequired("hourly")
	return c
}
