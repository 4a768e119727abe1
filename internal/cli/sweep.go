package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Leganyst/room-scheduler/internal/app"
)

// sweep выполняет один тик вручную, например из cron, когда serve
// запущен с SCHED_ENABLED=false.
func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the expiry sweeper and the overtime monitor once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				expired, err := a.Sweeper.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("expiry sweep: %w", err)
				}
				stats, err := a.Monitor.Check(ctx)
				if err != nil {
					return fmt.Errorf("overtime check: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "expired: %d\n", len(expired))
				for _, r := range expired {
					fmt.Fprintf(out, "  %s\n", r.Code)
				}
				fmt.Fprintf(out, "in progress: %d, ending soon: %d, overtime: %d, failed: %d\n",
					stats.Checked, stats.EndingSoon, stats.Overtime, stats.Failed)
				return nil
			})
		},
	}
}
