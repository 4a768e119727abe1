package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Leganyst/room-scheduler/internal/app"
	"github.com/Leganyst/room-scheduler/internal/model"
)

func newSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage sites",
	}
	cmd.AddCommand(newSiteCreateCmd())
	return cmd
}

func newSiteCreateCmd() *cobra.Command {
	var name, address string
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				site := &model.Site{Name: strings.TrimSpace(name), Address: strings.TrimSpace(address)}
				if err := a.Store.Sites.Create(ctx, site); err != nil {
					return fmt.Errorf("create site: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), site.ID)
				return nil
			})
		},
	}
	c.Flags().StringVar(&name, "name", "", "site name")
	c.Flags().StringVar(&address, "address", "", "street address")
	_ = c.MarkFlagRequired("name")
	return c
}

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage rooms",
	}
	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomListCmd())
	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	var (
		siteID   string
		name     string
		category string
		capacity int
	)
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := uuid.Parse(siteID)
			if err != nil {
				return fmt.Errorf("invalid --site: %w", err)
			}
			cat := model.RoomCategory(strings.ToLower(category))
			if !cat.Valid() {
				return fmt.Errorf("invalid --category %q", category)
			}
			if capacity < 1 {
				return fmt.Errorf("--capacity must be at least 1")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Store.Sites.GetByID(ctx, sid); err != nil {
					return fmt.Errorf("site %s: %w", sid, err)
				}
				room := &model.Room{SiteID: sid, Name: strings.TrimSpace(name), Category: cat, Capacity: capacity, IsActive: true}
				if err := a.Store.Rooms.Create(ctx, room); err != nil {
					return fmt.Errorf("create room: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), room.ID)
				return nil
			})
		},
	}
	c.Flags().StringVar(&siteID, "site", "", "site id")
	c.Flags().StringVar(&name, "name", "", "room name")
	c.Flags().StringVar(&category, "category", string(model.RoomCategoryStandard), "standard | vip | hall")
	c.Flags().IntVar(&capacity, "capacity", 4, "max party size")
	_ = c.MarkFlagRequired("site")
	_ = c.MarkFlagRequired("name")
	return c
}

func newRoomListCmd() *cobra.Command {
	var (
		siteID string
		all    bool
		limit  int
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sid *uuid.UUID
			if siteID != "" {
				v, err := uuid.Parse(siteID)
				if err != nil {
					return fmt.Errorf("invalid --site: %w", err)
				}
				sid = &v
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				rooms, total, err := a.Store.Rooms.List(ctx, sid, !all, limit, 0)
				if err != nil {
					return fmt.Errorf("list rooms: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCAPACITY\tACTIVE")
				for _, r := range rooms {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", r.ID, r.Name, r.Category, r.Capacity, r.IsActive)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if int64(len(rooms)) < total {
					fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d\n", len(rooms), total)
				}
				return nil
			})
		},
	}
	c.Flags().StringVar(&siteID, "site", "", "only rooms of this site")
	c.Flags().BoolVar(&all, "all", false, "include inactive rooms")
	c.Flags().IntVar(&limit, "limit", 100, "max rows")
	return c
}
