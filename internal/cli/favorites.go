package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/ai-tool-finder/internal/config"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/favorites"
	"github.com/Clark-Hu/ai-tool-finder/internal/logging"
)

// ToolGetter resolves a slug to its current view.
type ToolGetter interface {
	Get(ctx context.Context, slug string) (domain.ToolView, error)
}

// NewFavoritesCmd creates the 'favorites' command group.
func NewFavoritesCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage the device-local favourites list",
		Long: `Favourites are stored in a local SQLite file and never sent to the server.
Each entry keeps a snapshot of the tool as it was when added.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Favourites database path (default $FAVORITES_DB_PATH)")

	open := func(ctx context.Context) (*favorites.SQLiteStore, error) {
		local, err := config.LoadLocal()
		if err != nil {
			return nil, err
		}
		path := dbPath
		if path == "" {
			path = local.FavoritesDBPath
		}
		logger, err := logging.New(local.LogLevel, local.LogFormat)
		if err != nil {
			return nil, err
		}
		return favorites.Open(ctx, path, logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List favourites",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer fs.Close()
			return runFavoritesList(cmd.Context(), fs, cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <slug>",
		Short: "Add a tool to favourites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer fs.Close()

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runFavoritesAdd(cmd.Context(), fs, a.discovery, args[0], cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <slug>",
		Short: "Add a tool if absent, remove it otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer fs.Close()

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runFavoritesToggle(cmd.Context(), fs, a.discovery, args[0], cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <slug>",
		Aliases: []string{"rm"},
		Short:   "Remove a tool from favourites",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer fs.Close()
			return runFavoritesRemove(cmd.Context(), fs, args[0], cmd.OutOrStdout())
		},
	})

	return cmd
}

func runFavoritesList(ctx context.Context, fs favorites.Store, out io.Writer) error {
	views, err := fs.List(ctx)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Fprintln(out, "No favourites yet.")
		return nil
	}
	fmt.Fprintf(out, "Favourites (%d):\n", len(views))
	for _, v := range views {
		fmt.Fprintf(out, "  %s (%s) %.1f★ from %d ratings\n", v.Name, v.Slug, v.AvgRating, v.TotalRatings)
	}
	return nil
}

func runFavoritesAdd(ctx context.Context, fs favorites.Store, tools ToolGetter, slug string, out io.Writer) error {
	v, err := tools.Get(ctx, slug)
	if err != nil {
		return err
	}
	added, err := fs.Add(ctx, v)
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(out, "%s is already a favourite\n", v.Name)
		return nil
	}
	fmt.Fprintf(out, "Added %s to favourites\n", v.Name)
	return nil
}

func runFavoritesToggle(ctx context.Context, fs favorites.Store, tools ToolGetter, slug string, out io.Writer) error {
	v, err := tools.Get(ctx, slug)
	if err != nil {
		return err
	}
	added, err := favorites.Toggle(ctx, fs, v)
	if err != nil {
		return err
	}
	if added {
		fmt.Fprintf(out, "Added %s to favourites\n", v.Name)
	} else {
		fmt.Fprintf(out, "Removed %s from favourites\n", v.Name)
	}
	return nil
}

func runFavoritesRemove(ctx context.Context, fs favorites.Store, slug string, out io.Writer) error {
	views, err := fs.List(ctx)
	if err != nil {
		return err
	}
	for _, v := range views {
		if v.Slug != slug {
			continue
		}
		if _, err := fs.Remove(ctx, v.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %s from favourites\n", v.Name)
		return nil
	}
	return fmt.Errorf("%s is not a favourite", slug)
}
