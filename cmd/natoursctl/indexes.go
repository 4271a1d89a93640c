package main

import (
	"context"

	"github.com/spf13/cobra"

	"natours-api/internal/app"
	"natours-api/internal/repo"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the Mongo indexes for tours, reviews and users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := repo.EnsureIndexes(ctx, a.DB); err != nil {
				return err
			}
			a.Log.Info("indexes ready")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(indexesCmd)
}
