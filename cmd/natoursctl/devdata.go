package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"natours-api/internal/app"
	"natours-api/internal/devdata"
	"natours-api/internal/domain"
)

// principalBulk is implemented by both principal backends.
type principalBulk interface {
	InsertMany(ctx context.Context, ps []domain.Principal) error
	DeleteAll(ctx context.Context) (int64, error)
}

var devDataDir string

var devDataCmd = &cobra.Command{
	Use:   "dev-data",
	Short: "Load or wipe development fixtures",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Insert tours, users and reviews from --dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, runImport)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every tour, user and review",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, runDelete)
	},
}

func init() {
	importCmd.Flags().StringVar(&devDataDir, "dir", "dev-data/data", "directory holding tours.json, users.json and reviews.json")
	devDataCmd.AddCommand(importCmd, deleteCmd)
	rootCmd.AddCommand(devDataCmd)
}

func bulk(a *app.App) (principalBulk, error) {
	b, ok := a.Principals.(principalBulk)
	if !ok {
		return nil, fmt.Errorf("principal store %T does not support bulk operations", a.Principals)
	}
	return b, nil
}

func runImport(ctx context.Context, a *app.App) error {
	ds, err := devdata.Load(os.DirFS(devDataDir), a.Hasher.Hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reading fixtures: %w", err)
	}
	principals, err := bulk(a)
	if err != nil {
		return err
	}
	if len(ds.Tours) > 0 {
		if err := a.Tours.InsertMany(ctx, ds.Tours); err != nil {
			return fmt.Errorf("inserting tours: %w", err)
		}
	}
	if len(ds.Principals) > 0 {
		if err := principals.InsertMany(ctx, ds.Principals); err != nil {
			return fmt.Errorf("inserting users: %w", err)
		}
	}
	if len(ds.Reviews) > 0 {
		if err := a.Reviews.InsertMany(ctx, ds.Reviews); err != nil {
			return fmt.Errorf("inserting reviews: %w", err)
		}
	}
	a.TourService.Invalidate(ctx)
	a.Log.Info("dev data imported",
		zap.Int("tours", len(ds.Tours)),
		zap.Int("users", len(ds.Principals)),
		zap.Int("reviews", len(ds.Reviews)),
	)
	return nil
}

func runDelete(ctx context.Context, a *app.App) error {
	principals, err := bulk(a)
	if err != nil {
		return err
	}
	tours, err := a.Tours.DeleteAll(ctx)
	if err != nil {
		return err
	}
	users, err := principals.DeleteAll(ctx)
	if err != nil {
		return err
	}
	reviews, err := a.Reviews.DeleteAll(ctx)
	if err != nil {
		return err
	}
	a.TourService.Invalidate(ctx)
	a.Log.Info("dev data deleted",
		zap.Int64("tours", tours),
		zap.Int64("users", users),
		zap.Int64("reviews", reviews),
	)
	return nil
}
