package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"natours-api/internal/app"
	"natours-api/internal/core/auth"
	"natours-api/internal/domain"
)

var hashCost int

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <email>",
	Short: "Print a session token for an active user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			p, err := a.Principals.FindByEmail(ctx, domain.NormalizeEmail(args[0]))
			if err != nil {
				return err
			}
			tok, err := a.Tokens.Issue(p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		})
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt digest of a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		digest, err := auth.NewHasher(hashCost).Hash(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), digest)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 12, "bcrypt cost")
	rootCmd.AddCommand(issueTokenCmd, hashPasswordCmd)
}
