package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jasani8259/Final-Capstone/internal/auth"
	"github.com/Jasani8259/Final-Capstone/internal/db"
	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/repository"
)

func NewUsersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard accounts",
	}
	cmd.AddCommand(newUsersSeedCommand(opts))
	cmd.AddCommand(newUsersHashCommand())
	return cmd
}

func newUsersSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the demo accounts into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required to seed accounts")
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := repository.NewStore(pool)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			accounts := auth.DemoAccounts()
			for _, account := range accounts {
				hash, err := auth.HashPassword(account.Password)
				if err != nil {
					return err
				}
				user := model.User{
					Identifier:   account.Identifier,
					PasswordHash: hash,
					Role:         account.Role,
					DisplayName:  account.DisplayName,
				}
				if err := store.UpsertUser(ctx, user); err != nil {
					return fmt.Errorf("seed %s: %w", account.Identifier, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d accounts\n", len(accounts))
			return nil
		},
	}
}

func newUsersHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
