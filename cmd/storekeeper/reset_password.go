package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/erazemk/storekeeper/internal/auth"
	"github.com/erazemk/storekeeper/internal/db"
	"github.com/erazemk/storekeeper/internal/store"
)

func newResetPasswordCmd(g *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new random password for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			closeLog, err := setupLogger(cfg.LogPath)
			if err != nil {
				return err
			}
			defer closeLog()

			database, err := db.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			user, err := store.GetUserByEmail(ctx, database, email)
			if err != nil {
				return err
			}

			password, err := generatePassword(16)
			if err != nil {
				return fmt.Errorf("generating password: %w", err)
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			if err := store.UpdateUserPassword(ctx, database, user.ID, hash); err != nil {
				return err
			}

			slog.Info("user password reset from command line", "target_user", user.Email)
			fmt.Printf("New password for %s: %s\n", user.Email, password)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email of the account to reset")
	cmd.MarkFlagRequired("email")
	return cmd
}
