package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/storekeeper/internal/auth"
	"github.com/erazemk/storekeeper/internal/db"
	"github.com/erazemk/storekeeper/internal/model"
	"github.com/erazemk/storekeeper/internal/store"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new database with a superadmin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if email != "" {
				cfg.AdminEmail = email
			}

			if _, err := os.Stat(cfg.DBPath); err == nil {
				return fmt.Errorf("database file %s already exists", cfg.DBPath)
			}

			password, err := initDatabase(cfg.DBPath, cfg.AdminEmail)
			if err != nil {
				return err
			}
			printInitResult(cfg.DBPath, cfg.AdminEmail, password)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "superadmin email (default from STOREKEEPER_ADMIN_EMAIL)")
	return cmd
}

// initDatabase creates a new database, ensures the schema, and creates the
// superadmin. The file is removed again if any step fails.
func initDatabase(path, adminEmail string) (string, error) {
	database, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	fail := func(err error) (string, error) {
		database.Close()
		os.Remove(path)
		return "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	if _, err := store.CreateUser(context.Background(), database, "Administrator", adminEmail, hash, model.RoleSuperAdmin); err != nil {
		return fail(fmt.Errorf("creating superadmin: %w", err))
	}

	return password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Superadmin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println("It can be changed after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
