package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"tebaspos/backend/internal/domain"
	pgstore "tebaspos/backend/internal/store/postgres"
)

// openDB connects to DATABASE_URL; every posctl command works on postgres.
func openDB(ctx context.Context) (*pgstore.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return pgstore.New(ctx, cfg.DatabaseURL)
}

// posctl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema and create the default store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Applying schema…")
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		return db.EnsureStore(ctx, domain.Store{ID: cfg.StoreID})
	},
}

var (
	adminUsername string
	adminPassword string
)

// posctl create-admin
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.ToLower(strings.TrimSpace(adminUsername))
		if len(username) < 4 {
			return errors.New("--username must be at least 4 characters")
		}
		if len(adminPassword) < 8 {
			return errors.New("--password must be at least 8 characters")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		err = db.CreateUser(ctx, domain.UserAccount{
			Username: username,
			Password: string(hash),
			Role:     domain.RoleAdmin,
			Active:   true,
		})
		if err != nil {
			return fmt.Errorf("create admin %s: %w", username, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", username)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "account name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "account password")
	_ = createAdminCmd.MarkFlagRequired("password")
}
