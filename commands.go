package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"restaurant-directory-api/auth"
	"restaurant-directory-api/notify"
	"restaurant-directory-api/services"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "restaurant-directory-api",
		Short: "Restaurant Directory API",
		Long: `Restaurant Directory API serves restaurant listings, owner and admin
moderation, and user ratings over HTTP.

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCreateAdminCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			closeDB(db)
			slog.Info("database migrated")
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			// Admin creation sends no mail; the dispatcher only satisfies the mailer.
			dispatcher := notify.NewDispatcher(notify.LogNotifier{Logger: slog.Default()}, slog.Default())
			defer dispatcher.Wait()
			creds := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
			users := services.NewUserService(db, creds, services.NewMailer(dispatcher, creds, cfg.FrontendURL))

			admin, err := users.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	return cmd
}
