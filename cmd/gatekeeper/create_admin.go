package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gatekeeper/internal/config"
	applog "gatekeeper/internal/log"
	"gatekeeper/internal/repos"
	"gatekeeper/internal/services"
	"gatekeeper/internal/validate"
)

func newCreateAdminCommand() *cobra.Command {
	var in validate.Account
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the approved administrator account",
		Long: `Create an approved account with the admin role.

If an account with the email already exists nothing is changed and the
command exits successfully. The password may also be given through the
ADMIN_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("ADMIN_PASSWORD")
			}
			cfg, err := config.LoadBase()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			defer teeLog(cfg.LogFile)()

			db, err := repos.OpenDB(cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			// Seeding never signs tokens.
			authSvc, err := services.NewAuthService(repos.NewUserRepo(db), nil, services.Options{BcryptCost: cfg.BcryptCost})
			if err != nil {
				return err
			}
			u, created, err := authSvc.SeedAdmin(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "account %s already exists, nothing to do\n", u.Email)
				return nil
			}
			applog.Audit(nil, "admin.seed", map[string]any{"email": u.Email, "user": u.ID})
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&in.Name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
