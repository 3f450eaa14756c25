package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedAdminCmd = &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial super admin account",
		RunE:  runSeedAdmin,
	}
	seedEmail    string
	seedName     string
	seedPassword string
)

func init() {
	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "admin email")
	seedAdminCmd.Flags().StringVar(&seedName, "name", "Super Admin", "admin full name")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "admin password")
}

func runSeedAdmin(_ *cobra.Command, _ []string) error {
	if seedEmail == "" || seedPassword == "" {
		return errors.New("--email and --password are required")
	}
	ctx := context.Background()
	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	user, created, err := app.users.SeedAdmin(ctx, seedEmail, seedName, seedPassword)
	if err != nil {
		return err
	}
	if !created {
		app.logger.Info("admin already exists", zap.String("user_id", user.ID))
		return nil
	}
	fmt.Printf("created super admin %s (%s)\n", user.Email, user.ID)
	return nil
}
