package main

import (
	"errors"
	"fmt"

	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func createAdminCmd() *cobra.Command {
	var in services.RegisterInput
	var force bool

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the platform administrator account",
		Long: `Create an admin account. Refuses when an admin already exists
unless --force is given.

Example:
  pitchzone create-admin --username admin --email admin@pitchzone.com --password s3cret!`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			users := services.NewUserService(db, services.NewEventService(db))
			ctx := cmd.Context()

			existing, found, err := users.FindAdmin(ctx)
			if err != nil {
				return err
			}
			if found && !force {
				return fmt.Errorf("admin %q (%s) already exists; use --force to add another", existing.Username, existing.Email)
			}

			in.Role = "admin"
			admin, err := users.CreateUser(ctx, in)
			if err != nil {
				var se *services.Error
				if errors.As(err, &se) && len(se.Fields) > 0 {
					for _, f := range se.Fields {
						log.Error().Str("field", f.Field).Msg(f.Message)
					}
				}
				return err
			}

			log.Info().Str("id", admin.ID).Str("email", admin.Email).Msg("Admin user created")
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&in.FullName, "full-name", "Platform Admin", "display name")
	cmd.Flags().BoolVar(&force, "force", false, "create even if an admin already exists")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
