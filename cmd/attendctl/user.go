package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"faceattend/internal/users"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts in the users collection",
	}

	var password, role, name, picture string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create or update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case users.RoleUser, users.RoleAdmin, users.RoleSuperAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			u := users.User{Email: args[0], Name: name, Role: role, IsActive: true, ProfilePicture: picture}
			if password != "" {
				hash, err := users.HashPassword(password)
				if err != nil {
					return err
				}
				u.PasswordHash = hash
			}

			ctx := cmd.Context()
			m, err := a.mongo(ctx)
			if err != nil {
				return err
			}
			defer m.Close(ctx)
			if err := users.NewRepository(m.DB).Upsert(ctx, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", users.Normalize(u.Email), role)
			return nil
		},
	}
	add.Flags().StringVar(&password, "password", "", "login password (stored as bcrypt)")
	add.Flags().StringVar(&role, "role", users.RoleUser, "user, admin or superadmin")
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&picture, "profile-picture", "", "reference image URL")

	cmd.AddCommand(add)
	return cmd
}
