package commands

import (
	"promptmart/internal/models"

	"github.com/spf13/cobra"
)

type userRow struct {
	ID       uint        `json:"id" yaml:"id"`
	Username string      `json:"username" yaml:"username"`
	Email    string      `json:"email" yaml:"email"`
	Role     models.Role `json:"role" yaml:"role"`
}

func toUserRow(u *models.User) userRow {
	return userRow{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func newAdminCmd(open Opener, out func(*cobra.Command) printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Promote, demote and list administrators",
	}

	setRole := func(use, short string, role models.Role) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <username>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				rt, err := open(ctx, RuntimeOptions{})
				if err != nil {
					return err
				}
				defer rt.Close()

				user, err := rt.Services.Users.SetRole(ctx, args[0], role)
				if err != nil {
					return err
				}
				return out(cmd).print(toUserRow(user))
			},
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := open(ctx, RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			admins, err := rt.Services.Users.ListAdmins(ctx)
			if err != nil {
				return err
			}
			rows := make([]userRow, 0, len(admins))
			for i := range admins {
				rows = append(rows, toUserRow(&admins[i]))
			}
			return out(cmd).print(rows)
		},
	}

	cmd.AddCommand(
		setRole("promote", "Grant the admin role", models.RoleAdmin),
		setRole("demote", "Revoke the admin role", models.RoleUser),
		list,
	)
	return cmd
}
