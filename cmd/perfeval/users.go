package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/spf13/cobra"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "Admin@123"
	defaultAdminFullName = "System Administrator"
	defaultAdminEmail    = "admin@example.com"
)

func (c *cli) initAdminCmd() *cobra.Command {
	var req user.CreateRequest
	var yes bool

	cmd := &cobra.Command{
		Use:   "init-admin",
		Short: "Create the first admin account",
		Long: `Create the first admin account when none exists yet.

Values not given as flags are prompted for; --yes accepts the defaults
without prompting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			ctx := ctxOf(cmd)

			if admins := c.app.Auth.Admins(ctx); len(admins) > 0 {
				fmt.Fprintf(out, "Admin already exists: %s (%s)\n", admins[0].Username, admins[0].ID)
				return nil
			}

			fields := []struct {
				flag, label, def string
				dst              *string
				secret           bool
			}{
				{"username", "Username", defaultAdminUsername, &req.Username, false},
				{"password", "Password", defaultAdminPassword, &req.Password, true},
				{"full-name", "Full name", defaultAdminFullName, &req.FullName, false},
				{"email", "Email", defaultAdminEmail, &req.Email, false},
			}
			for _, f := range fields {
				if cmd.Flags().Changed(f.flag) {
					continue
				}
				if yes {
					*f.dst = f.def
					continue
				}

				var err error
				if f.secret {
					*f.dst, err = c.promptPassword(out, f.label, f.def)
				} else {
					*f.dst, err = c.prompt(out, f.label, f.def)
				}
				if err != nil {
					return err
				}
			}

			id, created, err := c.app.Auth.EnsureAdmin(ctx, req)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "Admin %s created (%s)\n", req.Username, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "admin username")
	cmd.Flags().StringVar(&req.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "admin full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "admin email")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "use defaults for anything not given as a flag")

	return cmd
}

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(c.usersListCmd(), c.usersCreateCmd(), c.usersResetPasswordCmd(), c.usersDeleteCmd())
	return cmd
}

func (c *cli) usersListCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := ctxOf(cmd)

			users := c.app.Users.List(ctx)
			if role != "" {
				users = c.app.Users.ListByRole(ctx, role)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tNAME\tEMAIL\tACTIVE")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Role, u.FullName, u.Email, u.Active)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "only users with this role")
	return cmd
}

func (c *cli) usersCreateCmd() *cobra.Command {
	var req user.CreateRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				pw, err := c.promptPassword(cmd.OutOrStdout(), "Password", "")
				if err != nil {
					return err
				}
				req.Password = pw
			}

			id, err := c.app.Auth.CreateUser(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", req.Role, req.Username, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "login name (at least 3 characters)")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&req.Role, "role", user.RoleEmployee, "admin, evaluator or employee")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (c *cli) usersResetPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)

			if _, err := c.app.Users.GetByID(ctx, args[0]); err != nil {
				return fmt.Errorf("user %s: %w", args[0], err)
			}

			if password == "" {
				pw, err := c.promptPassword(cmd.OutOrStdout(), "New password", "")
				if err != nil {
					return err
				}
				password = pw
			}
			if err := user.ValidPassword(password); err != nil {
				return err
			}

			if !c.app.Auth.ResetPassword(ctx, args[0], password) {
				return errors.New("password reset failed, see log")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}

func (c *cli) usersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user; their evaluations are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Users.Delete(ctxOf(cmd), args[0]); err != nil {
				return fmt.Errorf("delete user %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
