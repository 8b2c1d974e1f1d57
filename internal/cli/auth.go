package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/session"
)

// passwordEnv lets scripts avoid putting the password on the command line.
const passwordEnv = "DESK_PASSWORD"

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Sign in and remember the credential",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			snap, err := a.client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			return a.render(snap, func() table {
				return table{
					header: []string{"NAME", "EMAIL", "ROLE"},
					rows:   [][]string{{snap.DisplayName, snap.Email, string(snap.Role)}},
				}
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $"+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Forget the stored credential",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			a.message("signed out")
			return nil
		},
	}
}

func (a *app) registerCmd() *cobra.Command {
	var reg apiclient.Registration
	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Create an account (sign in afterwards with login)",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reg.Password == "" {
				reg.Password = os.Getenv(passwordEnv)
			}
			u, err := a.client.Register(cmd.Context(), reg)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			return a.render(u, func() table {
				return table{
					header: []string{"ID", "NAME", "EMAIL", "ROLE"},
					rows:   [][]string{{u.ID, u.Name, u.Email, string(u.Role)}},
				}
			})
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password (default $"+passwordEnv+")")
	return cmd
}

type whoami struct {
	State      session.State `json:"state"`
	Name       string        `json:"name,omitempty"`
	Email      string        `json:"email,omitempty"`
	Role       string        `json:"role,omitempty"`
	Confirmed  bool          `json:"confirmed"`
	Generation uint64        `json:"generation"`
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Show the signed-in identity as confirmed by the server",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := a.client.Session()
			out := whoami{State: sess.State(), Generation: sess.Generation()}
			id, ok := sess.Identity()
			if ok {
				out.Name, out.Email, out.Role, out.Confirmed = id.DisplayName, id.Email, string(id.Role), id.Confirmed
			}
			if err := a.render(out, func() table {
				return table{
					header: []string{"STATE", "NAME", "EMAIL", "ROLE"},
					rows:   [][]string{{string(out.State), out.Name, out.Email, out.Role}},
				}
			}); err != nil {
				return err
			}
			if !ok {
				return errNotSignedIn
			}
			return nil
		},
	}
}

var errNotSignedIn = errors.New("not signed in, run deskctl login")
