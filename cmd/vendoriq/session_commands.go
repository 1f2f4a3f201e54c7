package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/vendoriq-client/authmodel"
	apperrors "github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/internal/utils"
	"github.com/jrsteele09/vendoriq-client/session"
	"github.com/jrsteele09/vendoriq-client/token"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in and store the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			email := ""
			if len(args) == 1 {
				email = args[0]
			}
			email, err := p.valueOr(email, "Email: ", false)
			if err != nil {
				return err
			}
			password, err := p.valueOr(password, "Password: ", true)
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.manager.Login(ctx, email, password); err != nil {
					return err
				}
				a.manager.Wait()

				state := a.manager.State()
				if !state.Authenticated() {
					return errors.Wrap(apperrors.ErrUnauthorized, "[login] session was rejected by the backend")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", describeIdentity(state.Identity))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted for when omitted)")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.manager.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newRegisterCommand(opts *rootOptions) *cobra.Command {
	var req authmodel.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a vendor account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)
			var err error
			if req.Email, err = p.valueOr(req.Email, "Email: ", false); err != nil {
				return err
			}
			if req.FullName, err = p.valueOr(req.FullName, "Full name: ", false); err != nil {
				return err
			}
			if req.BusinessName, err = p.valueOr(req.BusinessName, "Business name: ", false); err != nil {
				return err
			}
			if req.Password, err = p.valueOr(req.Password, "Password: ", true); err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				vendor, err := a.manager.Register(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created vendor #%d %s (%s). Run `vendoriq login` to sign in.\n",
					vendor.ID, vendor.BusinessName, vendor.Email)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Email, "email", "", "account email")
	flags.StringVar(&req.Password, "password", "", "account password (prompted for when omitted)")
	flags.StringVar(&req.FullName, "full-name", "", "vendor's full name")
	flags.StringVar(&req.BusinessName, "business-name", "", "business name")
	return cmd
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in vendor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				state, err := a.start(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !state.Authenticated() {
					fmt.Fprintln(out, "Not signed in")
					return nil
				}

				id := state.Identity
				if id == nil {
					id = &session.Identity{}
				}
				fmt.Fprintf(out, "Email:     %s\n", id.Email)
				fmt.Fprintf(out, "Name:      %s\n", orDash(id.FullName))
				fmt.Fprintf(out, "Business:  %s\n", orDash(id.BusinessName))
				fmt.Fprintf(out, "Endpoint:  %s\n", a.gateway.BaseEndpoint())

				cred, err := token.Load(ctx, a.store)
				if err != nil || cred == nil {
					return err
				}
				if claims, err := token.Inspect(cred.AccessToken); err == nil {
					fmt.Fprintf(out, "User ID:   %s\n", claims.UserID)
					if !claims.ExpiresAt.IsZero() {
						fmt.Fprintf(out, "Expires:   %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
					}
				}
				return nil
			})
		},
	}
}

// requireSession reconciles the stored session and fails when nobody is
// signed in.
func requireSession(ctx context.Context, a *app) error {
	state, err := a.start(ctx)
	if err != nil {
		return err
	}
	if !state.Authenticated() {
		return errors.Wrap(apperrors.ErrNoCredential, "not signed in, run `vendoriq login` first")
	}
	return nil
}

func describeIdentity(id *session.Identity) string {
	if id == nil {
		return "unknown"
	}
	name := id.DisplayName()
	if name == id.Email {
		return id.Email
	}
	return fmt.Sprintf("%s (%s)", name, id.Email)
}

func orDash(s *string) string {
	if v := utils.Value(s); v != "" {
		return v
	}
	return "-"
}
