package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/tokens"
)

const passwordEnv = "LLMCTL_PASSWORD"

func newLoginCmd(get func() *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				p, err := prompt(cmd, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			if _, err := a.gateway.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			d, err := a.boot.Reconcile(cmd.Context(), a.cfg.GetLoginRoute())
			if err != nil {
				return err
			}
			if !d.LoggedIn {
				return fmt.Errorf("login succeeded but the issued token could not be read")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", a.container.State().Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or $"+passwordEnv+", or prompt)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.gateway.Logout(cmd.Context()); err != nil {
				return err
			}
			a.container.Dispatch(session.Logout{})
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity of the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			d, err := a.boot.Reconcile(cmd.Context(), a.cfg.GetLandingRoute())
			if err != nil {
				return err
			}
			if !d.LoggedIn {
				return fmt.Errorf("not logged in, run llmctl login")
			}
			return printJSON(cmd.OutOrStdout(), a.container.State())
		},
	}
}

func newRefreshCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.rest.Refresher().Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access token refreshed")
			return nil
		},
	}
}

func newVerifyCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Ask the authentication service whether the stored access token is valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			pair, err := tokens.Load(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			ok, err := a.gateway.VerifyToken(cmd.Context(), pair.Access)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("access token is not valid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access token is valid")
			return nil
		},
	}
}

func newPasswordCmd(get func() *app) *cobra.Command {
	var oldPassword, newPassword string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var err error
			if oldPassword == "" {
				if oldPassword, err = prompt(cmd, "Current password: "); err != nil {
					return err
				}
			}
			if newPassword == "" {
				if newPassword, err = prompt(cmd, "New password: "); err != nil {
					return err
				}
			}
			if err := a.gateway.UpdatePassword(cmd.Context(), oldPassword, newPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPassword, "old", "", "current password")
	cmd.Flags().StringVar(&newPassword, "new", "", "new password")
	return cmd
}

func newAPITokenCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "api-token",
		Short: "Issue a long lived API token for scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := get().gateway.ObtainAPIToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
