package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvcrn/bank-api-client/internal/app"
	"github.com/dvcrn/bank-api-client/internal/env"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Log in with a username and password and persist the issued credential
in the configured store.

The password is taken from --password, then $BANK_PASSWORD, then one line of
standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.FromContext(cmd.Context())
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				password, _ = env.Get("BANK_PASSWORD")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			principal, err := a.Auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			name := username
			if principal != nil && principal.DisplayName != "" {
				name = principal.DisplayName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (session stored in %s)\n", name, a.Store.Name())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.FromContext(cmd.Context())
			if err := a.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type statusOutput struct {
	Authenticated bool   `json:"authenticated"`
	Store         string `json:"store"`
	BaseURL       string `json:"base_url"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	RefreshToken  bool   `json:"has_refresh_token"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.FromContext(cmd.Context())
			out := statusOutput{Store: a.Store.Name(), BaseURL: a.Config.BaseURL}

			if cred := a.Auth.Credential(cmd.Context()); cred != nil {
				out.Authenticated = true
				out.RefreshToken = cred.RefreshToken != ""
				if exp, ok := cred.Expiry(); ok {
					out.ExpiresAt = exp.Format("2006-01-02T15:04:05Z07:00")
				}
			}
			if p := a.Auth.CurrentPrincipal(cmd.Context()); p != nil {
				out.Username = p.Username
				out.Role = p.Role
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the stored credential now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.FromContext(cmd.Context())
			if err := a.Auth.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credential refreshed")
			return nil
		},
	}
}
