package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/auth"
	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
	"github.com/Gustavo032/leankeep-api-guard/internal/transport"
)

func newAuthCmd(a *App) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the session token",
		Long: `Manage authentication against the Leankeep identity surface.

The auth command group provides subcommands to login, logout, check status,
refresh the token pair and decode the current token.

Examples:
  lkp auth login --login ana@example.com   # Prompts for the password
  lkp auth status                          # Show authentication status
  lkp auth refresh                         # Exchange the refresh token
  lkp auth whoami                          # Show the token claims
  lkp auth logout                          # Clear the session`,
	}

	authCmd.AddCommand(
		newAuthLoginCmd(a),
		newAuthStatusCmd(a),
		&cobra.Command{
			Use:   "logout",
			Short: "Clear the stored session token",
			Long: `Clear the token pair and delete the stored session slot.

Hosts and context identifiers stay in memory for the rest of this process;
other terminals sharing the slot are logged out as well.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runAuthLogout(cmd)
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Exchange the refresh token for a new token pair",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runAuthRefresh(cmd)
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the claims of the current token",
			Long: `Decode the current bearer token and print its claims.

The signature is not verified; the claims are shown as the identity surface
issued them.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runAuthWhoami(cmd)
			},
		},
	)

	return authCmd
}

func (a *App) runAuthLogout(cmd *cobra.Command) error {
	hadToken := a.store.Snapshot().HasToken()
	a.auth.Logout()

	if a.flags.Output.Quiet {
		return nil
	}
	if hadToken {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged out"))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No session to clear.")
	}
	return nil
}

func (a *App) runAuthRefresh(cmd *cobra.Command) error {
	stop := cli.StartSpinner(cmd.ErrOrStderr(), "Refreshing token", a.flags.Output.Quiet)
	err := a.auth.Refresh(cmd.Context())
	stop()
	if err != nil {
		return a.authFailure(err)
	}

	if !a.flags.Output.Quiet {
		msg := "Token refreshed"
		if exp, ok := a.store.ExpiresAt(); ok {
			msg += ", expires " + cli.FormatExpiry(exp, a.now())
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	}
	return nil
}

func (a *App) runAuthWhoami(cmd *cobra.Command) error {
	st := a.store.Snapshot()
	if !st.HasToken() {
		return &cli.AuthRequiredError{Host: st.AuthHost}
	}

	claims, err := auth.Claims(*st.Token)
	if err != nil {
		return err
	}
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}
	return p.PrintData(map[string]any(claims))
}

// authFailure maps controller errors onto the CLI error types so the exit
// code tells scripts what happened.
func (a *App) authFailure(err error) error {
	host := a.store.Snapshot().AuthHost

	switch {
	case errors.Is(err, auth.ErrNoRefreshToken):
		return &cli.AuthRequiredError{Host: host}
	case errors.Is(err, auth.ErrBusy), errors.Is(err, auth.ErrSuperseded):
		return err
	}

	var terr *transport.Error
	if errors.As(err, &terr) && terr.Response == nil && terr.Err != nil {
		return cli.ClassifyConnectionError(err, host)
	}
	if auth.IsAuthError(err) {
		return &cli.AuthFailedError{Host: host, Reason: err}
	}
	return err
}
