package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/auth"
	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
)

type loginFlags struct {
	Login                string
	Password             string
	PasswordStdin        bool
	Platform             int
	AuthToken            bool
	StayConnected        bool
	ExpireCurrentSession bool
}

// readPassword prompts without echo. Replaced in tests.
var readPassword = func(prompt string) ([]byte, error) {
	return readline.Password(prompt)
}

func newAuthLoginCmd(a *App) *cobra.Command {
	var f loginFlags

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in against the identity surface",
		Long: `Log in with a login and password and store the resulting token pair.

The password is read from --password, from standard input with
--password-stdin, or prompted for without echo.

Examples:
  lkp auth login --login ana@example.com
  echo "$LKP_PASSWORD" | lkp auth login --login ana@example.com --password-stdin
  lkp auth login --login ana@example.com --expire-current-session`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuthLogin(cmd, f)
		},
	}

	loginCmd.Flags().StringVar(&f.Login, "login", "", "Login (usually an e-mail address)")
	loginCmd.Flags().StringVar(&f.Password, "password", "", "Password (prefer the prompt or --password-stdin)")
	loginCmd.Flags().BoolVar(&f.PasswordStdin, "password-stdin", false, "Read the password from standard input")
	loginCmd.Flags().IntVar(&f.Platform, "platform", auth.DefaultPlatform, "Platform code sent with the login")
	loginCmd.Flags().BoolVar(&f.AuthToken, "authtoken", true, "Ask for a bearer token")
	loginCmd.Flags().BoolVar(&f.StayConnected, "stay-connected", true, "Ask for a refresh token")
	loginCmd.Flags().BoolVar(&f.ExpireCurrentSession, "expire-current-session", false, "End other sessions of this login")
	loginCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return loginCmd
}

func (a *App) runAuthLogin(cmd *cobra.Command, f loginFlags) error {
	login := strings.TrimSpace(f.Login)
	if login == "" {
		return errors.New("--login is required")
	}

	password, err := loginPassword(cmd, f)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	in := auth.NewLoginInput(login, password)
	in.Platform = f.Platform
	in.AuthToken = f.AuthToken
	in.StayConnected = f.StayConnected
	in.ExpireCurrentSession = f.ExpireCurrentSession

	stop := cli.StartSpinner(cmd.ErrOrStderr(), "Logging in", a.flags.Output.Quiet)
	err = a.auth.Login(cmd.Context(), in)
	stop()
	if err != nil {
		return a.authFailure(err)
	}

	if !a.flags.Output.Quiet {
		msg := "Logged in to " + a.store.Snapshot().AuthHost
		if exp, ok := a.store.ExpiresAt(); ok {
			msg += ", token expires " + cli.FormatExpiry(exp, a.now())
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	}
	return nil
}

func loginPassword(cmd *cobra.Command, f loginFlags) (string, error) {
	switch {
	case f.Password != "":
		return f.Password, nil
	case f.PasswordStdin:
		return readPasswordLine(cmd.InOrStdin())
	default:
		pw, err := readPassword("Password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
