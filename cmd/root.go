package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/auth"
	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
	"github.com/Gustavo032/leankeep-api-guard/internal/config"
	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no token is held or the token expired.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the identity surface rejected a login or refresh.
	ExitCodeAuthFailed = 3
	// ExitCodeConfigError indicates a broken config file or missing context ids.
	ExitCodeConfigError = 4
)

var version = "dev"

// SetVersion sets the version reported by `lkp version` and --version.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	a := newApp()
	defer a.Close()

	err := newRootCmd(a).ExecuteContext(context.Background())
	if err != nil {
		a.Close()
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}
	if auth.IsAuthError(err) {
		return ExitCodeAuthFailed
	}

	if config.IsConfigurationError(err) || domain.IsConfigError(err) {
		return ExitCodeConfigError
	}

	return ExitCodeError
}

// newRootCmd builds the command tree bound to a. The console builds a fresh
// tree per line so flag values never leak between lines.
func newRootCmd(a *App) *cobra.Command {
	a.flags = rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "lkp",
		Short: "Exercise the Leankeep identity and domain APIs from the terminal",
		Long: `lkp logs in against the Leankeep identity surface, keeps the session
(token pair and expiry) between runs and sends requests to the domain API.

Tokens and personal data are redacted in every output unless redaction is
switched off with 'lkp redact off' or --reveal. Every request can be shown
as a request panel (--show-request) or a copy-ready cURL command (--curl).`,
		Version: version,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "lkp version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&a.flags.ConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().BoolVar(&a.flags.Debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.flags.LogFormat, "log-format", "text", "Log format (text, json)")
	cli.RegisterOutputFlags(rootCmd, &a.flags.Output)

	rootCmd.AddCommand(
		newVersionCmd(),
		newEnvCmd(a),
		newAuthCmd(a),
		newRedactCmd(a),
		newCallCmd(a),
		newOccurrencesCmd(a),
		newCorrectionsCmd(a),
		newActivitiesCmd(a),
		newSettlementsCmd(a),
		newMeasurementsCmd(a),
		newJustificationsCmd(a),
		newConsoleCmd(a),
	)

	return rootCmd
}
