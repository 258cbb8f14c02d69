package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
)

func newRedactCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:       "redact [on|off|toggle]",
		Short:     "Switch display redaction of tokens and personal data",
		ValidArgs: []string{"on", "off", "toggle"},
		Long: `Switch display redaction on or off. Without an argument the mode is
toggled. The mode is kept with the session.

Redaction only changes what lkp shows: request panels, cURL exports and
response bodies. Logs are always redacted.`,
		Args: cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			want := "toggle"
			if len(args) == 1 {
				want = strings.ToLower(args[0])
			}
			mode := a.setRedact(want)

			if !a.flags.Output.Quiet {
				if mode {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Redaction on"))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Redaction off: tokens and personal data are shown in full"))
				}
			}
			return nil
		},
	}
}

// setRedact applies on, off or toggle and persists the session so the mode
// survives the process.
func (a *App) setRedact(want string) bool {
	current := a.store.Snapshot().RedactMode
	mode := current
	switch want {
	case "on":
		if !current {
			mode = a.store.ToggleRedact()
		}
	case "off":
		if current {
			mode = a.store.ToggleRedact()
		}
	default:
		mode = a.store.ToggleRedact()
	}
	a.store.PersistToStorage()
	return mode
}
