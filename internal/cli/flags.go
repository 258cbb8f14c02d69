package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// CommandFlags holds the output flags shared by every command that talks to
// the API.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses the spinner and non-essential output
	Quiet bool
	// Reveal shows secrets and personal data unredacted for this command,
	// regardless of the session's redact mode
	Reveal bool
	// ShowRequest prints the request panel before the response
	ShowRequest bool
	// Curl prints the cURL export of the request
	Curl bool
}

// RegisterOutputFlags registers the flags on cmd as persistent flags so
// subcommands inherit them.
//
// The registered flags are:
//   - --output/-o: Output format (table, json, yaml), default: "json"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --reveal: Show secrets unredacted
//   - --show-request: Print the request panel
//   - --curl: Print a cURL command for the request
func RegisterOutputFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatJSON), "Output format (table, json, yaml)")
	cmd.PersistentFlags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.Reveal, "reveal", false, "Show tokens and personal data unredacted")
	cmd.PersistentFlags().BoolVar(&flags.ShowRequest, "show-request", false, "Print the request panel before the response")
	cmd.PersistentFlags().BoolVar(&flags.Curl, "curl", false, "Print a cURL command for the request")
}

// Printer validates the format and builds a Printer writing to out.
// redactMode is the session's current mode; --reveal turns it off.
func (f *CommandFlags) Printer(out io.Writer, redactMode bool) (*Printer, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return nil, err
	}
	return &Printer{
		Out:       out,
		Format:    OutputFormat(f.OutputFormat),
		NoHeaders: f.NoHeaders,
		Redact:    redactMode && !f.Reveal,
	}, nil
}
