package cmd

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
)

// envView is the structured form of `env show`.
type envView struct {
	AuthHost       string `json:"authHost"`
	APIHost        string `json:"apiHost"`
	EmpresaID      string `json:"empresaId"`
	UnidadeID      string `json:"unidadeId"`
	SiteID         string `json:"siteId"`
	XTransactionID string `json:"xTransactionId"`
}

func newEnvView(st session.State) envView {
	return envView{
		AuthHost:       st.AuthHost,
		APIHost:        st.APIHost,
		EmpresaID:      st.EmpresaID,
		UnidadeID:      st.UnidadeID,
		SiteID:         st.SiteID,
		XTransactionID: st.XTransactionID,
	}
}

type envSetFlags struct {
	AuthHost         string
	APIHost          string
	EmpresaID        string
	UnidadeID        string
	SiteID           string
	TransactionID    string
	NewTransactionID bool
}

// hostInput validates a host before it reaches the session.
type hostInput struct {
	Host string `validate:"required,url,startswith=http"`
}

var hostValidator = validator.New(validator.WithRequiredStructEnabled())

func newEnvCmd(a *App) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show or change the session environment",
		Long: `Show or change the hosts and context identifiers sent with every request.

Examples:
  lkp env show
  lkp env set --empresa-id 42 --unidade-id 7
  lkp env set --api-host https://homologacao.api.lkp.app.br
  lkp env set --new-transaction-id`,
	}

	envCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show hosts and context identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showEnv(cmd)
		},
	})

	var f envSetFlags
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change hosts and context identifiers",
		Long: `Change hosts and context identifiers. Only the flags given are changed;
pass an empty value (--site-id "") to clear an identifier.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := envVarsFromFlags(cmd, f)
			if err != nil {
				return err
			}
			a.store.SetEnvVars(vars)
			return a.showEnv(cmd)
		},
	}
	setCmd.Flags().StringVar(&f.AuthHost, "auth-host", "", "Identity surface base URL")
	setCmd.Flags().StringVar(&f.APIHost, "api-host", "", "Domain surface base URL")
	setCmd.Flags().StringVar(&f.EmpresaID, "empresa-id", "", "Company id (EmpresaId header)")
	setCmd.Flags().StringVar(&f.UnidadeID, "unidade-id", "", "Unit id (UnidadeId header)")
	setCmd.Flags().StringVar(&f.SiteID, "site-id", "", "Site id (SiteId header)")
	setCmd.Flags().StringVar(&f.TransactionID, "transaction-id", "", "X-Transaction-Id header value")
	setCmd.Flags().BoolVar(&f.NewTransactionID, "new-transaction-id", false, "Generate a random X-Transaction-Id")
	setCmd.MarkFlagsMutuallyExclusive("transaction-id", "new-transaction-id")
	envCmd.AddCommand(setCmd)

	return envCmd
}

// envVarsFromFlags turns the flags the user actually passed into a partial
// update. Hosts are validated and stripped of a trailing slash.
func envVarsFromFlags(cmd *cobra.Command, f envSetFlags) (session.EnvVars, error) {
	var vars session.EnvVars
	changed := cmd.Flags().Changed

	if changed("auth-host") {
		host, err := normalizeHost("auth-host", f.AuthHost)
		if err != nil {
			return vars, err
		}
		vars.AuthHost = &host
	}
	if changed("api-host") {
		host, err := normalizeHost("api-host", f.APIHost)
		if err != nil {
			return vars, err
		}
		vars.APIHost = &host
	}
	if changed("empresa-id") {
		v := strings.TrimSpace(f.EmpresaID)
		vars.EmpresaID = &v
	}
	if changed("unidade-id") {
		v := strings.TrimSpace(f.UnidadeID)
		vars.UnidadeID = &v
	}
	if changed("site-id") {
		v := strings.TrimSpace(f.SiteID)
		vars.SiteID = &v
	}
	if changed("transaction-id") {
		v := strings.TrimSpace(f.TransactionID)
		vars.XTransactionID = &v
	}
	if f.NewTransactionID {
		v := uuid.NewString()
		vars.XTransactionID = &v
	}

	if vars == (session.EnvVars{}) {
		return vars, fmt.Errorf("nothing to set; see 'lkp env set --help'")
	}
	return vars, nil
}

func normalizeHost(flag, raw string) (string, error) {
	host := strings.TrimRight(strings.TrimSpace(raw), "/")
	if err := hostValidator.Struct(hostInput{Host: host}); err != nil {
		return "", fmt.Errorf("--%s: %q is not an http(s) URL", flag, raw)
	}
	return host, nil
}

func (a *App) showEnv(cmd *cobra.Command) error {
	st := a.store.Snapshot()
	if a.tableOutput(cmd) {
		cli.RenderEnv(cmd.OutOrStdout(), st)
		return nil
	}
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}
	return p.PrintData(newEnvView(st))
}

// tableOutput reports whether a status style command should render its
// go-pretty table: the default, unless --output asks for json or yaml.
func (a *App) tableOutput(cmd *cobra.Command) bool {
	if !cmd.Flags().Changed("output") {
		return true
	}
	return cli.OutputFormat(a.flags.Output.OutputFormat) == cli.OutputFormatTable
}
