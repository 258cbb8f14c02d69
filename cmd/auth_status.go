package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
	"github.com/Gustavo032/leankeep-api-guard/internal/redact"
)

// authStatusView is the structured form of `auth status`. Tokens are only
// included as their truncated display form unless --reveal is given.
type authStatusView struct {
	Status           cli.AuthStatus `json:"status"`
	AuthHost         string         `json:"authHost"`
	Token            string         `json:"token,omitempty"`
	ExpiresAt        *time.Time     `json:"expiresAt,omitempty"`
	HasRefreshToken  bool           `json:"hasRefreshToken"`
	RefreshExpiresAt *time.Time     `json:"refreshExpiresAt,omitempty"`
	RedactMode       bool           `json:"redactMode"`
}

func newAuthStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show whether a token is held, when it expires and whether it can be
refreshed. The status is computed locally; no request is sent.

Examples:
  lkp auth status
  lkp auth status -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuthStatus(cmd)
		},
	}
}

func (a *App) sessionView() cli.SessionView {
	st := a.store.Snapshot()
	v := cli.SessionView{
		State: st,
		Now:   a.now(),
	}
	if st.HasToken() {
		v.Expired = a.store.IsTokenExpired()
	}
	v.ExpiresAt, v.HasExpiry = a.store.ExpiresAt()
	v.RefreshExpiresAt, v.HasRefreshExpiry = a.store.RefreshExpiresAt()
	return v
}

func (a *App) runAuthStatus(cmd *cobra.Command) error {
	v := a.sessionView()
	reveal := a.flags.Output.Reveal || !v.State.RedactMode

	if a.tableOutput(cmd) {
		cli.RenderAuthStatus(cmd.OutOrStdout(), v, reveal)
		return nil
	}

	view := authStatusView{
		Status:          cli.StatusOf(v.State, v.Expired),
		AuthHost:        v.State.AuthHost,
		HasRefreshToken: v.State.HasRefreshToken(),
		RedactMode:      v.State.RedactMode,
	}
	if v.State.HasToken() {
		view.Token = redact.TruncateToken(*v.State.Token)
		if reveal {
			view.Token = *v.State.Token
		}
	}
	if v.HasExpiry {
		view.ExpiresAt = &v.ExpiresAt
	}
	if v.HasRefreshExpiry {
		view.RefreshExpiresAt = &v.RefreshExpiresAt
	}

	p, err := a.printer(cmd)
	if err != nil {
		return err
	}
	return p.PrintData(view)
}
