package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Gustavo032/leankeep-api-guard/internal/redact"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
)

// AuthStatus names the auth state shown by status and the console prompt.
type AuthStatus string

const (
	AuthStatusAnonymous     AuthStatus = "Not authenticated"
	AuthStatusAuthenticated AuthStatus = "Authenticated"
	AuthStatusExpired       AuthStatus = "Expired"
)

// StatusOf derives the displayed status from a snapshot.
func StatusOf(st session.State, expired bool) AuthStatus {
	switch {
	case !st.HasToken():
		return AuthStatusAnonymous
	case expired:
		return AuthStatusExpired
	default:
		return AuthStatusAuthenticated
	}
}

// Colored returns the status wrapped in its terminal color.
func (s AuthStatus) Colored() string {
	switch s {
	case AuthStatusAuthenticated:
		return text.FgGreen.Sprint(string(s))
	case AuthStatusExpired:
		return text.FgRed.Sprint(string(s))
	default:
		return text.FgYellow.Sprint(string(s))
	}
}

// SessionView is what status renders: the snapshot plus the derived times.
type SessionView struct {
	State            session.State
	Expired          bool
	ExpiresAt        time.Time
	HasExpiry        bool
	RefreshExpiresAt time.Time
	HasRefreshExpiry bool
	Now              time.Time
}

// RenderAuthStatus writes the auth section as a two-column table. Tokens
// are shown truncated unless reveal is set.
func RenderAuthStatus(w io.Writer, v SessionView, reveal bool) {
	t := newKeyValueTable(w, "Auth")
	st := v.State

	t.AppendRow(table.Row{"Status", StatusOf(st, v.Expired).Colored()})
	t.AppendRow(table.Row{"Identity host", st.AuthHost})

	if st.HasToken() {
		t.AppendRow(table.Row{"Token", secret(*st.Token, reveal)})
		if v.HasExpiry {
			t.AppendRow(table.Row{"Expires", FormatExpiry(v.ExpiresAt, v.Now)})
		} else {
			t.AppendRow(table.Row{"Expires", text.FgHiBlack.Sprint("unknown")})
		}
	}

	if st.HasRefreshToken() {
		refresh := text.FgGreen.Sprint("Available")
		if v.HasRefreshExpiry {
			refresh += " (" + FormatExpiry(v.RefreshExpiresAt, v.Now) + ")"
		}
		t.AppendRow(table.Row{"Refresh", refresh})
	} else if st.HasToken() {
		t.AppendRow(table.Row{"Refresh", text.FgYellow.Sprint("Not available (re-auth required on expiry)")})
	}

	t.AppendRow(table.Row{"Redact mode", onOff(st.RedactMode)})
	t.Render()
}

// RenderEnv writes the environment section.
func RenderEnv(w io.Writer, st session.State) {
	t := newKeyValueTable(w, "Environment")
	t.AppendRows([]table.Row{
		{"Identity host", st.AuthHost},
		{"API host", st.APIHost},
		{"EmpresaId", orDash(st.EmpresaID)},
		{"UnidadeId", orDash(st.UnidadeID)},
		{"SiteId", orDash(st.SiteID)},
		{"X-Transaction-Id", orDash(st.XTransactionID)},
	})
	t.Render()
}

func newKeyValueTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
	})
	return t
}

func secret(v string, reveal bool) string {
	if reveal {
		return v
	}
	return redact.TruncateToken(v)
}

func onOff(b bool) string {
	if b {
		return text.FgGreen.Sprint("on")
	}
	return text.FgYellow.Sprint("off")
}

func orDash(s string) string {
	if s == "" {
		return text.FgHiBlack.Sprint("-")
	}
	return s
}
