package console

import (
	"os"
	"strings"

	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	pkgstrings "github.com/Gustavo032/leankeep-api-guard/pkg/strings"
)

const (
	promptPrefix         = "lkp"
	promptChevronUnicode = "»"
	promptChevronASCII   = ">"
)

// Prompt state indicators. Redaction being off is flagged because anything
// printed may then be pasted somewhere with live tokens in it.
const (
	StateAuthRequired = "[AUTH REQUIRED]"
	StateReveal       = "[REVEAL]"
)

// maxHostLength bounds the API host shown in the prompt.
const maxHostLength = 28

// buildPrompt renders the prompt for st, for example
//
//	lkp api.lkp.app.br »
//	lkp api.lkp.app.br [AUTH REQUIRED] »
//	lkp staging.api.lkp.app.br [REVEAL] »
func (c *Console) buildPrompt(st session.State) string {
	chevron := promptChevronASCII
	if c.useUnicode {
		chevron = promptChevronUnicode
	}

	parts := []string{promptPrefix}
	if host := displayHost(st.APIHost); host != "" {
		parts = append(parts, host)
	}
	if !st.HasToken() {
		parts = append(parts, StateAuthRequired)
	}
	if !st.RedactMode {
		parts = append(parts, StateReveal)
	}
	parts = append(parts, chevron)

	return strings.Join(parts, " ") + " "
}

func displayHost(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	return pkgstrings.TruncateMiddle(host, maxHostLength)
}

// detectUnicodeSupport checks if the terminal likely supports unicode characters.
func detectUnicodeSupport() bool {
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	for _, v := range []string{os.Getenv("LANG"), os.Getenv("LC_ALL")} {
		lower := strings.ToLower(v)
		if strings.Contains(lower, "utf-8") || strings.Contains(lower, "utf8") {
			return true
		}
	}

	termLower := strings.ToLower(term)
	for _, ut := range []string{"xterm", "screen", "tmux", "alacritty", "kitty", "iterm"} {
		if strings.Contains(termLower, ut) {
			return true
		}
	}
	return true
}
