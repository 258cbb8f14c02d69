package redact

import (
	"regexp"
	"strings"
)

// Masked is what short or non-string sensitive values become on display.
const Masked = "***"

// revealThreshold is the length above which a sensitive string keeps its
// first revealPrefix and last revealSuffix characters.
const (
	revealThreshold = 20
	revealPrefix    = 6
	revealSuffix    = 4
)

// displayFields is narrower than the transport deny-list and also covers
// personal data (email, CPF/CNPJ, phone numbers) and trace identifiers.
var displayFields = []string{
	"token",
	"refreshToken",
	"authToken",
	"password",
	"senha",
	"email",
	"jti",
	"traceId",
	"cpf",
	"cnpj",
	"telefone",
	"celular",
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+`)

// IsDisplaySensitive reports whether a field name is on the display list.
// Matching is a case-insensitive substring match on the raw key.
func IsDisplaySensitive(key string) bool {
	k := strings.ToLower(key)
	for _, f := range displayFields {
		if strings.Contains(k, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// Response returns a copy of v prepared for display: sensitive fields are
// partially revealed or masked, and email addresses inside any other string
// are masked. Maps and slices are walked; everything else is returned as is.
func Response(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = displayField(k, val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Response(val)
		}
		return out
	default:
		return v
	}
}

func displayField(key string, val any) any {
	if IsDisplaySensitive(key) {
		if s, ok := val.(string); ok && s != "" {
			return reveal(s)
		}
		return Masked
	}

	switch t := val.(type) {
	case string:
		if emailPattern.MatchString(t) {
			return MaskEmails(t)
		}
		return t
	case map[string]any, []any:
		return Response(t)
	default:
		return val
	}
}

// MaskEmails replaces every email address in s with its first local-part
// character followed by "***@" and the domain.
func MaskEmails(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, func(match string) string {
		at := strings.IndexByte(match, '@')
		local, domain := match[:at], match[at+1:]
		first := []rune(local)[0]
		return string(first) + Masked + "@" + domain
	})
}

// reveal keeps the head and tail of strings longer than revealThreshold.
func reveal(s string) string {
	r := []rune(s)
	if len(r) <= revealThreshold {
		return Masked
	}
	return string(r[:revealPrefix]) + "..." + string(r[len(r)-revealSuffix:])
}

// TruncateToken renders a standalone token for display. An empty token
// renders as an empty string.
func TruncateToken(token string) string {
	if token == "" {
		return ""
	}
	return reveal(token)
}
