package redact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BearerPlaceholder replaces the Authorization header in redacted cURL output.
const BearerPlaceholder = "Bearer " + Placeholder

// CurlOptions describes the request a cURL command is generated for.
type CurlOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	// Query values may be strings, numbers, booleans, or []string / []any
	// for repeated keys. nil and "" values are dropped.
	Query map[string]any
	// Data is sent with -d. Strings and []byte are used verbatim; anything
	// else is encoded as indented JSON.
	Data any
	// RevealSecrets keeps the Authorization header as is. The zero value
	// redacts it.
	RevealSecrets bool
}

// BuildCurl renders a cURL command for the request. Only the Authorization
// header is ever redacted.
func BuildCurl(opts CurlOptions) string {
	var b strings.Builder
	b.WriteString("curl -X ")
	b.WriteString(strings.ToUpper(opts.Method))

	for _, k := range sortedKeys(opts.Headers) {
		v := opts.Headers[k]
		if !opts.RevealSecrets && strings.EqualFold(k, "Authorization") {
			v = BearerPlaceholder
		}
		fmt.Fprintf(&b, " \\\n  -H \"%s: %s\"", k, v)
	}

	if data, ok := curlData(opts.Data); ok {
		fmt.Fprintf(&b, " \\\n  -d '%s'", data)
	}

	fullURL := opts.URL
	if qs := QueryString(opts.Query); qs != "" {
		fullURL += "?" + qs
	}
	fmt.Fprintf(&b, " \\\n  \"%s\"", fullURL)

	return b.String()
}

// QueryString serializes query parameters with keys in sorted order and
// values percent-encoded the way browsers encode URI components.
func QueryString(query map[string]any) string {
	return joinQuery(query, encodeURIComponent)
}

// DisplayQuery is QueryString without encoding, for showing a request to a
// human.
func DisplayQuery(query map[string]any) string {
	return joinQuery(query, func(s string) string { return s })
}

func joinQuery(query map[string]any, encode func(string) string) string {
	var parts []string
	for _, k := range sortedKeys(query) {
		v := query[k]
		if isEmptyQueryValue(v) {
			continue
		}
		switch t := v.(type) {
		case []string:
			items := make([]string, len(t))
			for i, item := range t {
				items[i] = k + "=" + encode(item)
			}
			parts = append(parts, strings.Join(items, "&"))
		case []any:
			items := make([]string, len(t))
			for i, item := range t {
				items[i] = k + "=" + encode(fmt.Sprint(item))
			}
			parts = append(parts, strings.Join(items, "&"))
		default:
			parts = append(parts, k+"="+encode(fmt.Sprint(t)))
		}
	}
	return strings.Join(parts, "&")
}

func isEmptyQueryValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

func curlData(data any) (string, bool) {
	switch t := data.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case []byte:
		return string(t), len(t) > 0
	case json.RawMessage:
		return string(t), len(t) > 0
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Sprint(data), true
	}
	return strings.TrimSuffix(buf.String(), "\n"), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const upperHex = "0123456789ABCDEF"

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
// url.QueryEscape is not equivalent: it writes spaces as '+' and escapes !*'().
func encodeURIComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
