package redact

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Placeholder replaces every value whose key matches the transport deny-list.
const Placeholder = "[REDACTED]"

// sensitiveKeys is the transport deny-list. Entries are normalized the same
// way keys are before matching, so "refresh_token" and "refreshtoken" are
// equivalent.
var sensitiveKeys = []string{
	"authorization",
	"password",
	"token",
	"refreshtoken",
	"refresh_token",
	"authtoken",
	"auth_token",
	"secret",
	"apikey",
	"api_key",
}

var normalizedSensitiveKeys = func() []string {
	out := make([]string, 0, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		out = append(out, normalizeKey(k))
	}
	return out
}()

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer("-", "", "_", "").Replace(key)
}

// IsSensitiveKey reports whether a header or field name is on the transport
// deny-list. Matching is case-insensitive, ignores '-' and '_', and is a
// substring match ("X-Api-Key" and "clientSecret" both match).
func IsSensitiveKey(key string) bool {
	k := normalizeKey(key)
	for _, s := range normalizedSensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Headers returns a copy of h with sensitive header values replaced.
// A nil map yields an empty one.
func Headers(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if IsSensitiveKey(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = v
	}
	return out
}

// HTTPHeader is Headers for net/http header maps. Multi-valued sensitive
// headers collapse to a single placeholder.
func HTTPHeader(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, vs := range h {
		if IsSensitiveKey(k) {
			out[k] = []string{Placeholder}
			continue
		}
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}

// Value walks maps and slices and replaces the value of every sensitive key.
// The input is never modified. Scalars and unknown types pass through.
func Value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Placeholder
				continue
			}
			out[k] = Value(val)
		}
		return out
	case map[string]string:
		return Headers(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	case url.Values:
		out := make(map[string]any, len(t))
		for k, vs := range t {
			if IsSensitiveKey(k) {
				out[k] = Placeholder
				continue
			}
			if len(vs) == 1 {
				out[k] = vs[0]
				continue
			}
			items := make([]any, len(vs))
			for i, s := range vs {
				items[i] = s
			}
			out[k] = items
		}
		return out
	default:
		return v
	}
}

// Body decodes a raw request or response body and returns a redacted value
// suitable for logging. JSON bodies are decoded and walked; form-encoded
// bodies are parsed into fields; anything else is returned as a string.
// An empty body yields nil.
func Body(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return Value(decoded)
	}

	s := string(raw)
	if looksFormEncoded(s) {
		if vals, err := url.ParseQuery(s); err == nil && len(vals) > 0 {
			return Value(vals)
		}
	}
	return s
}

func looksFormEncoded(s string) bool {
	if !strings.Contains(s, "=") || strings.ContainsAny(s, " \n\t{}") {
		return false
	}
	return true
}
