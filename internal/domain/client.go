package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Gustavo032/leankeep-api-guard/internal/redact"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	"github.com/Gustavo032/leankeep-api-guard/internal/transport"
)

// Context identifiers, spelled as the API expects them in headers.
const (
	HeaderEmpresaID      = "EmpresaId"
	HeaderUnidadeID      = "UnidadeId"
	HeaderSiteID         = "SiteId"
	HeaderXTransactionID = "X-Transaction-Id"
)

// Session is the read-only session view the client needs.
type Session interface {
	Snapshot() session.State
}

// Doer sends a request; *transport.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// RequestSpec describes an arbitrary call against the domain surface.
// Require lists context identifiers that must be configured; the request is
// not sent otherwise.
type RequestSpec struct {
	Operation string
	Method    string
	Path      string
	Headers   map[string]string
	Query     map[string]any
	Data      any
	Require   []string
}

// RequestInfo describes a request as it was sent.
type RequestInfo struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Query   map[string]any    `json:"query,omitempty"`
	Data    any               `json:"data,omitempty"`
}

// Curl renders the request as a cURL command. The bearer token is replaced
// by a placeholder unless reveal is set.
func (ri RequestInfo) Curl(reveal bool) string {
	return redact.BuildCurl(redact.CurlOptions{
		Method:        ri.Method,
		URL:           ri.URL,
		Headers:       ri.Headers,
		Query:         ri.Query,
		Data:          ri.Data,
		RevealSecrets: reveal,
	})
}

// DisplayHeaders returns the headers with the Authorization value replaced
// unless reveal is set.
func (ri RequestInfo) DisplayHeaders(reveal bool) map[string]string {
	out := make(map[string]string, len(ri.Headers))
	for k, v := range ri.Headers {
		if !reveal && strings.EqualFold(k, "Authorization") {
			v = redact.BearerPlaceholder
		}
		out[k] = v
	}
	return out
}

// Result is the outcome of a call. Response is set whenever the server
// answered, including non-2xx answers.
type Result struct {
	Request  RequestInfo
	Response *transport.Response
}

// Client issues domain calls.
type Client struct {
	session  Session
	doer     Doer
	validate *validator.Validate
}

// NewClient creates a Client.
func NewClient(s Session, doer Doer) *Client {
	return &Client{
		session:  s,
		doer:     doer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Call sends spec. Requirements are checked first; a *ConfigError means
// nothing was sent and the returned Result is nil.
func (c *Client) Call(ctx context.Context, spec RequestSpec) (*Result, error) {
	st := c.session.Snapshot()
	op := spec.Operation
	if op == "" {
		op = strings.ToUpper(spec.Method) + " " + spec.Path
	}

	if missing := missingContext(st, spec.Require); len(missing) > 0 {
		return nil, &ConfigError{Operation: op, Missing: missing}
	}

	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	// Header names are kept as written (EmpresaId, not Empresaid).
	shown := make(map[string]string, len(spec.Headers)+2)
	header := make(http.Header, len(spec.Headers)+2)
	for k, v := range spec.Headers {
		header[k] = []string{v}
		shown[k] = v
	}
	if st.XTransactionID != "" && !hasHeader(shown, HeaderXTransactionID) {
		header[HeaderXTransactionID] = []string{st.XTransactionID}
		shown[HeaderXTransactionID] = st.XTransactionID
	}

	var body []byte
	if spec.Data != nil {
		var err error
		body, err = encodeBody(spec.Data)
		if err != nil {
			return nil, &InputError{Operation: op, Err: err}
		}
		header.Set("Content-Type", "application/json")
	}

	req := &transport.Request{
		Surface: transport.SurfaceDomain,
		Method:  method,
		Path:    spec.Path,
		Header:  header,
		Query:   toValues(spec.Query),
		Body:    body,
	}

	result := &Result{Request: describe(st, req, shown, spec)}
	resp, err := c.doer.Do(ctx, req)
	result.Response = resp
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.Response != nil {
			result.Response = terr.Response
		}
		return result, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (c *Client) validateInput(op string, v any) error {
	if err := c.validate.Struct(v); err != nil {
		return &InputError{Operation: op, Err: err}
	}
	return nil
}

// missingContext returns the required identifiers that are empty in st.
func missingContext(st session.State, required []string) []string {
	var missing []string
	for _, name := range required {
		if contextValue(st, name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func contextValue(st session.State, name string) string {
	switch name {
	case HeaderEmpresaID:
		return st.EmpresaID
	case HeaderUnidadeID:
		return st.UnidadeID
	case HeaderSiteID:
		return st.SiteID
	case HeaderXTransactionID:
		return st.XTransactionID
	default:
		return ""
	}
}

// describe builds the RequestInfo shown to the user. It includes the bearer
// header the chain will attach so the cURL export is complete.
func describe(st session.State, req *transport.Request, headers map[string]string, spec RequestSpec) RequestInfo {
	if st.HasToken() && !hasHeader(headers, "Authorization") {
		headers["Authorization"] = "Bearer " + *st.Token
	}

	target := spec.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(st.APIHost, "/") + "/" + strings.TrimLeft(spec.Path, "/")
	}

	return RequestInfo{
		Method:  req.Method,
		URL:     target,
		Headers: headers,
		Query:   spec.Query,
		Data:    spec.Data,
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func encodeBody(data any) ([]byte, error) {
	switch v := data.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.New("body is not valid JSON")
		}
		return v, nil
	case []byte:
		if !json.Valid(v) {
			return nil, errors.New("body is not valid JSON")
		}
		return v, nil
	}
	return json.Marshal(data)
}

// toValues converts a display query into url.Values. Nil and empty string
// values are dropped; slices become repeated keys.
func toValues(query map[string]any) url.Values {
	if len(query) == 0 {
		return nil
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		switch v := query[k].(type) {
		case nil:
		case string:
			if v != "" {
				values.Add(k, v)
			}
		case []string:
			for _, item := range v {
				values.Add(k, item)
			}
		case []any:
			for _, item := range v {
				values.Add(k, fmt.Sprint(item))
			}
		default:
			values.Add(k, fmt.Sprint(v))
		}
	}
	return values
}
