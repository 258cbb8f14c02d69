package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Surface selects which configured base host a request goes to.
type Surface int

const (
	// SurfaceIdentity is the authentication host (login, refresh).
	SurfaceIdentity Surface = iota
	// SurfaceDomain is the business API host.
	SurfaceDomain
)

func (s Surface) String() string {
	switch s {
	case SurfaceIdentity:
		return "identity"
	case SurfaceDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Request is one outgoing call. BaseURL is normally left empty and filled by
// WithBaseHost; an absolute Path bypasses base host resolution.
type Request struct {
	Surface Surface
	Method  string
	BaseURL string
	Path    string
	Header  http.Header
	Query   url.Values
	Body    []byte
}

// Target returns the fully qualified URL without the query string.
func (r *Request) Target() string {
	if isAbsolute(r.Path) {
		return r.Path
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(r.Path, "/")
}

// URL returns the fully qualified URL including the query string.
func (r *Request) URL() string {
	target := r.Target()
	if len(r.Query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + r.Query.Encode()
}

func (r *Request) ensureHeader() {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
}

// clone returns a copy whose header map can be modified without touching
// the caller's request.
func (r *Request) clone() *Request {
	out := *r
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	return &out
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Response is a server answer with its raw body.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Data returns the body decoded as JSON, or as a string when it is not JSON.
// An empty body yields nil.
func (r *Response) Data() any {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return string(r.Body)
	}
	return v
}

// Error is a failed exchange. Response is set when the server answered with
// a non-2xx status; it is nil for network failures.
type Error struct {
	Method   string
	URL      string
	Message  string
	Response *Response
	Err      error
}

func (e *Error) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.URL, e.Message, e.Response.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the response status, or 0 when there was no response.
func (e *Error) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.Status
}

// ServerMessage returns the "message" field of a JSON error body, if any.
func (e *Error) ServerMessage() string {
	if e.Response == nil {
		return ""
	}
	return serverMessage(e.Response.Body)
}

func serverMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	switch m := payload.Message.(type) {
	case string:
		return m
	case nil:
		return ""
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Doer performs a request. Implementations return *Error for failed
// exchanges.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
