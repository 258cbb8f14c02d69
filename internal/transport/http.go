package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const defaultAccept = "application/json, text/plain, */*"

// maxResponseBody caps how much of a response body is kept.
const maxResponseBody = 16 << 20

// Options controls HTTPDoer construction.
type Options struct {
	Timeout             time.Duration
	TLSHandshakeTimeout time.Duration
	IdleConnTimeout     time.Duration
	UserAgent           string
	Transport           http.RoundTripper
}

// Option mutates Options.
type Option func(*Options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithTransport provides a custom round tripper overriding the default.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}

// WithUserAgent sets the User-Agent header sent when the request has none.
func WithUserAgent(ua string) Option {
	return func(o *Options) { o.UserAgent = ua }
}

// DefaultOptions returns the defaults used by NewHTTPDoer.
func DefaultOptions() Options {
	return Options{
		Timeout:             30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		UserAgent:           "lkp",
	}
}

// HTTPDoer performs requests with net/http.
type HTTPDoer struct {
	client    *http.Client
	userAgent string
}

// NewHTTPDoer constructs an HTTPDoer.
func NewHTTPDoer(opts ...Option) *HTTPDoer {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	rt := options.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   15 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			IdleConnTimeout:     options.IdleConnTimeout,
			TLSHandshakeTimeout: options.TLSHandshakeTimeout,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return &HTTPDoer{
		client:    &http.Client{Timeout: options.Timeout, Transport: rt},
		userAgent: options.UserAgent,
	}
}

// Do sends req. Any status outside 2xx is returned as *Error carrying the
// response.
func (d *HTTPDoer) Do(ctx context.Context, req *Request) (*Response, error) {
	target := req.URL()
	if !isAbsolute(target) {
		return nil, &Error{Method: req.Method, URL: target, Message: "no base host configured"}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Method: req.Method, URL: target, Message: err.Error(), Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", defaultAccept)
	}
	if d.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", d.userAgent)
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Method: req.Method, URL: target, Message: failureMessage(err), Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, &Error{Method: req.Method, URL: target, Message: "failed to read response body", Err: err}
	}

	resp := &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}

	if resp.Status < 200 || resp.Status > 299 {
		msg := serverMessage(data)
		if msg == "" {
			msg = fmt.Sprintf("request failed with status code %d", resp.Status)
		}
		return resp, &Error{Method: req.Method, URL: target, Message: msg, Response: resp}
	}
	return resp, nil
}

// failureMessage drops the URL net/http puts in front of client errors; it
// would carry the query string into logs. Error.URL keeps the target.
func failureMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
