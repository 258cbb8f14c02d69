package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// Client is the standard chain over a Doer.
type Client struct {
	doer Doer
}

// NewClient builds base-host -> bearer -> logging -> doer. Extra middlewares
// run between logging and the doer. A nil doer uses NewHTTPDoer().
func NewClient(s SessionReader, doer Doer, extra ...Middleware) *Client {
	if doer == nil {
		doer = NewHTTPDoer()
	}
	mws := []Middleware{WithBaseHost(s), WithBearer(s), WithLogging()}
	mws = append(mws, extra...)
	return &Client{doer: Chain(doer, mws...)}
}

// Do sends req through the chain.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.doer.Do(ctx, req)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, surface Surface, path string, form url.Values, header http.Header) (*Response, error) {
	req := &Request{
		Surface: surface,
		Method:  http.MethodPost,
		Path:    path,
		Header:  header.Clone(),
		Body:    []byte(form.Encode()),
	}
	req.ensureHeader()
	req.Header.Set("Content-Type", contentTypeForm)
	return c.Do(ctx, req)
}

// PostJSON sends body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, surface Surface, path string, body any, header http.Header) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, surface, path, body, header)
}

// Put sends body encoded as JSON with PUT.
func (c *Client) Put(ctx context.Context, surface Surface, path string, body any, header http.Header) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, surface, path, body, header)
}

// Get sends a GET with the given query.
func (c *Client) Get(ctx context.Context, surface Surface, path string, query url.Values, header http.Header) (*Response, error) {
	req := &Request{
		Surface: surface,
		Method:  http.MethodGet,
		Path:    path,
		Header:  header.Clone(),
		Query:   query,
	}
	return c.Do(ctx, req)
}

func (c *Client) sendJSON(ctx context.Context, method string, surface Surface, path string, body any, header http.Header) (*Response, error) {
	data, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	req := &Request{
		Surface: surface,
		Method:  method,
		Path:    path,
		Header:  header.Clone(),
		Body:    data,
	}
	req.ensureHeader()
	req.Header.Set("Content-Type", contentTypeJSON)
	return c.Do(ctx, req)
}

func encodeJSON(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return data, nil
}
