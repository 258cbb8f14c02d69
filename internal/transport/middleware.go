package transport

import (
	"context"
	"errors"
	"log/slog"
	neturl "net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Gustavo032/leankeep-api-guard/internal/redact"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

// SessionReader is the read-only view of the session the chain needs.
// *session.Store satisfies it.
type SessionReader interface {
	Snapshot() session.State
	Token() *oauth2.Token
}

// Middleware wraps a Doer.
type Middleware func(Doer) Doer

// Chain wraps d with mws. The first middleware sees the request first.
func Chain(d Doer, mws ...Middleware) Doer {
	for i := len(mws) - 1; i >= 0; i-- {
		d = mws[i](d)
	}
	return d
}

// WithBaseHost fills Request.BaseURL from the session according to the
// request's surface. Requests with an explicit BaseURL or an absolute path
// are left alone.
func WithBaseHost(s SessionReader) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.BaseURL != "" || isAbsolute(req.Path) {
				return next.Do(ctx, req)
			}
			out := req.clone()
			st := s.Snapshot()
			switch req.Surface {
			case SurfaceIdentity:
				out.BaseURL = st.AuthHost
			default:
				out.BaseURL = st.APIHost
			}
			return next.Do(ctx, out)
		})
	}
}

// WithBearer attaches the session token unless the request already carries
// an Authorization header.
func WithBearer(s SessionReader) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.Header.Get("Authorization") != "" {
				return next.Do(ctx, req)
			}
			tok := s.Token()
			if tok == nil || tok.AccessToken == "" {
				return next.Do(ctx, req)
			}
			out := req.clone()
			out.Header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
			return next.Do(ctx, out)
		})
	}
}

// WithLogging emits one entry before the call and one after it. The url
// attribute carries no query string; query parameters, headers and bodies
// pass through the transport redaction policy first.
func WithLogging() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			url, query := logTarget(req)
			attrs := []slog.Attr{
				slog.String("surface", req.Surface.String()),
				slog.String("method", req.Method),
				slog.String("url", url),
			}
			if len(query) > 0 {
				attrs = append(attrs, slog.Any("query", redact.Value(query)))
			}
			attrs = append(attrs,
				slog.Any("headers", redact.HTTPHeader(req.Header)),
				slog.Any("body", redact.Body(req.Body)),
			)
			logging.Attrs(logging.LevelInfo, "HTTP", "request", attrs...)

			resp, err := next.Do(ctx, req)
			if err != nil {
				attrs := []slog.Attr{
					slog.String("method", req.Method),
					slog.String("url", url),
				}
				var terr *Error
				if errors.As(err, &terr) {
					attrs = append(attrs, slog.String("message", terr.Message))
					if terr.Response != nil {
						attrs = append(attrs, slog.Int("status", terr.Response.Status))
					}
				} else {
					attrs = append(attrs, slog.String("message", err.Error()))
				}
				logging.Attrs(logging.LevelError, "HTTP", "request failed", attrs...)
				return resp, err
			}

			logging.Attrs(logging.LevelInfo, "HTTP", "response",
				slog.String("method", req.Method),
				slog.String("url", url),
				slog.Int("status", resp.Status),
				slog.Any("body", redact.Body(resp.Body)),
			)
			return resp, nil
		})
	}
}

// logTarget splits the request URL into the part that is safe to log as is
// and the query, including any query written inline in the path.
func logTarget(req *Request) (string, neturl.Values) {
	target, rawQuery, _ := strings.Cut(req.Target(), "?")
	query := neturl.Values{}
	if rawQuery != "" {
		if inline, err := neturl.ParseQuery(rawQuery); err == nil {
			query = inline
		} else {
			query.Set("query", redact.Placeholder)
		}
	}
	for k, vs := range req.Query {
		query[k] = append(query[k], vs...)
	}
	return target, query
}
