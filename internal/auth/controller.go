package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	"github.com/Gustavo032/leankeep-api-guard/internal/transport"
	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

const (
	// LoginPath is the identity endpoint for login (form-urlencoded).
	LoginPath = "/v1/auth"
	// RefreshPath is the identity endpoint for refresh (JSON).
	RefreshPath = "/v1/refresh"

	// DefaultPlatform is the platform code sent when none is given.
	DefaultPlatform = 8
)

// State is the authentication state derived from the session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Session is the part of *session.Store the controller uses.
type Session interface {
	Snapshot() session.State
	IsTokenExpired() bool
	SetToken(pair session.TokenPair)
	ReplaceTokenIfCurrent(expectedRefresh string, pair session.TokenPair) bool
	Logout()
}

// Transport is the part of *transport.Client the controller uses.
type Transport interface {
	PostForm(ctx context.Context, surface transport.Surface, path string, form url.Values, header http.Header) (*transport.Response, error)
	PostJSON(ctx context.Context, surface transport.Surface, path string, body any, header http.Header) (*transport.Response, error)
}

// LoginInput is the login form. Use NewLoginInput to get the default flags.
type LoginInput struct {
	Login                string `validate:"required"`
	Password             string `validate:"required"`
	Platform             int    `validate:"gte=1"`
	AuthToken            bool
	StayConnected        bool
	ExpireCurrentSession bool
}

// NewLoginInput returns a LoginInput with platform 8, authtoken and
// stayConnected on, expireCurrentSession off.
func NewLoginInput(login, password string) LoginInput {
	return LoginInput{
		Login:         login,
		Password:      password,
		Platform:      DefaultPlatform,
		AuthToken:     true,
		StayConnected: true,
	}
}

func (in LoginInput) form() url.Values {
	form := url.Values{}
	form.Set("login", in.Login)
	form.Set("password", in.Password)
	form.Set("platform", strconv.Itoa(in.Platform))
	form.Set("authtoken", strconv.FormatBool(in.AuthToken))
	form.Set("stayConnected", strconv.FormatBool(in.StayConnected))
	form.Set("expireCurrentSession", strconv.FormatBool(in.ExpireCurrentSession))
	return form
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now used for expiry normalization.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller runs login, refresh and logout against a session.
type Controller struct {
	session  Session
	client   Transport
	validate *validator.Validate
	now      func() time.Time
	busy     atomic.Bool
}

// NewController creates a Controller.
func NewController(s Session, client Transport, opts ...Option) *Controller {
	c := &Controller{
		session:  s,
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether a login or refresh is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// State returns StateAuthenticated while a non-expired token is held.
func (c *Controller) State() State {
	if c.session.Snapshot().HasToken() && !c.session.IsTokenExpired() {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

func (c *Controller) acquire() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (c *Controller) release() {
	c.busy.Store(false)
}

// Login authenticates and stores the resulting token pair. A zero Platform
// is sent as DefaultPlatform. On any failure the session is left as it was.
func (c *Controller) Login(ctx context.Context, in LoginInput) error {
	if in.Platform == 0 {
		in.Platform = DefaultPlatform
	}
	if err := c.validate.Struct(in); err != nil {
		return &Error{Op: OpLogin, Message: validationMessage(err), Err: err}
	}

	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	host := c.session.Snapshot().AuthHost
	logging.Info("Auth", "Logging in as %s", in.Login)

	resp, err := c.client.PostForm(ctx, transport.SurfaceIdentity, LoginPath, in.form(), nil)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "login", Outcome: "failure", Host: host})
		return requestError(OpLogin, err)
	}

	pair, err := normalizeResponse(resp.Body, c.now())
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "login", Outcome: "failure", Host: host, Detail: "malformed response"})
		return &Error{Op: OpLogin, Message: fallbackMessage(OpLogin), Err: err, showCause: true}
	}

	c.session.SetToken(pair)
	logging.Audit(logging.AuditEvent{Action: "login", Outcome: "success", Host: host})
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. It fails with
// ErrNoRefreshToken before any request when none is held, and with
// ErrSuperseded when the session changed during the request.
func (c *Controller) Refresh(ctx context.Context) error {
	st := c.session.Snapshot()
	if !st.HasRefreshToken() {
		return &Error{Op: OpRefresh, Message: ErrNoRefreshToken.Error(), Err: ErrNoRefreshToken}
	}
	expected := *st.RefreshToken

	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	logging.Info("Auth", "Refreshing token")

	body := map[string]string{"refreshToken": expected}
	resp, err := c.client.PostJSON(ctx, transport.SurfaceIdentity, RefreshPath, body, nil)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "refresh", Outcome: "failure", Host: st.AuthHost})
		return requestError(OpRefresh, err)
	}

	pair, err := normalizeResponse(resp.Body, c.now())
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "refresh", Outcome: "failure", Host: st.AuthHost, Detail: "malformed response"})
		return &Error{Op: OpRefresh, Message: fallbackMessage(OpRefresh), Err: err, showCause: true}
	}

	if !c.session.ReplaceTokenIfCurrent(expected, pair) {
		logging.Audit(logging.AuditEvent{Action: "refresh", Outcome: "discarded", Host: st.AuthHost})
		return ErrSuperseded
	}
	return nil
}

// Logout clears the session. It is safe to call at any time, including
// while a refresh is in flight.
func (c *Controller) Logout() {
	c.session.Logout()
	logging.Info("Auth", "Session cleared")
}

// requestError builds the user-facing error for a failed exchange.
func requestError(op string, err error) *Error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		if msg := terr.ServerMessage(); msg != "" {
			return &Error{Op: op, Message: msg, Err: err}
		}
		if terr.Response != nil {
			return &Error{Op: op, Message: fallbackMessage(op), Err: err}
		}
	}
	return &Error{Op: op, Message: fallbackMessage(op), Err: err, showCause: true}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return strings.Join(parts, "; ")
}
