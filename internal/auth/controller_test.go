package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	"github.com/Gustavo032/leankeep-api-guard/internal/transport"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type identityServer struct {
	*httptest.Server
	calls   atomic.Int32
	handler http.HandlerFunc
}

func newIdentityServer(t *testing.T, handler http.HandlerFunc) *identityServer {
	t.Helper()
	s := &identityServer{handler: handler}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestController(t *testing.T, authHost string) (*Controller, *session.Store) {
	t.Helper()
	store := session.New(session.NewMemoryStorage(), session.WithClock(fixedClock))
	store.SetEnvVars(session.EnvVars{AuthHost: &authHost})
	client := transport.NewClient(store, nil)
	return NewController(store, client, WithClock(fixedClock)), store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func tokenBody(access, refresh string) map[string]any {
	return map[string]any{
		"authToken":        map[string]string{"token": access},
		"refreshToken":     map[string]string{"token": refresh},
		"expiresIn":        3600,
		"refreshExpiresIn": 86400,
	}
}

func TestLogin_Success(t *testing.T) {
	var form url.Values
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, LoginPath, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		writeJSON(w, http.StatusOK, tokenBody("access-1", "refresh-1"))
	})

	c, store := newTestController(t, srv.URL)
	require.NoError(t, c.Login(context.Background(), NewLoginInput("user@example.com", "s3cret")))

	assert.Equal(t, "user@example.com", form.Get("login"))
	assert.Equal(t, "s3cret", form.Get("password"))
	assert.Equal(t, "8", form.Get("platform"))
	assert.Equal(t, "true", form.Get("authtoken"))
	assert.Equal(t, "true", form.Get("stayConnected"))
	assert.Equal(t, "false", form.Get("expireCurrentSession"))

	st := store.Snapshot()
	require.True(t, st.HasToken())
	assert.Equal(t, "access-1", *st.Token)
	assert.Equal(t, "refresh-1", *st.RefreshToken)
	assert.Equal(t, int64(3600), *st.ExpiresIn)
	assert.Equal(t, int64(86400), *st.RefreshExpiresIn)
	assert.Equal(t, testNow.UnixMilli(), *st.TokenSetAt)
	assert.Equal(t, StateAuthenticated, c.State())
	assert.False(t, c.Busy())
}

func TestLogin_ZeroPlatformUsesDefault(t *testing.T) {
	var platform string
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		platform = r.PostForm.Get("platform")
		writeJSON(w, http.StatusOK, tokenBody("a", "r"))
	})

	c, _ := newTestController(t, srv.URL)
	require.NoError(t, c.Login(context.Background(), LoginInput{Login: "u", Password: "p"}))
	assert.Equal(t, "8", platform)
}

func TestLogin_ValidationFailsBeforeNetwork(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("a", "r"))
	})

	c, store := newTestController(t, srv.URL)
	err := c.Login(context.Background(), NewLoginInput("", ""))

	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, OpLogin, authErr.Op)
	assert.Contains(t, authErr.Message, "login is required")
	assert.Contains(t, authErr.Message, "password is required")
	assert.Zero(t, srv.calls.Load())
	assert.Nil(t, store.Snapshot().Token)
}

func TestLogin_ServerMessage(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Usuário ou senha inválidos"})
	})

	c, store := newTestController(t, srv.URL)
	before := store.Snapshot()

	err := c.Login(context.Background(), NewLoginInput("u", "wrong"))
	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Usuário ou senha inválidos", authErr.Error())

	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusUnauthorized, terr.StatusCode())

	assert.Equal(t, before, store.Snapshot())
	assert.False(t, c.Busy())
}

func TestLogin_FallbackMessage(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c, _ := newTestController(t, srv.URL)
	err := c.Login(context.Background(), NewLoginInput("u", "p"))
	require.Error(t, err)
	assert.Equal(t, "login failed", err.Error())
}

func TestLogin_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	c, store := newTestController(t, host)
	err := c.Login(context.Background(), NewLoginInput("u", "p"))

	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "login failed", authErr.Message)
	assert.Contains(t, authErr.Error(), "login failed: ")
	assert.Nil(t, store.Snapshot().Token)
	assert.False(t, c.Busy())
}

func TestLogin_MalformedResponse(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"expiresIn": 3600})
	})

	c, store := newTestController(t, srv.URL)
	err := c.Login(context.Background(), NewLoginInput("u", "p"))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Nil(t, store.Snapshot().Token)
}

func TestLogin_MissingRefreshTokenStoresNothing(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"authToken": map[string]string{"token": "access-1"}, "expiresIn": 3600})
	})

	c, store := newTestController(t, srv.URL)
	before := store.Snapshot()

	err := c.Login(context.Background(), NewLoginInput("u", "p"))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, StateUnauthenticated, c.State())
}

func TestLogin_Busy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, http.StatusOK, tokenBody("a", "r"))
	})

	c, _ := newTestController(t, srv.URL)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = c.Login(context.Background(), NewLoginInput("u", "p"))
	}()

	<-entered
	assert.True(t, c.Busy())
	assert.ErrorIs(t, c.Login(context.Background(), NewLoginInput("u", "p")), ErrBusy)
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrNoRefreshToken, "no refresh token yet, rejected before the busy check")

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.False(t, c.Busy())
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("a", "r"))
	})

	c, store := newTestController(t, srv.URL)
	before := store.Snapshot()

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.True(t, IsAuthError(err))
	assert.Zero(t, srv.calls.Load())
	assert.Equal(t, before, store.Snapshot())
}

func TestRefresh_Success(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RefreshPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"refreshToken":"refresh-1"}`, string(data))

		writeJSON(w, http.StatusOK, tokenBody("access-2", "refresh-2"))
	})

	c, store := newTestController(t, srv.URL)
	store.SetToken(session.TokenPair{Token: "access-1", RefreshToken: "refresh-1", ExpiresIn: 10, RefreshExpiresIn: 20})

	require.NoError(t, c.Refresh(context.Background()))

	st := store.Snapshot()
	assert.Equal(t, "access-2", *st.Token)
	assert.Equal(t, "refresh-2", *st.RefreshToken)
	assert.Equal(t, int64(3600), *st.ExpiresIn)
}

func TestRefresh_FailureLeavesTokens(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, store := newTestController(t, srv.URL)
	store.SetToken(session.TokenPair{Token: "access-1", RefreshToken: "refresh-1", ExpiresIn: 10, RefreshExpiresIn: 20})
	before := store.Snapshot()

	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "token refresh failed", err.Error())
	assert.Equal(t, before, store.Snapshot())
}

func TestRefresh_MissingRefreshTokenLeavesSession(t *testing.T) {
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"authToken": map[string]string{"token": "new-access"}, "expiresIn": 3600})
	})

	c, store := newTestController(t, srv.URL)
	store.SetToken(session.TokenPair{Token: "access-1", RefreshToken: "refresh-1", ExpiresIn: 10, RefreshExpiresIn: 20})
	before := store.Snapshot()

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, "refresh-1", *store.Snapshot().RefreshToken)
}

func TestRefresh_LateResponseAfterLogout(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, http.StatusOK, tokenBody("access-2", "refresh-2"))
	})

	c, store := newTestController(t, srv.URL)
	store.SetToken(session.TokenPair{Token: "access-1", RefreshToken: "refresh-1", ExpiresIn: 10, RefreshExpiresIn: 20})

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()

	<-entered
	c.Logout()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Nil(t, store.Snapshot().Token, "late refresh must not resurrect the session")
	assert.Equal(t, StateUnauthenticated, c.State())
}

func TestLogout_Idempotent(t *testing.T) {
	c, store := newTestController(t, "https://auth.example.com")
	store.SetToken(session.TokenPair{Token: "a", RefreshToken: "r", ExpiresIn: 10})

	c.Logout()
	c.Logout()
	assert.Nil(t, store.Snapshot().Token)
	assert.Equal(t, StateUnauthenticated, c.State())
}
