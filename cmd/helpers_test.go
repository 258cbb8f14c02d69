package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gustavo032/leankeep-api-guard/internal/config"
	"github.com/Gustavo032/leankeep-api-guard/internal/transport"
)

const (
	testLogin    = "ana@example.com"
	testPassword = "s3cret"
	testToken    = "access-token-0123456789abcdef"
	testRefresh  = "refresh-token-0123456789abcdef"
)

type apiRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// fakeAPI serves both surfaces: /v1/auth and /v1/refresh answer with a token
// pair, everything else goes to the domain handler.
type fakeAPI struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []apiRequest
	token     string
	loginFail string
	domain    http.HandlerFunc
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{token: testToken}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, apiRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		token, loginFail, handler := f.token, f.loginFail, f.domain
		f.mu.Unlock()

		switch r.URL.Path {
		case "/v1/auth", "/v1/refresh":
			if loginFail != "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": loginFail})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"authToken":        map[string]string{"token": token},
				"refreshToken":     map[string]string{"token": testRefresh},
				"expiresIn":        3600,
				"refreshExpiresIn": 86400,
			})
			return
		}

		if handler != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) setToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) failLogins(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginFail = msg
}

func (f *fakeAPI) onDomain(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domain = h
}

// domainRequests returns the requests that reached the domain handler.
func (f *fakeAPI) domainRequests() []apiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiRequest
	for _, r := range f.requests {
		if r.Path != "/v1/auth" && r.Path != "/v1/refresh" {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeAPI) lastDomainRequest(t *testing.T) apiRequest {
	t.Helper()
	reqs := f.domainRequests()
	require.NotEmpty(t, reqs, "no request reached the domain API")
	return reqs[len(reqs)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))
}

func newTestApp(t *testing.T, doer transport.Doer) *App {
	t.Helper()
	a := newApp()
	a.logOut = io.Discard
	a.doer = doer
	t.Cleanup(a.Close)
	return a
}

func runLkp(t *testing.T, a *App, args ...string) (string, string, error) {
	t.Helper()
	return runLkpWithInput(t, a, "", args...)
}

func runLkpWithInput(t *testing.T, a *App, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// testEnv is a config directory whose hosts point at a fake API and whose
// session slot lives in a temp dir.
type testEnv struct {
	t   *testing.T
	api *fakeAPI
	dir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, k := range []string{config.EnvAuthHost, config.EnvAPIHost, config.EnvStorage, config.EnvRedisAddr} {
		t.Setenv(k, "")
	}

	api := newFakeAPI(t)
	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf("authHost: %s\napiHost: %s\nstorage:\n  backend: file\n  dir: %q\n",
		api.URL, api.URL, filepath.Join(dir, "session")))

	return &testEnv{t: t, api: api, dir: dir}
}

func (e *testEnv) sessionDir() string {
	return filepath.Join(e.dir, "session")
}

func (e *testEnv) newApp() *App {
	return newTestApp(e.t, nil)
}

func (e *testEnv) run(a *App, args ...string) (string, string, error) {
	e.t.Helper()
	return runLkp(e.t, a, append([]string{"--config-path", e.dir}, args...)...)
}

func (e *testEnv) runWithInput(a *App, stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	return runLkpWithInput(e.t, a, stdin, append([]string{"--config-path", e.dir}, args...)...)
}

func (e *testEnv) mustRun(a *App, args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run(a, args...)
	require.NoError(e.t, err, "lkp %s: %s", strings.Join(args, " "), stderr)
	return out
}

func (e *testEnv) login(a *App) {
	e.t.Helper()
	e.mustRun(a, "auth", "login", "--login", testLogin, "--password", testPassword)
}
