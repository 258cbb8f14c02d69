package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

const (
	// DefaultAuthHost is the identity surface used until configured otherwise.
	DefaultAuthHost = "https://auth.lkp.app.br"
	// DefaultAPIHost is the domain surface used until configured otherwise.
	DefaultAPIHost = "https://api.lkp.app.br"
)

// State is the full session record. Its JSON form is the persisted slot.
// Absent auth fields encode as null.
type State struct {
	AuthHost       string `json:"authHost"`
	APIHost        string `json:"apiHost"`
	EmpresaID      string `json:"empresaId"`
	UnidadeID      string `json:"unidadeId"`
	SiteID         string `json:"siteId"`
	XTransactionID string `json:"xTransactionId"`

	Token            *string `json:"token"`
	RefreshToken     *string `json:"refreshToken"`
	ExpiresIn        *int64  `json:"expiresIn"`
	RefreshExpiresIn *int64  `json:"refreshExpiresIn"`
	// TokenSetAt is the issuance moment in Unix milliseconds.
	TokenSetAt *int64 `json:"tokenSetAt"`

	RedactMode bool `json:"redactMode"`
}

// DefaultState returns the state of a console that has never been configured.
func DefaultState() State {
	return State{
		AuthHost:   DefaultAuthHost,
		APIHost:    DefaultAPIHost,
		RedactMode: true,
	}
}

// HasToken reports whether a bearer token with its issuance stamp is held.
// A token without tokenSetAt is treated as absent.
func (s State) HasToken() bool {
	return s.Token != nil && *s.Token != "" && s.TokenSetAt != nil
}

// HasRefreshToken reports whether a non-empty refresh token is held.
func (s State) HasRefreshToken() bool {
	return s.RefreshToken != nil && *s.RefreshToken != ""
}

func (s State) clearAuth() State {
	s.Token = nil
	s.RefreshToken = nil
	s.ExpiresIn = nil
	s.RefreshExpiresIn = nil
	s.TokenSetAt = nil
	return s
}

// EnvVars is a partial update of the environment fields. Nil fields keep
// their current value.
type EnvVars struct {
	AuthHost       *string
	APIHost        *string
	EmpresaID      *string
	UnidadeID      *string
	SiteID         *string
	XTransactionID *string
}

// TokenPair is a normalized identity response. ExpiresIn and
// RefreshExpiresIn are durations in seconds counted from the moment the pair
// is stored; absolute timestamps must be converted before calling SetToken.
type TokenPair struct {
	Token            string
	RefreshToken     string
	ExpiresIn        int64
	RefreshExpiresIn int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithKey overrides the storage slot key.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithDefaults replaces the initial state (used to apply configured hosts).
func WithDefaults(state State) Option {
	return func(s *Store) {
		s.defaults = state
	}
}

// Store is the single authoritative owner of the session state.
type Store struct {
	mu        sync.Mutex
	state     State
	defaults  State
	storage   Storage
	key       string
	now       func() time.Time
	listeners map[int]func(State)
	nextID    int
}

// New creates a Store holding the default state. It does not read storage;
// call RestoreFromStorage for that.
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		defaults:  DefaultState(),
		storage:   storage,
		key:       DefaultKey,
		now:       time.Now,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.storage == nil {
		s.storage = NewMemoryStorage()
	}
	s.state = s.defaults
	return s
}

// Key returns the storage slot key.
func (s *Store) Key() string {
	return s.key
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// SetEnvVars merges the given environment fields and persists.
func (s *Store) SetEnvVars(vars EnvVars) {
	s.mutate(func(st State) State {
		setIfNotNil(&st.AuthHost, vars.AuthHost)
		setIfNotNil(&st.APIHost, vars.APIHost)
		setIfNotNil(&st.EmpresaID, vars.EmpresaID)
		setIfNotNil(&st.UnidadeID, vars.UnidadeID)
		setIfNotNil(&st.SiteID, vars.SiteID)
		setIfNotNil(&st.XTransactionID, vars.XTransactionID)
		return st
	}, (*Store).persistLocked)
}

// SetToken overwrites all four auth fields, stamps tokenSetAt with the
// current time and persists.
func (s *Store) SetToken(pair TokenPair) {
	s.mutate(func(st State) State {
		return s.withToken(st, pair)
	}, (*Store).persistLocked)

	logging.Audit(logging.AuditEvent{Action: "token_set", Outcome: "success", Host: s.Snapshot().AuthHost})
}

// ReplaceTokenIfCurrent applies pair only when the store still holds the
// refresh token the caller started from. It reports whether the pair was
// applied. Used to drop refresh responses that arrive after a logout or a
// newer login.
func (s *Store) ReplaceTokenIfCurrent(expectedRefresh string, pair TokenPair) bool {
	s.mu.Lock()
	if !s.state.HasRefreshToken() || *s.state.RefreshToken != expectedRefresh {
		s.mu.Unlock()
		return false
	}
	s.state = s.withToken(s.state, pair)
	s.persistLocked()
	snap := copyState(s.state)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	logging.Audit(logging.AuditEvent{Action: "token_refreshed", Outcome: "success", Host: snap.AuthHost})
	return true
}

func (s *Store) withToken(st State, pair TokenPair) State {
	token := pair.Token
	refresh := pair.RefreshToken
	expiresIn := pair.ExpiresIn
	refreshExpiresIn := pair.RefreshExpiresIn
	setAt := s.now().UnixMilli()

	st.Token = &token
	st.RefreshToken = &refresh
	st.ExpiresIn = &expiresIn
	st.RefreshExpiresIn = &refreshExpiresIn
	st.TokenSetAt = &setAt
	return st
}

// Logout clears the auth fields and deletes the persisted slot. Environment
// fields stay in memory. Calling Logout on a cleared store is harmless.
func (s *Store) Logout() {
	hadToken := false
	s.mutate(func(st State) State {
		hadToken = st.Token != nil
		return st.clearAuth()
	}, (*Store).clearStorageLocked)

	if hadToken {
		logging.Audit(logging.AuditEvent{Action: "token_cleared", Outcome: "success"})
	}
}

// ToggleRedact flips the redact display preference and returns the new
// value. It does not write storage itself; the flag rides along with the
// next snapshot.
func (s *Store) ToggleRedact() bool {
	var mode bool
	s.mutate(func(st State) State {
		st.RedactMode = !st.RedactMode
		mode = st.RedactMode
		return st
	}, nil)
	return mode
}

// IsTokenExpired is fail-closed: a missing token, issuance stamp or
// lifetime counts as expired. Otherwise the token is expired from
// tokenSetAt + expiresIn seconds on, boundary included.
func (s *Store) IsTokenExpired() bool {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return s.expired(st)
}

// LogoutIfExpired clears the session when it holds a token that has expired
// and reports whether it did. The check and the clear happen under one lock,
// so a login that lands concurrently is never cleared by mistake. A store
// without a token is left alone.
func (s *Store) LogoutIfExpired() bool {
	s.mu.Lock()
	if s.state.Token == nil || !s.expired(s.state) {
		s.mu.Unlock()
		return false
	}
	s.state = copyState(s.state).clearAuth()
	s.clearStorageLocked()
	snap := copyState(s.state)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	logging.Audit(logging.AuditEvent{Action: "token_cleared", Outcome: "success"})
	return true
}

func (s *Store) expired(st State) bool {
	if st.Token == nil || *st.Token == "" || st.TokenSetAt == nil || st.ExpiresIn == nil {
		return true
	}
	expiresAt := *st.TokenSetAt + *st.ExpiresIn*1000
	return s.now().UnixMilli() >= expiresAt
}

// ExpiresAt returns the absolute expiry of the bearer token.
func (s *Store) ExpiresAt() (time.Time, bool) {
	st := s.Snapshot()
	return absolute(st.TokenSetAt, st.ExpiresIn)
}

// RefreshExpiresAt returns the absolute expiry of the refresh token.
func (s *Store) RefreshExpiresAt() (time.Time, bool) {
	st := s.Snapshot()
	return absolute(st.TokenSetAt, st.RefreshExpiresIn)
}

func absolute(setAt, seconds *int64) (time.Time, bool) {
	if setAt == nil || seconds == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*setAt + *seconds*1000), true
}

// Token returns the bearer credential as an oauth2.Token, or nil when no
// usable token is held. Expiry is zero when the lifetime is unknown.
func (s *Store) Token() *oauth2.Token {
	st := s.Snapshot()
	if !st.HasToken() {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken: *st.Token,
		TokenType:   "Bearer",
	}
	if st.RefreshToken != nil {
		tok.RefreshToken = *st.RefreshToken
	}
	if exp, ok := absolute(st.TokenSetAt, st.ExpiresIn); ok {
		tok.Expiry = exp
	}
	return tok
}

// Subscribe registers fn to receive a snapshot after every mutation. The
// returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// RestoreFromStorage merges the persisted slot over the current state.
// A missing slot leaves the state as is; unreadable or corrupt data is
// logged and ignored.
func (s *Store) RestoreFromStorage() {
	data, err := s.storage.Load(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Error("Session", err, "Failed to load session from storage")
		}
		return
	}

	s.mutate(func(st State) State {
		restored := copyState(st)
		if err := json.Unmarshal(data, &restored); err != nil {
			logging.Error("Session", err, "Ignoring corrupt session slot")
			return st
		}
		logging.Debug("Session", "Restored session from storage slot %s", s.key)
		return restored
	}, nil)
}

// PersistToStorage writes the full snapshot to the slot.
func (s *Store) PersistToStorage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// ClearStorage deletes the slot without touching in-memory state.
func (s *Store) ClearStorage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearStorageLocked()
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.state)
	if err != nil {
		logging.Error("Session", err, "Failed to encode session")
		return
	}
	if err := s.storage.Save(s.key, data); err != nil {
		logging.Error("Session", err, "Failed to save session to storage")
	}
}

func (s *Store) clearStorageLocked() {
	if err := s.storage.Delete(s.key); err != nil {
		logging.Error("Session", err, "Failed to clear session storage")
	}
}

// mutate replaces the state with fn's result, runs the storage side effect
// (if any) under the same lock, then notifies listeners outside the lock.
func (s *Store) mutate(fn func(State) State, effect func(*Store)) {
	s.mu.Lock()
	s.state = fn(copyState(s.state))
	if effect != nil {
		effect(s)
	}
	snap := copyState(s.state)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Store) listenersLocked() []func(State) {
	out := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}

func setIfNotNil(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// copyState deep-copies the pointer fields so callers cannot reach into the
// store's state.
func copyState(st State) State {
	st.Token = clonePtr(st.Token)
	st.RefreshToken = clonePtr(st.RefreshToken)
	st.ExpiresIn = clonePtr(st.ExpiresIn)
	st.RefreshExpiresIn = clonePtr(st.RefreshExpiresIn)
	st.TokenSetAt = clonePtr(st.TokenSetAt)
	return st
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
