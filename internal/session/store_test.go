package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func strPtr(s string) *string { return &s }

func samplePair() TokenPair {
	return TokenPair{
		Token:            "access-token-value-0123456789",
		RefreshToken:     "refresh-token-value-0123456789",
		ExpiresIn:        3600,
		RefreshExpiresIn: 86400,
	}
}

// failingStorage fails every operation.
type failingStorage struct{}

func (failingStorage) Load(string) ([]byte, error) { return nil, errors.New("storage unavailable") }
func (failingStorage) Save(string, []byte) error   { return errors.New("storage unavailable") }
func (failingStorage) Delete(string) error         { return errors.New("storage unavailable") }

func TestNewStoreDefaults(t *testing.T) {
	s := New(NewMemoryStorage())
	st := s.Snapshot()

	assert.Equal(t, DefaultAuthHost, st.AuthHost)
	assert.Equal(t, DefaultAPIHost, st.APIHost)
	assert.True(t, st.RedactMode)
	assert.Nil(t, st.Token)
	assert.Nil(t, st.TokenSetAt)
	assert.True(t, s.IsTokenExpired())
	assert.Nil(t, s.Token())
}

func TestSetEnvVarsMergesAndPersists(t *testing.T) {
	storage := NewMemoryStorage()
	s := New(storage)

	s.SetEnvVars(EnvVars{EmpresaID: strPtr("10"), UnidadeID: strPtr("20")})
	s.SetEnvVars(EnvVars{SiteID: strPtr("30")})

	st := s.Snapshot()
	assert.Equal(t, "10", st.EmpresaID)
	assert.Equal(t, "20", st.UnidadeID)
	assert.Equal(t, "30", st.SiteID)
	assert.Equal(t, DefaultAuthHost, st.AuthHost, "unspecified fields keep their value")

	raw, err := storage.Load(DefaultKey)
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, "30", persisted["siteId"])
	assert.Equal(t, "10", persisted["empresaId"])
}

func TestSetTokenStampsIssuance(t *testing.T) {
	clock := newFakeClock()
	s := New(NewMemoryStorage(), WithClock(clock.Now))

	s.SetToken(samplePair())

	st := s.Snapshot()
	require.NotNil(t, st.Token)
	require.NotNil(t, st.TokenSetAt)
	assert.Equal(t, clock.Now().UnixMilli(), *st.TokenSetAt)
	assert.Equal(t, int64(3600), *st.ExpiresIn)
	assert.Equal(t, int64(86400), *st.RefreshExpiresIn)
	assert.False(t, s.IsTokenExpired())

	tok := s.Token()
	require.NotNil(t, tok)
	assert.Equal(t, "access-token-value-0123456789", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
	assert.True(t, clock.Now().Add(time.Hour).Equal(tok.Expiry))
}

func TestIsTokenExpiredBoundary(t *testing.T) {
	clock := newFakeClock()
	s := New(NewMemoryStorage(), WithClock(clock.Now))
	s.SetToken(samplePair())

	clock.Advance(3600*time.Second - time.Millisecond)
	assert.False(t, s.IsTokenExpired(), "one millisecond before expiry")

	clock.Advance(time.Millisecond)
	assert.True(t, s.IsTokenExpired(), "expiry boundary is inclusive")
}

func TestIsTokenExpiredFailClosed(t *testing.T) {
	clock := newFakeClock()
	storage := NewMemoryStorage()

	tests := []struct {
		name string
		json string
	}{
		{"missing token", `{"token":null,"tokenSetAt":1,"expiresIn":3600}`},
		{"missing tokenSetAt", `{"token":"abc","tokenSetAt":null,"expiresIn":3600}`},
		{"missing expiresIn", `{"token":"abc","tokenSetAt":1,"expiresIn":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, storage.Save(DefaultKey, []byte(tt.json)))
			s := New(storage, WithClock(clock.Now))
			s.RestoreFromStorage()
			assert.True(t, s.IsTokenExpired())
		})
	}
}

func TestLogoutIfExpired(t *testing.T) {
	clock := newFakeClock()
	storage := NewMemoryStorage()
	s := New(storage, WithClock(clock.Now))

	var notified int
	s.Subscribe(func(State) { notified++ })

	assert.False(t, s.LogoutIfExpired(), "no token, nothing to clear")

	s.SetToken(samplePair())
	notified = 0
	assert.False(t, s.LogoutIfExpired())
	assert.NotNil(t, s.Snapshot().Token)
	assert.Zero(t, notified)

	clock.Advance(time.Hour)
	assert.True(t, s.LogoutIfExpired())
	assert.Nil(t, s.Snapshot().Token)
	assert.Equal(t, 1, notified)
	_, err := storage.Load(DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	s.SetToken(samplePair())
	assert.False(t, s.LogoutIfExpired(), "a token issued after expiry is kept")
	assert.NotNil(t, s.Snapshot().Token)
}

func TestTokenWithoutIssuanceIsAbsent(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(DefaultKey, []byte(`{"token":"abc","tokenSetAt":null}`)))

	s := New(storage)
	s.RestoreFromStorage()

	assert.False(t, s.Snapshot().HasToken())
	assert.Nil(t, s.Token())
}

func TestSetTokenThenLogoutRestoresAuthFields(t *testing.T) {
	storage := NewMemoryStorage()
	s := New(storage)
	s.SetEnvVars(EnvVars{EmpresaID: strPtr("1")})
	before := s.Snapshot()

	s.SetToken(samplePair())
	s.Logout()

	after := s.Snapshot()
	assert.Equal(t, before.Token, after.Token)
	assert.Equal(t, before.RefreshToken, after.RefreshToken)
	assert.Equal(t, before.ExpiresIn, after.ExpiresIn)
	assert.Equal(t, before.RefreshExpiresIn, after.RefreshExpiresIn)
	assert.Equal(t, before.TokenSetAt, after.TokenSetAt)
	assert.Equal(t, "1", after.EmpresaID, "environment fields outlive logout")

	_, err := storage.Load(DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound, "logout deletes the persisted record")

	fresh := New(storage)
	fresh.RestoreFromStorage()
	assert.Equal(t, DefaultState(), fresh.Snapshot())
}

func TestLogoutIsIdempotent(t *testing.T) {
	s := New(NewMemoryStorage())
	s.Logout()
	s.Logout()
	assert.Nil(t, s.Snapshot().Token)
}

func TestToggleRedactDoesNotPersistOnItsOwn(t *testing.T) {
	storage := NewMemoryStorage()
	s := New(storage)

	assert.False(t, s.ToggleRedact())
	_, err := storage.Load(DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	s.SetEnvVars(EnvVars{SiteID: strPtr("9")})
	raw, err := storage.Load(DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"redactMode":false`)
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	clock := newFakeClock()
	storage := NewMemoryStorage()
	s := New(storage, WithClock(clock.Now))
	s.SetEnvVars(EnvVars{
		AuthHost:       strPtr("https://auth.example.com"),
		APIHost:        strPtr("https://api.example.com"),
		EmpresaID:      strPtr("1"),
		UnidadeID:      strPtr("2"),
		SiteID:         strPtr("3"),
		XTransactionID: strPtr("tx-1"),
	})
	s.SetToken(samplePair())
	s.ToggleRedact()
	s.PersistToStorage()

	first, err := storage.Load(DefaultKey)
	require.NoError(t, err)

	fresh := New(storage, WithClock(clock.Now))
	fresh.RestoreFromStorage()
	fresh.PersistToStorage()

	second, err := storage.Load(DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, s.Snapshot(), fresh.Snapshot())
}

func TestPersistedFieldNames(t *testing.T) {
	storage := NewMemoryStorage()
	s := New(storage)
	s.PersistToStorage()

	raw, err := storage.Load(DefaultKey)
	require.NoError(t, err)

	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))

	expected := []string{
		"authHost", "apiHost", "empresaId", "unidadeId", "siteId", "xTransactionId",
		"token", "refreshToken", "expiresIn", "refreshExpiresIn", "tokenSetAt", "redactMode",
	}
	assert.Len(t, persisted, len(expected))
	for _, k := range expected {
		assert.Contains(t, persisted, k)
	}
}

func TestRestoreMergesOverDefaults(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(DefaultKey, []byte(`{"empresaId":"77"}`)))

	s := New(storage)
	s.RestoreFromStorage()

	st := s.Snapshot()
	assert.Equal(t, "77", st.EmpresaID)
	assert.Equal(t, DefaultAPIHost, st.APIHost)
	assert.True(t, st.RedactMode)
}

func TestRestoreCorruptJSONFallsBackToDefaults(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(DefaultKey, []byte(`{"empresaId":`)))

	s := New(storage)
	s.RestoreFromStorage()

	assert.Equal(t, DefaultState(), s.Snapshot())
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	s := New(failingStorage{})

	assert.NotPanics(t, func() {
		s.RestoreFromStorage()
		s.SetEnvVars(EnvVars{EmpresaID: strPtr("1")})
		s.SetToken(samplePair())
		s.Logout()
	})
	assert.Equal(t, "1", s.Snapshot().EmpresaID)
}

func TestReplaceTokenIfCurrent(t *testing.T) {
	s := New(NewMemoryStorage())
	s.SetToken(samplePair())

	renewed := TokenPair{Token: "new-access", RefreshToken: "new-refresh", ExpiresIn: 60, RefreshExpiresIn: 120}

	assert.False(t, s.ReplaceTokenIfCurrent("stale-refresh", renewed))
	assert.Equal(t, "access-token-value-0123456789", *s.Snapshot().Token)

	assert.True(t, s.ReplaceTokenIfCurrent(samplePair().RefreshToken, renewed))
	assert.Equal(t, "new-access", *s.Snapshot().Token)

	s.Logout()
	assert.False(t, s.ReplaceTokenIfCurrent("new-refresh", renewed), "a late refresh must not resurrect a cleared session")
	assert.Nil(t, s.Snapshot().Token)
}

func TestSubscribe(t *testing.T) {
	s := New(NewMemoryStorage())

	var seen []bool
	unsubscribe := s.Subscribe(func(st State) {
		seen = append(seen, st.HasToken())
	})

	s.SetToken(samplePair())
	s.Logout()
	unsubscribe()
	s.SetToken(samplePair())

	assert.Equal(t, []bool{true, false}, seen)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(NewMemoryStorage())
	s.SetToken(samplePair())

	snap := s.Snapshot()
	*snap.Token = "tampered"

	assert.Equal(t, "access-token-value-0123456789", *s.Snapshot().Token)
}

func TestRefreshExpiresAt(t *testing.T) {
	clock := newFakeClock()
	s := New(NewMemoryStorage(), WithClock(clock.Now))

	_, ok := s.RefreshExpiresAt()
	assert.False(t, ok)

	s.SetToken(samplePair())
	at, ok := s.RefreshExpiresAt()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(24*time.Hour).UnixMilli(), at.UnixMilli())
}
