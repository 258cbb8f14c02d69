package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Gustavo032/leankeep-api-guard/internal/session"
)

const (
	// Values above these thresholds are absolute instants, not durations.
	// 1e9 seconds is September 2001, far beyond any token lifetime.
	epochSecondsThreshold = 1_000_000_000
	epochMillisThreshold  = 1_000_000_000_000
)

// identityResponse is the body of /v1/auth and /v1/refresh.
type identityResponse struct {
	AuthToken        json.RawMessage `json:"authToken"`
	RefreshToken     json.RawMessage `json:"refreshToken"`
	ExpiresIn        json.RawMessage `json:"expiresIn"`
	RefreshExpiresIn json.RawMessage `json:"refreshExpiresIn"`
}

// normalizeResponse turns an identity body into a TokenPair whose lifetimes
// are seconds counted from now.
func normalizeResponse(body []byte, now time.Time) (session.TokenPair, error) {
	var resp identityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return session.TokenPair{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	token, err := tokenValue(resp.AuthToken)
	if err != nil || token == "" {
		return session.TokenPair{}, fmt.Errorf("%w: missing authToken", ErrMalformedResponse)
	}
	refresh, err := tokenValue(resp.RefreshToken)
	if err != nil || refresh == "" {
		return session.TokenPair{}, fmt.Errorf("%w: missing refreshToken", ErrMalformedResponse)
	}

	expiresIn, ok, err := lifetimeSeconds(resp.ExpiresIn, now)
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("%w: expiresIn: %v", ErrMalformedResponse, err)
	}
	if !ok {
		exp, found := jwtExpiry(token)
		if !found {
			return session.TokenPair{}, fmt.Errorf("%w: no expiresIn and no exp claim", ErrMalformedResponse)
		}
		expiresIn = secondsUntil(exp, now)
	}

	refreshExpiresIn, ok, err := lifetimeSeconds(resp.RefreshExpiresIn, now)
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("%w: refreshExpiresIn: %v", ErrMalformedResponse, err)
	}
	if !ok {
		if exp, found := jwtExpiry(refresh); found {
			refreshExpiresIn = secondsUntil(exp, now)
		}
	}

	return session.TokenPair{
		Token:            token,
		RefreshToken:     refresh,
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
	}, nil
}

// tokenValue accepts {"token": "..."} or a bare string.
func tokenValue(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var wrapped struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Token, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// lifetimeSeconds reads a duration or absolute expiry. ok is false when the
// field is absent.
func lifetimeSeconds(raw json.RawMessage, now time.Time) (int64, bool, error) {
	if isNull(raw) {
		return 0, false, nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		v, err := parseNumber(string(n))
		if err != nil {
			return 0, false, err
		}
		return fromNumber(v, now), true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, fmt.Errorf("unsupported value %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if v, err := parseNumber(s); err == nil {
		return fromNumber(v, now), true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return secondsUntil(t, now), true, nil
	}
	return 0, false, fmt.Errorf("unsupported value %q", s)
}

func parseNumber(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func fromNumber(v int64, now time.Time) int64 {
	switch {
	case v >= epochMillisThreshold:
		return secondsUntil(time.UnixMilli(v), now)
	case v >= epochSecondsThreshold:
		return secondsUntil(time.Unix(v, 0), now)
	case v < 0:
		return 0
	default:
		return v
	}
}

// secondsUntil never goes negative: a past instant is an already-expired
// lifetime of zero.
func secondsUntil(t time.Time, now time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
