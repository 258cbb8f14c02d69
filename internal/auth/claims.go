package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims decodes the payload of a JWT without verifying its signature. The
// console has no key material; the result is for display only.
func Claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("token is not a JWT: %w", err)
	}
	return claims, nil
}

// jwtExpiry returns the unverified exp claim of token.
func jwtExpiry(token string) (time.Time, bool) {
	claims, err := Claims(token)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
