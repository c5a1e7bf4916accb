package session

import (
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the exp claim from a JWT access token without
// verifying its signature; the client cannot verify it and only needs the
// instant. ok is false when token is not a JWT or carries no exp claim.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ResolveExpiry picks the session expiry for a fresh grant.
//
// The token's own exp claim wins. Otherwise the server-declared expiresIn,
// expressed in unit, is added to now. When neither is usable the grant is
// rejected with common.ErrSessionInvalid.
func ResolveExpiry(token string, expiresIn int64, unit time.Duration, now time.Time) (time.Time, error) {
	if exp, ok := TokenExpiry(token); ok {
		return exp, nil
	}
	if expiresIn > 0 && unit > 0 {
		if expiresIn > math.MaxInt64/int64(unit) {
			return time.Time{}, fmt.Errorf("%w: expires_in %d out of range", common.ErrSessionInvalid, expiresIn)
		}
		return now.Add(time.Duration(expiresIn) * unit), nil
	}
	return time.Time{}, fmt.Errorf("%w: no exp claim and no expires_in", common.ErrSessionInvalid)
}
