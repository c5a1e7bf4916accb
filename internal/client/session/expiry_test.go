package session

import (
	"math"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_800_000_000, 0)

	withExp := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp), Subject: "u1"})
	got, ok := TokenExpiry(withExp)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	withoutExp := signedToken(t, jwt.RegisteredClaims{Subject: "u1"})
	_, ok = TokenExpiry(withoutExp)
	assert.False(t, ok)

	for _, opaque := range []string{"", "opaque-token", "a.b.c", "not.base64!.sig"} {
		_, ok := TokenExpiry(opaque)
		assert.Falsef(t, ok, "token %q", opaque)
	}
}

func TestTokenExpiry_IgnoresSignatureAndPastExpiry(t *testing.T) {
	past := time.Unix(1_000_000_000, 0)
	tok := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(past)})

	got, ok := TokenExpiry(tok)
	require.True(t, ok)
	assert.True(t, got.Equal(past))
}

func TestResolveExpiry(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	claimExp := now.Add(5 * time.Minute).Truncate(time.Second)
	jwtTok := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(claimExp)})

	t.Run("claim wins over declared duration", func(t *testing.T) {
		got, err := ResolveExpiry(jwtTok, 600, time.Second, now)
		require.NoError(t, err)
		assert.True(t, got.Equal(claimExp))
	})

	t.Run("declared seconds", func(t *testing.T) {
		got, err := ResolveExpiry("opaque", 600, time.Second, now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(10*time.Minute), got)
	})

	t.Run("declared milliseconds", func(t *testing.T) {
		got, err := ResolveExpiry("opaque", 600000, time.Millisecond, now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(600000*time.Millisecond), got)
	})

	t.Run("out of range duration fails closed", func(t *testing.T) {
		_, err := ResolveExpiry("opaque", math.MaxInt64, time.Second, now)
		require.ErrorIs(t, err, common.ErrSessionInvalid)

		limit := int64(math.MaxInt64 / int64(time.Millisecond))
		_, err = ResolveExpiry("opaque", limit+1, time.Millisecond, now)
		require.ErrorIs(t, err, common.ErrSessionInvalid)

		got, err := ResolveExpiry("opaque", limit, time.Millisecond, now)
		require.NoError(t, err)
		assert.True(t, got.After(now))
	})

	t.Run("nothing usable fails closed", func(t *testing.T) {
		_, err := ResolveExpiry("opaque", 0, time.Second, now)
		require.ErrorIs(t, err, common.ErrSessionInvalid)
	})
}
