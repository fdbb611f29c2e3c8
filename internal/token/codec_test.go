package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("unit-test-secret"), "session-service")
	require.NoError(t, err)
	return c
}

func TestNewCodec_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(nil, "x")
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssue_ClaimsAndTimes(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	at, err := c.Issue("alice", t0, 30*time.Minute)
	require.NoError(t, err)

	require.Equal(t, "alice", at.Subject)
	require.Equal(t, t0, at.IssuedAt)
	require.Equal(t, t0.Add(30*time.Minute), at.ExpiresAt)
	require.Equal(t, 3, len(strings.Split(at.Token, ".")))

	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(at.Token, &claims)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "session-service", claims.Issuer)
}

func TestIssue_EmptySubject(t *testing.T) {
	t.Parallel()

	_, err := newCodec(t).Issue("", t0, time.Minute)
	require.ErrorIs(t, err, ErrEmptySubject)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	at, err := c.Issue("alice", t0, 30*time.Minute)
	require.NoError(t, err)

	for _, now := range []time.Time{t0, t0.Add(time.Minute), t0.Add(30*time.Minute - time.Second)} {
		sub, err := c.Verify(at.Token, now)
		require.NoError(t, err, "now=%s", now)
		require.Equal(t, "alice", sub)
	}

	_, err = c.Verify(at.Token, t0.Add(30*time.Minute))
	require.ErrorIs(t, err, ErrExpired)

	_, err = c.Verify(at.Token, t0.Add(time.Hour))
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_SubSecondExpiry(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	start := t0.Add(900 * time.Millisecond)
	at, err := c.Issue("alice", start, 30*time.Minute)
	require.NoError(t, err)

	require.Equal(t, start, at.IssuedAt)
	require.Equal(t, start.Add(30*time.Minute), at.ExpiresAt)

	for _, now := range []time.Time{start, start.Add(29*time.Minute + 59500*time.Millisecond), at.ExpiresAt.Add(-time.Nanosecond)} {
		sub, err := c.Verify(at.Token, now)
		require.NoError(t, err, "now=%s", now)
		require.Equal(t, "alice", sub)
	}

	// Стандартный exp округлён вверх, но точная граница — exp_ns.
	_, err = c.Verify(at.Token, at.ExpiresAt)
	require.ErrorIs(t, err, ErrExpired)

	_, err = c.Verify(at.Token, at.ExpiresAt.Add(50*time.Millisecond))
	require.ErrorIs(t, err, ErrExpired)

	var claims accessClaims
	_, _, err = jwt.NewParser().ParseUnverified(at.Token, &claims)
	require.NoError(t, err)
	require.Equal(t, at.ExpiresAt.UnixNano(), claims.ExpiresAtNano)
	require.Equal(t, t0.Add(30*time.Minute+time.Second).Unix(), claims.ExpiresAt.Unix())
}

func TestVerify_Invalid(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	at, err := c.Issue("alice", t0, time.Hour)
	require.NoError(t, err)

	// Мусор.
	_, err = c.Verify("not-a-jwt", t0)
	require.ErrorIs(t, err, ErrInvalid)

	// Чужой ключ.
	other, err := NewCodec([]byte("another-secret"), "session-service")
	require.NoError(t, err)
	_, err = other.Verify(at.Token, t0)
	require.ErrorIs(t, err, ErrInvalid)

	// Чужой издатель.
	foreign, err := NewCodec([]byte("unit-test-secret"), "someone-else")
	require.NoError(t, err)
	_, err = foreign.Verify(at.Token, t0)
	require.ErrorIs(t, err, ErrInvalid)

	// Подменённая полезная нагрузка.
	parts := strings.Split(at.Token, ".")
	forged, err := c.Issue("mallory", t0, time.Hour)
	require.NoError(t, err)
	fparts := strings.Split(forged.Token, ".")
	_, err = c.Verify(parts[0]+"."+fparts[1]+"."+parts[2], t0)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "session-service",
		IssuedAt:  jwt.NewNumericDate(t0),
		ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = c.Verify(signed, t0)
	require.ErrorIs(t, err, ErrInvalid)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(unsigned, t0)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_MissingExpiration(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	claims := jwt.RegisteredClaims{Subject: "alice", Issuer: "session-service"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = c.Verify(signed, t0)
	require.ErrorIs(t, err, ErrInvalid)
}
