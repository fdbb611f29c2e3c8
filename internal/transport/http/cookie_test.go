package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/models"
)

const emptyCookie = "refresh_token=; Path=/; Max-Age=0; HttpOnly; Secure; SameSite=Strict"

func issuedAt(raw string, exp time.Time) *models.IssuedRefreshToken {
	return &models.IssuedRefreshToken{Raw: raw, Token: &models.RefreshToken{ExpiresAt: exp}}
}

func TestRefreshCookie_Attributes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := RefreshCookie(issuedAt("abc_DEF-123", now.Add(7*24*time.Hour)), now)

	require.Equal(t, "refresh_token=abc_DEF-123; Path=/; Max-Age=604800; HttpOnly; Secure; SameSite=Strict", c.String())
}

func TestRefreshCookie_MaxAgeFloorsToSeconds(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		left time.Duration
		want string
	}{
		{"fraction_floors", 90*time.Second + 900*time.Millisecond, "Max-Age=90"},
		{"exactly_one_second", time.Second, "Max-Age=1"},
		{"under_one_second", 500 * time.Millisecond, "Max-Age=0"},
		{"zero", 0, "Max-Age=0"},
		{"negative", -time.Minute, "Max-Age=0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := RefreshCookie(issuedAt("v", now.Add(tc.left)), now)
			require.Contains(t, c.String(), "; "+tc.want+";")
		})
	}
}

func TestEmptyRefreshCookie(t *testing.T) {
	require.Equal(t, emptyCookie, EmptyRefreshCookie().String())
}

func TestRefreshCookieValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/authenticate/refresh", nil)
	require.Empty(t, refreshCookieValue(req))

	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "raw-value"})
	require.Equal(t, "raw-value", refreshCookieValue(req))
}
