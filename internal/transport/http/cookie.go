package http

import (
	"net/http"
	"time"

	"github.com/pribylovaa/session-service/internal/models"
)

// RefreshCookieName — имя cookie с сырым refresh-токеном.
const RefreshCookieName = "refresh_token"

// RefreshCookie собирает cookie с сырым значением refresh-токена.
// Max-Age — целое число секунд до истечения записи относительно now;
// неположительный остаток даёт Max-Age=0.
func RefreshCookie(issued *models.IssuedRefreshToken, now time.Time) *http.Cookie {
	c := refreshCookie(issued.Raw)
	c.MaxAge = maxAge(issued.Token.ExpiresAt.Sub(now))
	return c
}

// EmptyRefreshCookie собирает cookie, удаляющую refresh-токен у клиента.
func EmptyRefreshCookie() *http.Cookie {
	c := refreshCookie("")
	c.MaxAge = -1
	return c
}

func refreshCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// maxAge переводит остаток в секунды с округлением вниз.
// В net/http MaxAge=0 означает "не задан", а отрицательное значение
// сериализуется как Max-Age=0.
func maxAge(left time.Duration) int {
	secs := int(left / time.Second)
	if secs <= 0 {
		return -1
	}

	return secs
}

// refreshCookieValue возвращает значение refresh-cookie запроса или "".
func refreshCookieValue(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}

	return c.Value
}
