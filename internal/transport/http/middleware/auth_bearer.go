package middleware

import (
	"context"
	"net/http"
	"strings"

	logctx "github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/pkg/redact"
)

type bearerKey struct{}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт его в контекст.
// Отсутствие или кривой заголовок не прерывают запрос: решение принимает хендлер.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "

			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}

			if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
				if token := strings.TrimSpace(auth[len(prefix):]); token != "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bearerKey{}, token)))
					return
				}
			}

			logctx.From(r.Context()).Debug("auth_header_ignored", "authorization", redact.Bearer(auth))
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken возвращает токен, извлечённый AuthBearer, или "".
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}
