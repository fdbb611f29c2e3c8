package middleware

import (
	"net/http"

	"github.com/pribylovaa/session-service/internal/pkg/requestid"
)

// RequestID обеспечивает наличие X-Request-ID:
//  1. берёт заголовок X-Request-ID, если он пригоден (см. requestid.Accept);
//  2. иначе генерирует UUID;
//  3. кладёт id в заголовок ответа и в контекст запроса.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestid.Accept(r.Header.Get(requestid.Header))
			w.Header().Set(requestid.Header, id)

			ctx := requestid.Into(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
