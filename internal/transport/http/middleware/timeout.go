package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/session-service/internal/pkg/log"
	apierrors "github.com/pribylovaa/session-service/internal/transport/http/errors"
)

// Timeout навешивает deadline на запрос, если его ещё нет.
// Значение <=0 делает мидлвар no-op.
//
// Если обработчик вернулся по истёкшему дедлайну, ничего не записав,
// клиент получает 504/deadline_exceeded в формате ошибок API.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := newStatusWriter(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(sw, r)

			if sw.status != 0 || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logctx.From(ctx).Warn("request_timeout",
				slog.String("path", r.URL.Path),
				slog.Duration("timeout", d),
			)
			apierrors.WriteError(sw, r, ctx.Err())
		})
	}
}
