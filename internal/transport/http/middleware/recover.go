package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/session-service/internal/metrics"
	logctx "github.com/pribylovaa/session-service/internal/pkg/log"
	apierrors "github.com/pribylovaa/session-service/internal/transport/http/errors"
)

var errPanic = errors.New("panic")

// Recover перехватывает panic и отвечает 500/internal в едином формате.
// Детали паники не утекают на клиент; m (может быть nil) считает паники.
func Recover(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					logctx.From(r.Context()).
						LogAttrs(r.Context(), slog.LevelError, "panic_recovered",
							slog.String("path", r.URL.Path),
							slog.Any("reason", rec),
						)
					m.PanicRecovered(metrics.TransportHTTP)
					apierrors.WriteError(w, r, errPanic)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
