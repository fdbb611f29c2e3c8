package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/session-service/internal/metrics"
	logctx "github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/pkg/requestid"
)

// unmatchedRoute — метка маршрута для запросов мимо роутера (404).
const unmatchedRoute = "unmatched"

// Logging кладёт request-scoped логгер в контекст, пишет запись "http_request"
// и учитывает длительность запроса в m (m может быть nil).
func Logging(l *slog.Logger, m *metrics.Metrics) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := requestid.From(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			r = r.WithContext(logctx.Into(r.Context(), reqLogger))

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			route := routePattern(r)
			m.ObserveHTTP(r.Method, route, sw.Status(), dur)

			lvl := slog.LevelInfo
			if sw.Status() >= http.StatusInternalServerError {
				lvl = slog.LevelError
			}

			logctx.From(r.Context()).LogAttrs(r.Context(), lvl, "http_request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", dur),
				slog.Int("bytes", sw.count),
			)
		})
	}
}

// routePattern возвращает шаблон маршрута chi; доступен после обработки запроса.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}

	if p := rctx.RoutePattern(); p != "" {
		return p
	}

	return unmatchedRoute
}
