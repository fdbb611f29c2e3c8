package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pingTimeout ограничивает проверку хранилища в /healthz.
const pingTimeout = 2 * time.Second

// Pinger — проверка доступности зависимостей для /healthz.
type Pinger func(ctx context.Context) error

// NewOpsRouter собирает служебный роутер:
//   - /livez — процесс жив (всегда 200);
//   - /healthz — 200, если ping прошёл, иначе 503;
//   - /metrics — экспозиция Prometheus из gatherer.
func NewOpsRouter(ping Pinger, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(req.Context(), pingTimeout)
			defer cancel()

			if err := ping(ctx); err != nil {
				logger.Warn("healthz_failed", slog.String("err", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
