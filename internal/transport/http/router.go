package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/session-service/internal/metrics"
	apierrors "github.com/pribylovaa/session-service/internal/transport/http/errors"
	"github.com/pribylovaa/session-service/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc SessionService, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(opts.Metrics),              // ловим паники
		middleware.RequestID(),                        // X-Request-ID (до логирования!)
		middleware.Logging(opts.Logger, opts.Metrics), // request-scoped логгер, лог и метрики
		middleware.AuthBearer(),                       // Bearer access-токен в контекст
		middleware.Timeout(opts.Timeout),              // общий дедлайн запроса, 504 при молчании
	)

	h := NewHandlers(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		withFallbacks(root)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *Handlers) {
	r.Route("/authenticate", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})

	r.Get("/users/me", h.CurrentUser)

	withFallbacks(r)
}

// withFallbacks отвечает на неизвестные маршруты и методы в едином формате ошибок.
func withFallbacks(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrMethodNotAllowed)
	})
}
