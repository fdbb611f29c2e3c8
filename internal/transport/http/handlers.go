// http — публичный HTTP API сервиса сессий: вход, регистрация, обновление
// и выход пользователя. Refresh-токен передаётся только в HttpOnly-cookie,
// access-токен отдаётся в теле ответа и принимается в заголовке Authorization.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/service"
	apierrors "github.com/pribylovaa/session-service/internal/transport/http/errors"
)

// SessionService — то, что HTTP-слою нужно от сервисного слоя.
type SessionService interface {
	Register(ctx context.Context, username, email, password string) (*models.Session, error)
	Login(ctx context.Context, login, password string) (*models.Session, error)
	Refresh(ctx context.Context, raw string) (*models.Session, error)
	Logout(ctx context.Context, raw string) error
	CurrentUser(ctx context.Context, signed string) (*models.User, error)
	Now() time.Time
}

var _ SessionService = (*service.Service)(nil)

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Service SessionService
}

func NewHandlers(svc SessionService) *Handlers {
	return &Handlers{Service: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return apierrors.ErrBadRequest
	}

	return nil
}

// writeFailure пишет ошибку; при ErrRefreshTokenFailed дополнительно стирает cookie.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrRefreshTokenFailed) {
		http.SetCookie(w, EmptyRefreshCookie())
	}

	apierrors.WriteError(w, r, err)
}

// writeSession ставит refresh-cookie и отдаёт access-токен в теле.
func (h *Handlers) writeSession(w http.ResponseWriter, sess *models.Session) {
	http.SetCookie(w, RefreshCookie(sess.Refresh, h.Service.Now()))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, newAuthenticationResponse(sess.Access))
}
