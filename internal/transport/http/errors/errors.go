// errors стандартизирует ответы об ошибках HTTP-слоя сервиса сессий.
// На вход принимается ошибка сервисного слоя, на выход отдаются:
//   - HTTP-статус;
//   - короткий стабильный код и безопасное сообщение без деталей.
//
// Источник истинности по ошибкам: переменные пакета service.
// Очистка refresh-cookie при ErrRefreshTokenFailed выполняется хендлерами.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/session-service/internal/pkg/requestid"
	"github.com/pribylovaa/session-service/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Ошибки самого HTTP-слоя.
var (
	// ErrBadRequest — тело запроса не разобрано (битый JSON, лишние поля).
	ErrBadRequest = stderrors.New("bad request")
	// ErrNotFound — маршрут не найден.
	ErrNotFound = stderrors.New("route not found")
	// ErrMethodNotAllowed — метод не поддерживается маршрутом.
	ErrMethodNotAllowed = stderrors.New("method not allowed")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — идентификатор запроса из X-Request-ID (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// table проверяется сверху вниз, первый errors.Is выигрывает.
var table = []mapping{
	{ErrBadRequest, http.StatusBadRequest, "bad_request", "malformed request body"},
	{ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{ErrMethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"},
	{service.ErrInvalidUsername, http.StatusBadRequest, "invalid_username", "username must be 3-20 characters of [A-Za-z0-9_-]"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "email has an invalid format"},
	{service.ErrInvalidPassword, http.StatusBadRequest, "invalid_password", "password must be 8-72 bytes long"},
	{service.ErrRefreshTokenFailed, http.StatusUnauthorized, "refresh_failed", "Login has expired."},
	{service.ErrAuthenticationFailed, http.StatusUnauthorized, "unauthenticated", "authentication failed"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{service.ErrUsernameTaken, http.StatusConflict, "username_taken", "username already taken"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken", "email already taken"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

var internal = ErrorResponse{
	Error: APIError{
		Code:    "internal",
		Message: "internal error",
	},
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal, чтобы не
//     послать "200 OK" с телом ошибки;
//   - err не из таблицы (в том числе ErrStorageConflict) - 500/internal
//     без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, internal
	}

	for _, m := range table {
		if stderrors.Is(err, m.target) {
			return m.status, ErrorResponse{
				Error: APIError{
					Code:    m.code,
					Message: m.message,
				},
			}
		}
	}

	return http.StatusInternalServerError, internal
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из контекста или заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	rid := requestid.From(r.Context())
	if rid == "" {
		rid = r.Header.Get(requestid.Header)
	}
	resp.Error.RequestID = rid

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
