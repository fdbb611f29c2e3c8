package http

import (
	"net/http"

	"github.com/pribylovaa/session-service/internal/service"
	"github.com/pribylovaa/session-service/internal/transport/http/middleware"
)

// Register — POST /authenticate/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		writeFailure(w, r, err)
		return
	}

	sess, err := h.Service.Register(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	h.writeSession(w, sess)
}

// Login — POST /authenticate/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		writeFailure(w, r, err)
		return
	}

	sess, err := h.Service.Login(r.Context(), in.login(), in.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	h.writeSession(w, sess)
}

// Refresh — POST /authenticate/refresh. Тело не читается: токен берётся из cookie.
// Отсутствующая cookie равносильна неизвестному токену.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Refresh(r.Context(), refreshCookieValue(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	h.writeSession(w, sess)
}

// Logout — POST /authenticate/logout. Cookie стирается при любом исходе.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, EmptyRefreshCookie())

	if err := h.Service.Logout(r.Context(), refreshCookieValue(r)); err != nil {
		writeFailure(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser — GET /users/me, требует Bearer access-токен.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r.Context())
	if token == "" {
		w.Header().Set("WWW-Authenticate", tokenType)
		writeFailure(w, r, service.ErrAuthenticationFailed)
		return
	}

	user, err := h.Service.CurrentUser(r.Context(), token)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}
