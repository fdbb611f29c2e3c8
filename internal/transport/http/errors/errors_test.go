package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/pkg/requestid"
	"github.com/pribylovaa/session-service/internal/service"
	"github.com/pribylovaa/session-service/internal/storage"
)

func TestToHTTP_Mapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("service.auth.Op: %w", err) }

	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"bad_request", ErrBadRequest, http.StatusBadRequest, "bad_request"},
		{"not_found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"method", ErrMethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"username", wrap(service.ErrInvalidUsername), http.StatusBadRequest, "invalid_username"},
		{"email", wrap(service.ErrInvalidEmail), http.StatusBadRequest, "invalid_email"},
		{"password", wrap(service.ErrInvalidPassword), http.StatusBadRequest, "invalid_password"},
		{"refresh", wrap(service.ErrRefreshTokenFailed), http.StatusUnauthorized, "refresh_failed"},
		{"auth", wrap(service.ErrAuthenticationFailed), http.StatusUnauthorized, "unauthenticated"},
		{"credentials", wrap(service.ErrInvalidCredentials), http.StatusUnauthorized, "invalid_credentials"},
		{"username_taken", wrap(service.ErrUsernameTaken), http.StatusConflict, "username_taken"},
		{"email_taken", wrap(service.ErrEmailTaken), http.StatusConflict, "email_taken"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"storage_conflict", fmt.Errorf("%w: %w", service.ErrStorageConflict, storage.ErrConflict), http.StatusInternalServerError, "internal"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToHTTP_InternalDetailsDoNotLeak(t *testing.T) {
	_, resp := ToHTTP(fmt.Errorf("postgres.refresh_token.Upsert: dial tcp 10.0.0.5:5432: refused"))
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToHTTP_RefreshFailedMessageIsStable(t *testing.T) {
	_, a := ToHTTP(fmt.Errorf("lookup not found: %w", service.ErrRefreshTokenFailed))
	_, b := ToHTTP(fmt.Errorf("lookup expired: %w", service.ErrRefreshTokenFailed))
	require.Equal(t, a, b)
	require.Equal(t, "Login has expired.", a.Error.Message)
}

func TestWriteError_RequestIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/authenticate/login", nil)
	req = req.WithContext(requestid.Into(req.Context(), "rid-ctx"))
	rr := httptest.NewRecorder()

	WriteError(rr, req, service.ErrInvalidCredentials)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "invalid_credentials", body.Error.Code)
	require.Equal(t, "rid-ctx", body.Error.RequestID)
}

func TestWriteError_RequestIDFromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(requestid.Header, "rid-header")
	rr := httptest.NewRecorder()

	WriteError(rr, req, service.ErrAuthenticationFailed)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "rid-header", body.Error.RequestID)
}
