package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken — короткоживущий подписанный токен доступа. Никогда не сохраняется.
type AccessToken struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Token     string
}

// Session — всё, что выдаётся клиенту после входа, регистрации или обновления:
// access-токен для заголовка Authorization и refresh-токен для cookie.
type Session struct {
	UserID  uuid.UUID
	Access  *AccessToken
	Refresh *IssuedRefreshToken
}
