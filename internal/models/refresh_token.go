package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — сохраняемая запись refresh-токена.
//
// Инварианты:
//   - у владельца (OwnerID) не больше одной записи; повторный вход меняет её на месте;
//   - TokenHash уникален среди всех записей, сырое значение токена не хранится;
//   - Version растёт при каждом успешном UpsertRefreshToken и используется
//     хранилищем для проверки конфликта записи (0 — запись ещё не сохранена).
type RefreshToken struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Version   int64
}

// Expired сообщает, истёк ли токен к моменту now (граница включительно: now >= ExpiresAt).
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IssuedRefreshToken — результат выпуска или ротации: запись и сырое значение.
// Raw существует только в памяти и уходит клиенту в cookie.
type IssuedRefreshToken struct {
	Token *RefreshToken
	Raw   string
}
