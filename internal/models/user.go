package models

import (
	"time"

	"github.com/google/uuid"
)

// User - учётная запись из каталога пользователей.
// Username служит subject'ом access-токена.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
