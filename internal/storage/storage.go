// storage задаёт контракт хранилища refresh-токенов и каталога пользователей.
//
// Реализации (postgres, redis, memory) обязаны обеспечивать на своём уровне:
//   - не более одной записи refresh-токена на владельца;
//   - уникальность хэша токена среди всех записей;
//   - атомарный read-modify-write одной записи через проверку Version,
//     чтобы две конкурентные ротации не затёрли друг друга молча.
package storage

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/session-service/internal/storage Storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email/хэш refresh-токена).
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict — запись изменена конкурентно (устаревшая Version)
	// или у владельца уже есть запись при попытке вставки.
	ErrConflict = errors.New("write conflict")
)

// UserStorage — каталог пользователей.
type UserStorage interface {
	// SaveUser создаёт нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsername находит пользователя по имени (subject access-токена).
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserExists сообщает, существует ли пользователь с таким именем.
	UserExists(ctx context.Context, username string) (bool, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// RefreshTokenByOwner находит запись владельца. Нет записи — ErrNotFound.
	RefreshTokenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.RefreshToken, error)
	// RefreshTokenByHash находит запись по хэшу токена. Нет записи — ErrNotFound.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// UpsertRefreshToken вставляет (Version == 0) или обновляет на месте (Version > 0)
	// запись. При успехе Version переданной записи увеличивается, а ID заполняется.
	// Ошибки: ErrConflict — устаревшая Version или у владельца уже есть запись;
	// ErrAlreadyExists — такой хэш уже принадлежит другой записи.
	UpsertRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// DeleteRefreshToken удаляет запись, если её ID и хэш не изменились.
	// Отсутствие записи ошибкой не считается.
	DeleteRefreshToken(ctx context.Context, token *models.RefreshToken) error
}

// Storage задает контракт работы с хранилищем.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close()
}

// Split собирает Storage из раздельных хранилищ пользователей и
// refresh-токенов (например, PostgreSQL + Redis).
type Split struct {
	UserStorage
	RefreshTokenStorage

	closers []func()
}

// NewSplit создает Split; closers вызываются в Close в порядке передачи.
func NewSplit(users UserStorage, tokens RefreshTokenStorage, closers ...func()) *Split {
	return &Split{UserStorage: users, RefreshTokenStorage: tokens, closers: closers}
}

// Close освобождает ресурсы обоих хранилищ.
func (s *Split) Close() {
	for _, c := range s.closers {
		c()
	}
}

var _ Storage = (*Split)(nil)
