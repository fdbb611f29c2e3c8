// memory — хранилище в памяти процесса для локального запуска и тестов.
// Все операции выполняются под одним мьютексом, поэтому read-modify-write
// записи атомарен; проверка Version сохраняет ту же семантику конфликтов,
// что и у остальных реализаций.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
)

type Storage struct {
	mu sync.RWMutex

	users      map[uuid.UUID]models.User
	byUsername map[string]uuid.UUID
	byEmail    map[string]uuid.UUID

	tokens map[uuid.UUID]models.RefreshToken // по владельцу
	byHash map[string]uuid.UUID              // хэш -> владелец
}

// New создает пустое хранилище.
func New() *Storage {
	return &Storage{
		users:      make(map[uuid.UUID]models.User),
		byUsername: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
		tokens:     make(map[uuid.UUID]models.RefreshToken),
		byHash:     make(map[string]uuid.UUID),
	}
}

// SaveUser создает нового пользователя.
func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	email := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if _, ok := s.byUsername[user.Username]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.users[user.ID] = *user
	s.byUsername[user.Username] = user.ID
	s.byEmail[email] = user.ID

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &u, nil
}

// UserByUsername находит пользователя по имени.
func (s *Storage) UserByUsername(_ context.Context, username string) (*models.User, error) {
	const op = "storage.memory.UserByUsername"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u := s.users[id]
	return &u, nil
}

// UserByEmail находит пользователя по email без учёта регистра.
func (s *Storage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	const op = "storage.memory.UserByEmail"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u := s.users[id]
	return &u, nil
}

// UserExists сообщает, занято ли имя пользователя.
func (s *Storage) UserExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byUsername[username]
	return ok, nil
}

// RefreshTokenByOwner находит refresh-токен владельца.
func (s *Storage) RefreshTokenByOwner(_ context.Context, ownerID uuid.UUID) (*models.RefreshToken, error) {
	const op = "storage.memory.RefreshTokenByOwner"

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[ownerID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &t, nil
}

// RefreshTokenByHash находит refresh-токен по хэшу.
func (s *Storage) RefreshTokenByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.memory.RefreshTokenByHash"

	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	t := s.tokens[owner]
	return &t, nil
}

// UpsertRefreshToken вставляет (Version == 0) или перезаписывает запись владельца.
func (s *Storage) UpsertRefreshToken(_ context.Context, token *models.RefreshToken) error {
	const op = "storage.memory.UpsertRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.tokens[token.OwnerID]

	if token.Version == 0 {
		if exists {
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}
	} else if !exists || cur.ID != token.ID || cur.Version != token.Version {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	if holder, ok := s.byHash[token.TokenHash]; ok && holder != token.OwnerID {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	next := *token
	if next.Version == 0 && next.ID == uuid.Nil {
		next.ID = uuid.New()
	}
	next.Version++

	if exists {
		delete(s.byHash, cur.TokenHash)
	}
	s.tokens[next.OwnerID] = next
	s.byHash[next.TokenHash] = next.OwnerID

	*token = next

	return nil
}

// DeleteRefreshToken удаляет запись, если её ID и хэш не изменились.
func (s *Storage) DeleteRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.byHash[token.TokenHash]
	if !ok {
		return nil
	}

	if cur := s.tokens[owner]; cur.ID == token.ID {
		delete(s.tokens, owner)
		delete(s.byHash, token.TokenHash)
	}

	return nil
}

// Close ничего не освобождает.
func (s *Storage) Close() {}

var _ storage.Storage = (*Storage)(nil)
