// redis хранит refresh-токены в Redis.
//
// Запись владельца лежит в Redis Hash "<prefix>owner:<ownerID>"
// (поля id, hash, exp, ver), индекс "<prefix>hash:<tokenHash>" указывает на владельца.
// Read-modify-write выполняется через WATCH/MULTI; потеря гонки даёт storage.ErrConflict.
// TTL на ключи не ставится: истечение решает сервис по своим часам,
// просроченные записи перезаписываются при следующей выдаче.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
)

// DefaultPrefix используется, если префикс не задан.
const DefaultPrefix = "session:rt:"

// reader — общее подмножество *redis.Client и *redis.Tx.
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

type Storage struct {
	rdb    *redis.Client
	prefix string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
func New(ctx context.Context, redisURL, prefix string) (*Storage, error) {
	const op = "storage.redis.New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Storage{rdb: rdb, prefix: prefix}
}

func (s *Storage) ownerKey(id uuid.UUID) string { return s.prefix + "owner:" + id.String() }
func (s *Storage) hashKey(hash string) string   { return s.prefix + "hash:" + hash }

// RefreshTokenByOwner находит refresh-токен владельца.
func (s *Storage) RefreshTokenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.RefreshToken, error) {
	const op = "storage.redis.RefreshTokenByOwner"

	token, err := readOwner(ctx, s.rdb, s.ownerKey(ownerID), ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// RefreshTokenByHash находит refresh-токен по хэшу через индекс.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.redis.RefreshTokenByHash"

	ownerID, err := s.ownerByHash(ctx, s.rdb, hash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := readOwner(ctx, s.rdb, s.ownerKey(ownerID), ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Индекс мог пережить запись (например, после ротации без удаления).
	if token.TokenHash != hash {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return token, nil
}

// UpsertRefreshToken вставляет (Version == 0) или перезаписывает запись владельца.
func (s *Storage) UpsertRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.redis.UpsertRefreshToken"

	ownerKey := s.ownerKey(token.OwnerID)
	newHashKey := s.hashKey(token.TokenHash)

	id := token.ID
	if token.Version == 0 && id == uuid.Nil {
		id = uuid.New()
	}
	version := token.Version + 1

	txf := func(tx *redis.Tx) error {
		cur, err := readOwner(ctx, tx, ownerKey, token.OwnerID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			if token.Version != 0 {
				return storage.ErrConflict
			}
		case err != nil:
			return err
		default:
			if token.Version == 0 || cur.ID != token.ID || cur.Version != token.Version {
				return storage.ErrConflict
			}
		}

		holder, err := tx.Get(ctx, newHashKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		case holder != token.OwnerID.String():
			return storage.ErrAlreadyExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, ownerKey, map[string]string{
				"id":   id.String(),
				"hash": token.TokenHash,
				"exp":  strconv.FormatInt(token.ExpiresAt.UnixNano(), 10),
				"ver":  strconv.FormatInt(version, 10),
			})
			pipe.Set(ctx, newHashKey, token.OwnerID.String(), 0)
			if cur != nil && cur.TokenHash != token.TokenHash {
				pipe.Del(ctx, s.hashKey(cur.TokenHash))
			}
			return nil
		})
		return err
	}

	if err := s.rdb.Watch(ctx, txf, ownerKey, newHashKey); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	token.ID = id
	token.Version = version

	return nil
}

// DeleteRefreshToken удаляет запись, если её ID и хэш не изменились.
func (s *Storage) DeleteRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.redis.DeleteRefreshToken"

	hashKey := s.hashKey(token.TokenHash)

	ownerID, err := s.ownerByHash(ctx, s.rdb, token.TokenHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ownerKey := s.ownerKey(ownerID)

	txf := func(tx *redis.Tx) error {
		cur, err := readOwner(ctx, tx, ownerKey, ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if cur.ID != token.ID || cur.TokenHash != token.TokenHash {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, ownerKey, hashKey)
			return nil
		})
		return err
	}

	err = s.rdb.Watch(ctx, txf, ownerKey, hashKey)
	// Проигранная гонка значит, что запись уже изменилась: удалять нечего.
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Ping проверяет доступность Redis.
func (s *Storage) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (s *Storage) Close() {
	_ = s.rdb.Close()
}

func (s *Storage) ownerByHash(ctx context.Context, c reader, hash string) (uuid.UUID, error) {
	v, err := c.Get(ctx, s.hashKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, storage.ErrNotFound
		}
		return uuid.Nil, err
	}

	return uuid.Parse(v)
}

// readOwner читает Redis Hash записи владельца.
func readOwner(ctx context.Context, c reader, key string, ownerID uuid.UUID) (*models.RefreshToken, error) {
	m, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	if len(m) == 0 {
		return nil, storage.ErrNotFound
	}

	id, err := uuid.Parse(m["id"])
	if err != nil {
		return nil, err
	}

	exp, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, err
	}

	ver, err := strconv.ParseInt(m["ver"], 10, 64)
	if err != nil {
		return nil, err
	}

	return &models.RefreshToken{
		ID:        id,
		OwnerID:   ownerID,
		TokenHash: m["hash"],
		ExpiresAt: time.Unix(0, exp).UTC(),
		Version:   ver,
	}, nil
}

var _ storage.RefreshTokenStorage = (*Storage)(nil)
