package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
)

const refreshColumns = `id, user_id, token_hash, expires_at, version`

// RefreshTokenByOwner находит refresh-токен пользователя.
func (s *Storage) RefreshTokenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByOwner"

	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE user_id = $1`

	token, err := scanRefreshToken(s.db.QueryRow(ctx, query, ownerID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	token, err := scanRefreshToken(s.db.QueryRow(ctx, query, hash))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// UpsertRefreshToken вставляет новую запись (Version == 0) или
// перезаписывает существующую по ID при совпадении Version.
func (s *Storage) UpsertRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.UpsertRefreshToken"

	if token.Version == 0 {
		if err := s.insertRefreshToken(ctx, token); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	query := `
		UPDATE refresh_tokens
		SET token_hash = $3, expires_at = $4, version = version + 1
		WHERE id = $1 AND version = $2
	`

	cmdTag, err := s.db.Exec(ctx, query, token.ID, token.Version, token.TokenHash, token.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteError(err))
	}

	// Запись удалена или уже переписана другим запросом.
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	token.Version++

	return nil
}

func (s *Storage) insertRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	id := token.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO refresh_tokens(id, user_id, token_hash, expires_at, version)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (user_id) DO NOTHING
	`

	cmdTag, err := s.db.Exec(ctx, query, id, token.OwnerID, token.TokenHash, token.ExpiresAt.UTC())
	if err != nil {
		return mapWriteError(err)
	}

	// У владельца уже есть запись: вставку выиграл конкурент.
	if cmdTag.RowsAffected() == 0 {
		return storage.ErrConflict
	}

	token.ID = id
	token.Version = 1

	return nil
}

// DeleteRefreshToken удаляет запись по ID и хэшу.
func (s *Storage) DeleteRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.DeleteRefreshToken"

	query := `DELETE FROM refresh_tokens WHERE id = $1 AND token_hash = $2`

	if _, err := s.db.Exec(ctx, query, token.ID, token.TokenHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func scanRefreshToken(row pgx.Row) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := row.Scan(
		&token.ID,
		&token.OwnerID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Version,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	token.ExpiresAt = token.ExpiresAt.UTC()

	return &token, nil
}

// mapWriteError переводит ошибки ограничений PostgreSQL в ошибки storage.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return storage.ErrAlreadyExists
		case pgerrcode.ForeignKeyViolation:
			return storage.ErrNotFound
		}
	}

	return err
}
