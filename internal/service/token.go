package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/token"
)

const (
	// refreshTokenBytes — энтропия сырого refresh-токена (256 бит).
	refreshTokenBytes = 32
	// maxWriteAttempts — попытки записи при storage.ErrConflict.
	// Каждая попытка начинается заново с поиска записи.
	maxWriteAttempts = 3
)

// lookupStatus — исход поиска refresh-токена по сырому значению.
type lookupStatus int

const (
	lookupNotFound lookupStatus = iota
	lookupFound
	lookupExpired
)

type lookupResult struct {
	status lookupStatus
	token  *models.RefreshToken // nil для lookupNotFound
}

// GenerateAccessToken выпускает access-токен для subject с TTL из конфигурации.
func (s *Service) GenerateAccessToken(ctx context.Context, subject string) (*models.AccessToken, error) {
	const op = "service.token.GenerateAccessToken"

	at, err := s.codec.Issue(subject, s.clock.Now(), s.cfg.AccessTokenTTL)
	if err != nil {
		log.ForOp(ctx, op).Error("access_token_sign_failed",
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.TokenIssued(metrics.KindAccess)

	return at, nil
}

// UsernameFromAccessToken проверяет access-токен и возвращает его subject.
// Истёкший и некорректный токены дают одну и ту же ошибку ErrAuthenticationFailed.
func (s *Service) UsernameFromAccessToken(ctx context.Context, signed string) (string, error) {
	const op = "service.token.UsernameFromAccessToken"

	subject, err := s.codec.Verify(signed, s.clock.Now())
	if err != nil {
		result := metrics.ResultInvalid
		if errors.Is(err, token.ErrExpired) {
			result = metrics.ResultExpired
		}
		s.metrics.AccessVerification(result)

		log.ForOp(ctx, op).Debug("access_token_rejected",
			slog.String("reason", result),
		)
		return "", fmt.Errorf("%s: %w", op, ErrAuthenticationFailed)
	}

	s.metrics.AccessVerification(metrics.ResultOK)

	return subject, nil
}

// GetOrGenerateRefreshToken выдаёт владельцу refresh-токен: существующую запись
// ротирует на месте, при отсутствии создаёт новую. У владельца всегда не больше одной записи.
func (s *Service) GetOrGenerateRefreshToken(ctx context.Context, ownerID uuid.UUID) (*models.IssuedRefreshToken, error) {
	const op = "service.token.GetOrGenerateRefreshToken"

	lg := log.ForOp(ctx, op).With(slog.String("user_id", ownerID.String()))

	for attempt := 1; ; attempt++ {
		current, err := s.storage.RefreshTokenByOwner(ctx, ownerID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			current = &models.RefreshToken{OwnerID: ownerID}
		case err != nil:
			lg.Error("refresh_lookup_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		issued, err := s.rotate(ctx, current)
		if err == nil {
			return issued, nil
		}

		if errors.Is(err, storage.ErrConflict) && attempt < maxWriteAttempts {
			lg.Debug("refresh_write_conflict_retry", slog.Int("attempt", attempt))
			continue
		}

		lg.Error("refresh_issue_failed",
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, storageFailure(err))
	}
}

// ValidateAndRotate принимает сырой refresh-токен и, если он действителен,
// ротирует запись и возвращает новый токен. Неизвестный и истёкший токены
// неразличимы: оба дают ErrRefreshTokenFailed, истёкшая запись удаляется.
func (s *Service) ValidateAndRotate(ctx context.Context, raw string) (*models.IssuedRefreshToken, error) {
	const op = "service.token.ValidateAndRotate"

	lg := log.ForOp(ctx, op)

	for attempt := 1; ; attempt++ {
		res, err := s.lookup(ctx, raw)
		if err != nil {
			s.metrics.Refresh(metrics.ResultError)
			lg.Error("refresh_lookup_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		switch res.status {
		case lookupNotFound:
			s.metrics.Refresh(metrics.ResultNotFound)
			lg.Warn("refresh_lookup_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenFailed)

		case lookupExpired:
			s.metrics.Refresh(metrics.ResultExpired)
			if err := s.storage.DeleteRefreshToken(ctx, res.token); err != nil {
				// Токен всё равно непригоден; запись удалится при следующем предъявлении.
				lg.Error("refresh_expired_delete_failed",
					slog.String("user_id", res.token.OwnerID.String()),
					slog.String("err", err.Error()),
				)
			} else {
				lg.Info("refresh_expired_deleted", slog.String("user_id", res.token.OwnerID.String()))
			}
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenFailed)
		}

		issued, err := s.rotate(ctx, res.token)
		if err == nil {
			s.metrics.Refresh(metrics.ResultOK)
			return issued, nil
		}

		// Конкурент ротировал запись первым: на следующем круге старый хэш не найдётся.
		if errors.Is(err, storage.ErrConflict) && attempt < maxWriteAttempts {
			lg.Debug("refresh_write_conflict_retry", slog.Int("attempt", attempt))
			continue
		}

		s.metrics.Refresh(metrics.ResultError)
		lg.Error("refresh_rotate_failed",
			slog.String("user_id", res.token.OwnerID.String()),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, storageFailure(err))
	}
}

// Invalidate удаляет запись, которой принадлежит сырой токен.
// Отсутствие записи ошибкой не считается: повторный logout безопасен.
func (s *Service) Invalidate(ctx context.Context, raw string) error {
	const op = "service.token.Invalidate"

	if raw == "" {
		return nil
	}

	rec, err := s.storage.RefreshTokenByHash(ctx, hashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		log.ForOp(ctx, op).Error("refresh_lookup_failed",
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteRefreshToken(ctx, rec); err != nil {
		log.ForOp(ctx, op).Error("refresh_delete_failed",
			slog.String("user_id", rec.OwnerID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	log.ForOp(ctx, op).Info("refresh_invalidated",
		slog.String("user_id", rec.OwnerID.String()),
	)

	return nil
}

// rotate выставляет записи новое случайное значение и срок действия и сохраняет её.
// Запись с Version == 0 вставляется, иначе обновляется на месте. Переданная запись не меняется.
func (s *Service) rotate(ctx context.Context, rec *models.RefreshToken) (*models.IssuedRefreshToken, error) {
	const op = "service.token.rotate"

	raw, hash, err := s.newRefreshValue()
	if err != nil {
		log.ForOp(ctx, op).Error("refresh_rand_failed",
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next := *rec
	next.TokenHash = hash
	next.ExpiresAt = s.clock.Now().Add(s.cfg.RefreshTokenTTL)

	if err := s.storage.UpsertRefreshToken(ctx, &next); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.TokenIssued(metrics.KindRefresh)

	return &models.IssuedRefreshToken{Token: &next, Raw: raw}, nil
}

// lookup ищет запись по сырому значению и классифицирует её относительно часов сервиса.
func (s *Service) lookup(ctx context.Context, raw string) (lookupResult, error) {
	if raw == "" {
		return lookupResult{status: lookupNotFound}, nil
	}

	rec, err := s.storage.RefreshTokenByHash(ctx, hashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return lookupResult{status: lookupNotFound}, nil
		}
		return lookupResult{}, err
	}

	if rec.Expired(s.clock.Now()) {
		return lookupResult{status: lookupExpired, token: rec}, nil
	}

	return lookupResult{status: lookupFound, token: rec}, nil
}

// newRefreshValue возвращает сырой токен (base64url без паддинга) и его хэш.
func (s *Service) newRefreshValue() (raw, hash string, err error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(b)

	return raw, hashRefreshToken(raw), nil
}

// hashRefreshToken — SHA-256 от сырого значения в base64url без паддинга.
func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// storageFailure сводит коллизию хэша и проигранные гонки к ErrStorageConflict.
func storageFailure(err error) error {
	if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrAlreadyExists) {
		return fmt.Errorf("%w: %w", ErrStorageConflict, err)
	}

	return err
}
