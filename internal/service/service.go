// service содержит бизнес-логику сервиса сессий: выпуск access-токенов,
// выпуск/ротацию/отзыв refresh-токенов и поверх них регистрацию, вход,
// обновление и выход пользователя.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования, если потокобезопасно переданное хранилище.
//   - Всё время читается из clock.Clock, переданного при сборке; системное
//     время напрямую не используется.
//   - Наружу отдаются только ошибки этого пакета (см. переменные ниже);
//     транспорт маппит их на HTTP-статусы.
package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/session-service/internal/clock"
	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/token"
)

var (
	// ErrAuthenticationFailed — access-токен некорректен, подписан не тем ключом
	// или истёк. Причина наружу не раскрывается. HTTP 401.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRefreshTokenFailed — refresh-токен отсутствует, неизвестен или истёк.
	// Все случаи неразличимы для клиента; cookie очищается. HTTP 401.
	ErrRefreshTokenFailed = errors.New("login has expired")

	// ErrStorageConflict — коллизия хэша или исчерпаны попытки записи при гонке.
	// Неожиданная ситуация, отдаётся как внутренняя ошибка. HTTP 500.
	ErrStorageConflict = errors.New("storage conflict")

	// ErrInvalidCredentials — неверная пара логин/пароль или пользователь не найден. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken — имя пользователя уже занято. HTTP 409.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken — e-mail уже занят другим пользователем. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidUsername — имя не проходит валидацию (3–20 символов [A-Za-z0-9_-]). HTTP 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidEmail — e-mail имеет некорректный формат или длину. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPassword — пароль короче 8 или длиннее 72 байт. HTTP 400.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service описывает бизнес-логику сервиса сессий.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	codec   *token.Codec
	clock   clock.Clock
	metrics *metrics.Metrics
	random  io.Reader

	bcryptCost int
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени (по умолчанию clock.System).
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics включает метрики Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRandom подменяет источник энтропии refresh-токенов (только для тестов).
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// WithPasswordCost задаёт стоимость bcrypt (по умолчанию bcrypt.DefaultCost).
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig, opts ...Option) (*Service, error) {
	const op = "service.New"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	codec, err := token.NewCodec([]byte(cfg.JWTSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Service{
		storage:    storage,
		cfg:        cfg,
		codec:      codec,
		clock:      clock.System{},
		random:     rand.Reader,
		bcryptCost: bcrypt.DefaultCost,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Now возвращает время по часам сервиса. Транспорт считает по нему Max-Age cookie.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}
