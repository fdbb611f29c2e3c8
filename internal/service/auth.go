package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/pkg/redact"
	"github.com/pribylovaa/session-service/internal/storage"
)

const (
	minEmailLen    = 3
	maxEmailLen    = 255
	minPasswordLen = 8
	// bcrypt учитывает только первые 72 байта.
	maxPasswordLen = 72
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// Register регистрирует нового пользователя и сразу открывает для него сессию.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.Session, error) {
	const op = "service.auth.Register"

	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Сначала e-mail, затем имя: при обоих занятых клиент получает email_taken.
	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	taken, err := s.storage.UserExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        normEmail,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.clock.Now(),
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Регистрацию с теми же данными выиграл конкурент.
			if _, err := s.storage.UserByEmail(ctx, normEmail); err == nil {
				return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
			}
			return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.ForOp(ctx, op).Info("user_registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return s.issueSession(ctx, user)
}

// Login выполняет вход по имени пользователя или e-mail и паролю.
func (s *Service) Login(ctx context.Context, login, password string) (*models.Session, error) {
	const op = "service.auth.Login"

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	var (
		user *models.User
		err  error
	)
	// В имени пользователя '@' недопустим, поэтому такой логин — это e-mail.
	if strings.Contains(login, "@") {
		user, err = s.storage.UserByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.storage.UserByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.ForOp(ctx, op).Warn("login_unknown_user",
				slog.String("login", redact.Login(login)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx = log.WithUser(ctx, user.ID)

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		log.ForOp(ctx, op).Warn("login_bad_password")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return s.issueSession(ctx, user)
}

// Refresh ротирует refresh-токен и выпускает новый access-токен его владельцу.
func (s *Service) Refresh(ctx context.Context, raw string) (*models.Session, error) {
	const op = "service.auth.Refresh"

	issued, err := s.ValidateAndRotate(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, issued.Token.OwnerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Владелец удалён: токен без владельца не должен оставаться в хранилище.
			if derr := s.storage.DeleteRefreshToken(ctx, issued.Token); derr != nil {
				log.ForOp(ctx, op).Error("refresh_orphan_delete_failed",
					slog.String("err", derr.Error()),
				)
			}
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenFailed)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.GenerateAccessToken(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Session{UserID: user.ID, Access: access, Refresh: issued}, nil
}

// Logout отзывает refresh-токен. Повторный вызов безопасен.
func (s *Service) Logout(ctx context.Context, raw string) error {
	const op = "service.auth.Logout"

	if err := s.Invalidate(ctx, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CurrentUser возвращает владельца действующего access-токена.
// Subject, которому больше не соответствует учётная запись, даёт ErrAuthenticationFailed.
func (s *Service) CurrentUser(ctx context.Context, signed string) (*models.User, error) {
	const op = "service.auth.CurrentUser"

	username, err := s.UsernameFromAccessToken(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAuthenticationFailed)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// issueSession выпускает access-токен (subject — имя пользователя) и refresh-токен.
func (s *Service) issueSession(ctx context.Context, user *models.User) (*models.Session, error) {
	const op = "service.auth.issueSession"

	ctx = log.WithUser(ctx, user.ID)

	access, err := s.GenerateAccessToken(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.GetOrGenerateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Session{UserID: user.ID, Access: access, Refresh: refresh}, nil
}

// validateEmail проверяет формат и длину email, обрезает пробелы и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if len(email) < minEmailLen || len(email) > maxEmailLen {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет длину пароля в байтах.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return fmt.Errorf("%s: %w", op, ErrInvalidPassword)
	}

	return nil
}
