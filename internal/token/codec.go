// token подписывает и проверяет access-токены (JWT, HS256).
//
// Набор claims минимален: sub, iat, exp, exp_ns и (опционально) iss. Время всегда
// передаётся вызывающим кодом, поэтому граница истечения детерминирована:
// токен со сроком t принимается при now < t и отвергается при now >= t.
//
// NumericDate в JWT хранит целые секунды, поэтому точный срок лежит в exp_ns
// (Unix-наносекунды), а exp округляется вверх и служит только для сторонних
// парсеров.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/session-service/internal/models"
)

var (
	// ErrInvalid — подпись, структура, алгоритм или издатель токена некорректны.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired — срок действия токена истёк.
	ErrExpired = errors.New("token expired")
	// ErrEmptySecret — не задан ключ подписи.
	ErrEmptySecret = errors.New("empty signing secret")
	// ErrEmptySubject — попытка выпустить токен без subject.
	ErrEmptySubject = errors.New("empty subject")
)

// accessClaims — стандартные claims плюс точный момент истечения.
type accessClaims struct {
	jwt.RegisteredClaims
	ExpiresAtNano int64 `json:"exp_ns"`
}

// Codec выпускает и проверяет access-токены общим секретом.
// Безопасен для конкурентного использования.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec создаёт кодек. issuer может быть пустым — тогда iss не пишется и не проверяется.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	const op = "token.codec.NewCodec"

	if len(secret) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Codec{secret: key, issuer: issuer}, nil
}

// Issue строит claims {sub, iat=now, exp=now+ttl} и подписывает их.
// IssuedAt и ExpiresAt в результате равны now и now+ttl без округления.
func (c *Codec) Issue(subject string, now time.Time, ttl time.Duration) (*models.AccessToken, error) {
	const op = "token.codec.Issue"

	if subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySubject)
	}

	now = now.UTC()
	expiresAt := now.Add(ttl)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(expiresAt)),
			Issuer:    c.issuer,
		},
		ExpiresAtNano: expiresAt.UnixNano(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AccessToken{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		Token:     signed,
	}, nil
}

// Verify проверяет подпись и срок действия токена относительно now и возвращает subject.
// Ошибки: ErrExpired, если now >= exp; ErrInvalid во всех остальных случаях.
func (c *Codec) Verify(signed string, now time.Time) (string, error) {
	const op = "token.codec.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims accessClaims
	tok, err := jwt.ParseWithClaims(signed, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}

		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return "", fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	if !tok.Valid || claims.Subject == "" || claims.ExpiresAtNano == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	if !now.Before(time.Unix(0, claims.ExpiresAtNano)) {
		return "", fmt.Errorf("%s: %w", op, ErrExpired)
	}

	return claims.Subject, nil
}

func ceilSecond(t time.Time) time.Time {
	if r := t.Truncate(time.Second); !r.Equal(t) {
		return r.Add(time.Second)
	}

	return t
}
