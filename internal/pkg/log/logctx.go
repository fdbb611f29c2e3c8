// log переносит request-scoped *slog.Logger через context.Context.
//
// Сервисный слой пишет события в логгер запроса: request_id туда кладёт
// HTTP-мидлвар, op и user_id добавляются хелперами ниже.
package log

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	return slog.Default()
}

// ForOp возвращает логгер запроса с атрибутом op (имя операции сервиса).
func ForOp(ctx context.Context, op string) *slog.Logger {
	return From(ctx).With(slog.String("op", op))
}

// WithUser привязывает к логгеру запроса user_id владельца сессии.
// Нулевой UUID (пользователь ещё не определён) контекст не меняет.
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	if userID == uuid.Nil {
		return ctx
	}

	return Into(ctx, From(ctx).With(slog.String("user_id", userID.String())))
}
