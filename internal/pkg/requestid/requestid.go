// requestid — идентификатор запроса, общий для HTTP и gRPC.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Header — HTTP-заголовок; в gRPC metadata ключи в нижнем регистре.
const (
	Header      = "X-Request-ID"
	MetadataKey = "x-request-id"
)

// maxLen ограничивает длину принятого от клиента идентификатора.
const maxLen = 128

type ctxKey struct{}

// Into кладёт идентификатор в контекст.
func Into(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From возвращает идентификатор из контекста или "".
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Accept возвращает пришедший идентификатор, если он пригоден, иначе новый UUID.
func Accept(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || len(incoming) > maxLen || strings.ContainsAny(incoming, "\r\n") {
		return uuid.NewString()
	}

	return incoming
}
