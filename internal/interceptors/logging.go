// interceptors — серверные unary-интерсепторы служебного gRPC-сервера
// (health, reflection).
package interceptors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/pkg/requestid"
)

// healthPrefix — методы grpc.health.v1 опрашиваются часто; успешные вызовы пишутся на Debug.
const healthPrefix = "/grpc.health.v1.Health/"

// UnaryLogging логирует unary-вызовы и прокладывает request-scoped логгер в контекст.
//
// Поведение:
//   - x-request-id берётся из metadata (см. requestid.Accept), иначе генерируется UUID;
//   - логгер с request_id/method/peer кладётся в context (pkg/log);
//   - после handler пишется одна строка msg="grpc" с code и dur.
func UnaryLogging(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		var incoming string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(requestid.MetadataKey); len(v) > 0 {
				incoming = v[0]
			}
		}
		rid := requestid.Accept(incoming)

		peerStr := "-"
		if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
			peerStr = p.Addr.String()
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerStr),
		)
		ctx = requestid.Into(log.Into(ctx, l), rid)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		switch {
		case code == codes.Internal || code == codes.Unknown:
			level = slog.LevelError
		case code == codes.OK && strings.HasPrefix(info.FullMethod, healthPrefix):
			level = slog.LevelDebug
		}

		l.Log(ctx, level, "grpc",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}
