package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/pkg/log"
)

// Recover перехватывает паники в ops-обработчиках (health, reflection),
// логирует метод и стек, считает панику в session_panics_recovered_total
// и отвечает нейтральной codes.Internal без деталей.
// Логгер берётся из контекста (pkg/log), если его там нет — base или slog.Default().
// m может быть nil.
func Recover(base *slog.Logger, m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			l := log.From(ctx)
			if l == slog.Default() && base != nil {
				l = base
			}

			l.Error("panic_recovered",
				slog.String("method", info.FullMethod),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			m.PanicRecovered(metrics.TransportGRPC)

			resp, err = nil, status.Error(codes.Internal, "internal server error")
		}()

		return handler(ctx, req)
	}
}
