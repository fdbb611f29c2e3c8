// grpc — служебный gRPC-listener сервиса сессий.
// Бизнес-эндпоинтов здесь нет: публичный API отдаётся по HTTP.
// Сервер несёт стандартный health-check, рефлексию (local/dev), метрики
// go-grpc-prometheus и цепочку интерсепторов recover -> logging -> timeout.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/session-service/internal/interceptors"
	"github.com/pribylovaa/session-service/internal/metrics"
)

// Options — параметры сборки служебного сервера.
type Options struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Timeout    time.Duration
	Reflection bool
}

// OpsServer — gRPC-сервер с health-check.
type OpsServer struct {
	srv    *grpc.Server
	health *health.Server
}

// NewOpsServer собирает сервер. Статус health до SetServing(true) — NOT_SERVING.
func NewOpsServer(opts Options) *OpsServer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(logger, opts.Metrics),
			interceptors.UnaryLogging(logger),
			interceptors.WithTimeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	return &OpsServer{srv: srv, health: hs}
}

// SetServing переключает статус health-check.
func (s *OpsServer) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Serve блокируется до остановки сервера. Штатная остановка ошибкой не считается.
func (s *OpsServer) Serve(lis net.Listener) error {
	const op = "transport.grpc.Serve"

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stop переводит health в NOT_SERVING и останавливает сервер; по истечении
// ctx оставшиеся соединения закрываются принудительно.
// Возвращает false, если понадобилась принудительная остановка.
func (s *OpsServer) Stop(ctx context.Context) bool {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		s.srv.Stop()
		<-done
		return false
	}
}
