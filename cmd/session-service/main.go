package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/service"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/storage/memory"
	"github.com/pribylovaa/session-service/internal/storage/postgres"
	"github.com/pribylovaa/session-service/internal/storage/redis"
	grpctransport "github.com/pribylovaa/session-service/internal/transport/grpc"
	httptransport "github.com/pribylovaa/session-service/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

var errNotReady = errors.New("not ready")

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env, "storage", cfg.Storage.Driver)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	rootCancel()
	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	connCtx, connCancel := context.WithTimeout(ctx, connectTimeout)
	st, ping, err := openStorage(connCtx, cfg, log)
	connCancel()
	if err != nil {
		return err
	}
	defer st.Close()

	// Метрики сервиса и gRPC-сервера живут в одном реестре.
	grpc_prometheus.EnableHandlingTimeHistogram()
	m := metrics.New(prometheus.DefaultRegisterer)

	svc, err := service.New(st, cfg.Auth, service.WithMetrics(m))
	if err != nil {
		return err
	}
	log.Info("service_initialized")

	var ready atomic.Bool
	readiness := func(ctx context.Context) error {
		if !ready.Load() {
			return errNotReady
		}
		if ping == nil {
			return nil
		}
		return ping(ctx)
	}

	apiSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: httptransport.NewRouter(svc, httptransport.Options{
			Logger:   log,
			Metrics:  m,
			Timeout:  cfg.Timeouts.Service,
			BasePath: cfg.HTTP.BasePath,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           httptransport.NewOpsRouter(readiness, prometheus.DefaultGatherer, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpctransport.NewOpsServer(grpctransport.Options{
		Logger:     log,
		Metrics:    m,
		Timeout:    cfg.Timeouts.Service,
		Reflection: cfg.Env == envLocal || cfg.Env == envDev,
	})

	addr := cfg.GRPC.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	serveErrCh := make(chan error, 3)
	serveHTTP := func(name string, srv *http.Server) {
		log.Info("http_listen_start", slog.String("server", name), slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("%s http: %w", name, err)
		}
	}

	go serveHTTP("api", apiSrv)
	go serveHTTP("ops", opsSrv)
	go func() {
		log.Info("grpc_listen_start", slog.String("addr", addr))
		if err := grpcSrv.Serve(listener); err != nil {
			serveErrCh <- err
		}
	}()

	// Сервис готов: health -> SERVING и readiness.
	grpcSrv.SetServing(true)
	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("serve_failed", slog.String("err", serveErr.Error()))
	}

	ready.Store(false)
	grpcSrv.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("server", "api"), slog.String("err", err.Error()))
	}

	if grpcSrv.Stop(shutdownCtx) {
		log.Info("grpc_stopped")
	} else {
		log.Warn("grpc_force_stop")
	}

	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("server", "ops"), slog.String("err", err.Error()))
	}

	return serveErr
}

// openStorage собирает хранилище по cfg.Storage.Driver.
// Каталог пользователей для postgres и redis живёт в PostgreSQL.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, httptransport.Pinger, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn("memory_storage_in_use")
		return memory.New(), nil, nil

	case config.StoragePostgres:
		pg, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Ping, nil

	case config.StorageRedis:
		pg, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}

		rdb, err := redis.New(ctx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
		if err != nil {
			pg.Close()
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			return nil, nil, err
		}
		log.Info("redis_connected")

		ping := func(ctx context.Context) error {
			return errors.Join(pg.Ping(ctx), rdb.Ping(ctx))
		}
		return storage.NewSplit(pg, rdb, rdb.Close, pg.Close), ping, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q: %w", cfg.Storage.Driver, config.ErrInvalidConfig)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *slog.Logger) (*postgres.Storage, error) {
	pg, err := postgres.New(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		return nil, err
	}
	log.Info("postgres_connected")

	if cfg.DB.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			log.Error("postgres_migrate_failed", slog.String("err", err.Error()))
			return nil, err
		}
		log.Info("postgres_migrated")
	}

	return pg, nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
