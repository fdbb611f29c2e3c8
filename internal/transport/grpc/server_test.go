package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startOps(t *testing.T, opts Options) (*OpsServer, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewOpsServer(opts)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
		require.NoError(t, <-serveErr)
	})

	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestOpsServer_HealthToggles(t *testing.T) {
	srv, client := startOps(t, Options{Timeout: time.Second})

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))

	srv.SetServing(true)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client))

	srv.SetServing(false)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))
}

func TestOpsServer_ReflectionRegistered(t *testing.T) {
	srv, _ := startOps(t, Options{Reflection: true})

	_, ok := srv.srv.GetServiceInfo()["grpc.reflection.v1.ServerReflection"]
	require.True(t, ok)
}

func TestOpsServer_NoReflectionByDefault(t *testing.T) {
	srv, _ := startOps(t, Options{})

	info := srv.srv.GetServiceInfo()
	_, ok := info["grpc.reflection.v1.ServerReflection"]
	require.False(t, ok)
	_, ok = info["grpc.health.v1.Health"]
	require.True(t, ok)
}

func TestOpsServer_StopIsGraceful(t *testing.T) {
	srv := NewOpsServer(Options{})
	lis := bufconn.Listen(1 << 20)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lis) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.True(t, srv.Stop(ctx))
	require.NoError(t, <-serveErr)
}
