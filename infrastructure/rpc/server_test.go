package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startTestServer(t *testing.T) (*HealthServer, healthpb.HealthClient) {
	lis := bufconn.Listen(1024 * 1024)
	server := NewHealthServer("", zaptest.NewLogger(t).Sugar())
	errChan := make(chan error, 1)
	server.Serve(lis, errChan)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return server, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	response, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return response.GetStatus()
}

func TestHealthServer_notServingUntilLoaded(t *testing.T) {
	server, client := startTestServer(t)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, CountdownService))

	loaded := make(chan struct{})
	done := make(chan struct{})
	go func() {
		server.WatchLoaded(context.Background(), loaded)
		close(done)
	}()
	close(loaded)
	<-done

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, CountdownService))
}

func TestHealthServer_WatchLoaded_cancelled(t *testing.T) {
	server, client := startTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	server.WatchLoaded(ctx, make(chan struct{}))

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
}
