package rpc

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// CountdownService is the service name reported by the health server next to the overall status.
const CountdownService = "ckb.halving.Countdown"

type HealthServer struct {
	listenAddr string
	health     *health.Server
	srv        *grpc.Server
	logger     *zap.SugaredLogger
}

func NewHealthServer(listenAddr string, logger *zap.SugaredLogger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(CountdownService, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		listenAddr: listenAddr,
		health:     hs,
		srv:        srv,
		logger:     logger,
	}
}

func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(CountdownService, status)
}

// WatchLoaded switches to serving once loaded is closed.
func (s *HealthServer) WatchLoaded(ctx context.Context, loaded <-chan struct{}) {
	select {
	case <-loaded:
		s.logger.Infow("Countdown loaded, reporting serving")
		s.SetServing(true)
	case <-ctx.Done():
	}
}

func (s *HealthServer) Start(errChan chan error) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return errors.Wrap(err, "listening on grpc port")
	}
	s.Serve(lis, errChan)
	return nil
}

func (s *HealthServer) Serve(lis net.Listener, errChan chan error) {
	go func() {
		if err := s.srv.Serve(lis); err != nil {
			errChan <- errors.Wrap(err, "serving grpc listener")
		}
	}()
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
